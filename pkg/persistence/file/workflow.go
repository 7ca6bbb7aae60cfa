package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
)

// WorkflowRepository stores definition versions as
// <root>/workflows/<id>/v<version>.json. Versions are never rewritten.
type WorkflowRepository struct {
	root string
	mu   sync.Mutex
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir(id string) string {
	return filepath.Join(wr.root, "workflows", id)
}

func (wr *WorkflowRepository) versionPath(id string, version int) string {
	return filepath.Join(wr.dir(id), fmt.Sprintf("v%d.json", version))
}

func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	path := wr.versionPath(workflow.ID, workflow.Version)
	if _, err := os.Stat(path); err == nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, persistence.ErrWorkflowVersionExists)
	}

	return writeJSON(path, workflow)
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	latest, err := wr.latestVersion(id)
	if err != nil {
		return nil, err
	}

	return wr.GetVersion(ctx, id, latest)
}

func (wr *WorkflowRepository) GetVersion(_ context.Context, id string, version int) (*models.Workflow, error) {
	var workflow models.Workflow

	err := readJSON(wr.versionPath(id, version), &workflow, persistence.ErrWorkflowVersionNotFound)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	base := filepath.Join(wr.root, "workflows")
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return []*models.Workflow{}, nil
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		workflow, err := wr.GetByID(ctx, entry.Name())
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	dir := wr.dir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return persistence.NewStoreError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return os.RemoveAll(dir)
}

// latestVersion scans the version files for the highest stored version.
func (wr *WorkflowRepository) latestVersion(id string) (int, error) {
	files, err := listJSONFiles(wr.dir(id))
	if err != nil {
		return 0, err
	}

	if len(files) == 0 {
		return 0, persistence.NewStoreError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	latest := 0

	for _, file := range files {
		name := strings.TrimSuffix(strings.TrimPrefix(file, "v"), ".json")

		version, err := strconv.Atoi(name)
		if err != nil {
			continue
		}

		if version > latest {
			latest = version
		}
	}

	if latest == 0 {
		return 0, persistence.NewStoreError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return latest, nil
}
