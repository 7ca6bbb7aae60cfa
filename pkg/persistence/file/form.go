package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
)

// FormRepository stores forms as <root>/forms/<id>.json.
type FormRepository struct {
	root string
	mu   sync.Mutex
}

func NewFormRepository(root string) *FormRepository {
	return &FormRepository{root: root}
}

func (fr *FormRepository) path(id string) string {
	return filepath.Join(fr.root, "forms", id+".json")
}

func (fr *FormRepository) Save(_ context.Context, form *models.Form) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	return writeJSON(fr.path(form.ID), form)
}

func (fr *FormRepository) GetByID(_ context.Context, id string) (*models.Form, error) {
	var form models.Form

	err := readJSON(fr.path(id), &form, persistence.ErrFormNotFound)
	if err != nil {
		return nil, err
	}

	return &form, nil
}

// GetByWorkflow returns the active form attached to a workflow, preferring
// the highest version when several are stored.
func (fr *FormRepository) GetByWorkflow(ctx context.Context, workflowID string) (*models.Form, error) {
	dir := filepath.Join(fr.root, "forms")

	files, err := listJSONFiles(dir)
	if err != nil {
		return nil, err
	}

	var best *models.Form

	for _, file := range files {
		form, err := fr.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if form.WorkflowID != workflowID || !form.Active {
			continue
		}

		if best == nil || form.Version > best.Version {
			best = form
		}
	}

	if best == nil {
		return nil, persistence.NewStoreError("GetByWorkflow", "form", workflowID, persistence.ErrFormNotFound)
	}

	return best, nil
}

func (fr *FormRepository) Delete(_ context.Context, id string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	path := fr.path(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return persistence.NewStoreError("Delete", "form", id, persistence.ErrFormNotFound)
	}

	return os.Remove(path)
}
