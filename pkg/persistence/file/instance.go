package file

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
)

// InstanceRepository stores instances as <root>/instances/<id>.json.
type InstanceRepository struct {
	root string
	mu   sync.Mutex
}

func NewInstanceRepository(root string) *InstanceRepository {
	return &InstanceRepository{root: root}
}

func (ir *InstanceRepository) path(id string) string {
	return filepath.Join(ir.root, "instances", id+".json")
}

func (ir *InstanceRepository) Create(_ context.Context, instance *models.WorkflowInstance) error {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	return writeJSON(ir.path(instance.ID), instance)
}

func (ir *InstanceRepository) GetByID(_ context.Context, id string) (*models.WorkflowInstance, error) {
	var instance models.WorkflowInstance

	err := readJSON(ir.path(id), &instance, persistence.ErrInstanceNotFound)
	if err != nil {
		return nil, err
	}

	return &instance, nil
}

// Update is the conditional write: it succeeds only when the stored entity
// version matches, then increments the token before writing.
func (ir *InstanceRepository) Update(ctx context.Context, instance *models.WorkflowInstance) error {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	stored, err := ir.GetByID(ctx, instance.ID)
	if err != nil {
		return err
	}

	if stored.EntityVersion != instance.EntityVersion {
		return persistence.NewStoreError("Update", "instance", instance.ID, persistence.ErrVersionConflict)
	}

	instance.EntityVersion++

	return writeJSON(ir.path(instance.ID), instance)
}

func (ir *InstanceRepository) ListByInitiator(ctx context.Context, initiatorID string) ([]*models.WorkflowInstance, error) {
	dir := filepath.Join(ir.root, "instances")

	files, err := listJSONFiles(dir)
	if err != nil {
		return nil, err
	}

	instances := make([]*models.WorkflowInstance, 0)

	for _, file := range files {
		instance, err := ir.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if instance.InitiatorID == initiatorID {
			instances = append(instances, instance)
		}
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].CreatedAt.After(instances[j].CreatedAt)
	})

	return instances, nil
}
