package workflow

import (
	"context"
	"errors"

	"github.com/beeflow/beeflow/pkg/directory"
	"github.com/beeflow/beeflow/pkg/models"
)

// ResolutionContext carries the instance-side inputs of a resolution:
// hierarchy walks start from the initiator.
type ResolutionContext struct {
	InitiatorID string
}

// Resolver turns abstract assignee descriptors into concrete user IDs by
// consulting the organizational directory. Resolution happens once, at
// task-creation time; the resulting assignee rows are a frozen snapshot.
type Resolver struct {
	directory directory.Directory
}

func NewResolver(dir directory.Directory) *Resolver {
	return &Resolver{directory: dir}
}

// Resolve maps one descriptor to a deduplicated list of user IDs. Every
// lookup miss is a ResolutionError: the policy is exact-layer match with no
// fallback, the caller decides what to do about unresolvable nodes.
func (r *Resolver) Resolve(ctx context.Context, assignee models.Assignee, rctx ResolutionContext) ([]string, error) {
	switch assignee.AssigneeType {
	case models.AssigneeTypeSpecificUser:
		return r.resolveSpecificUser(ctx, assignee)
	case models.AssigneeTypeSpecificUsers:
		return r.resolveSpecificUsers(ctx, assignee)
	case models.AssigneeTypeRole:
		return r.resolveRole(ctx, assignee)
	case models.AssigneeTypeDepartmentLeader:
		return r.resolveDepartmentLeader(ctx, assignee, rctx)
	case models.AssigneeTypeSuperior:
		return r.resolveSuperior(ctx, assignee, rctx)
	default:
		return nil, &ResolutionError{
			AssigneeType: assignee.AssigneeType,
			ReferenceID:  assignee.ReferenceID,
			Reason:       "unknown assignee type",
		}
	}
}

// ResolveAll resolves every descriptor of a node into frozen TaskAssignee
// rows, deduplicating users across descriptors while preserving order.
func (r *Resolver) ResolveAll(ctx context.Context, assignees []models.Assignee, rctx ResolutionContext) ([]models.TaskAssignee, error) {
	rows := make([]models.TaskAssignee, 0, len(assignees))
	seen := make(map[string]bool)

	for _, assignee := range assignees {
		userIDs, err := r.Resolve(ctx, assignee, rctx)
		if err != nil {
			return nil, err
		}

		for _, userID := range userIDs {
			if seen[userID] {
				continue
			}

			seen[userID] = true
			rows = append(rows, models.TaskAssignee{
				UserID:       userID,
				AssigneeType: assignee.AssigneeType,
				Status:       models.TaskStatusPending,
			})
		}
	}

	return rows, nil
}

func (r *Resolver) resolveSpecificUser(ctx context.Context, assignee models.Assignee) ([]string, error) {
	user, err := r.directory.GetUser(ctx, assignee.ReferenceID)
	if err != nil {
		return nil, &ResolutionError{
			AssigneeType: assignee.AssigneeType,
			ReferenceID:  assignee.ReferenceID,
			Reason:       "user does not exist",
			Err:          err,
		}
	}

	return []string{user.ID}, nil
}

func (r *Resolver) resolveSpecificUsers(ctx context.Context, assignee models.Assignee) ([]string, error) {
	userIDs := make([]string, 0, len(assignee.MemberIDs))
	seen := make(map[string]bool, len(assignee.MemberIDs))

	for _, memberID := range assignee.MemberIDs {
		if seen[memberID] {
			continue
		}

		seen[memberID] = true

		if _, err := r.directory.GetUser(ctx, memberID); err != nil {
			return nil, &ResolutionError{
				AssigneeType: assignee.AssigneeType,
				ReferenceID:  memberID,
				Reason:       "member does not exist",
				Err:          err,
			}
		}

		userIDs = append(userIDs, memberID)
	}

	return userIDs, nil
}

func (r *Resolver) resolveRole(ctx context.Context, assignee models.Assignee) ([]string, error) {
	userIDs, err := r.directory.GetUsersWithRole(ctx, assignee.ReferenceID)
	if err != nil {
		return nil, &ResolutionError{
			AssigneeType: assignee.AssigneeType,
			ReferenceID:  assignee.ReferenceID,
			Reason:       "role does not exist",
			Err:          err,
		}
	}

	if len(userIDs) == 0 {
		return nil, &ResolutionError{
			AssigneeType: assignee.AssigneeType,
			ReferenceID:  assignee.ReferenceID,
			Reason:       "role has no active members",
		}
	}

	return userIDs, nil
}

func (r *Resolver) resolveDepartmentLeader(ctx context.Context, assignee models.Assignee, rctx ResolutionContext) ([]string, error) {
	initiator, err := r.directory.GetUser(ctx, rctx.InitiatorID)
	if err != nil {
		return nil, &ResolutionError{
			AssigneeType: assignee.AssigneeType,
			ReferenceID:  rctx.InitiatorID,
			Reason:       "initiator does not exist",
			Err:          err,
		}
	}

	if initiator.DepartmentID == "" {
		return nil, &ResolutionError{
			AssigneeType: assignee.AssigneeType,
			ReferenceID:  rctx.InitiatorID,
			Reason:       "initiator has no department",
		}
	}

	direction := directory.WalkUp
	if assignee.LayerType == models.LayerTypeDown {
		direction = directory.WalkDown
	}

	// Exact-layer semantics: layer 1 is the initiator's own department.
	leaderID, err := r.directory.GetDepartmentLeader(ctx, initiator.DepartmentID, assignee.Layer-1, direction)
	if err != nil || leaderID == "" {
		if err == nil {
			err = errors.New("department has no leader")
		}

		return nil, &ResolutionError{
			AssigneeType: assignee.AssigneeType,
			ReferenceID:  initiator.DepartmentID,
			Reason:       "no leader at requested layer",
			Err:          err,
		}
	}

	return []string{leaderID}, nil
}

func (r *Resolver) resolveSuperior(ctx context.Context, assignee models.Assignee, rctx ResolutionContext) ([]string, error) {
	chain, err := r.directory.GetManagerChain(ctx, rctx.InitiatorID)
	if err != nil {
		return nil, &ResolutionError{
			AssigneeType: assignee.AssigneeType,
			ReferenceID:  rctx.InitiatorID,
			Reason:       "initiator does not exist",
			Err:          err,
		}
	}

	// Layer N is the Nth manager above the initiator, exact match only.
	if assignee.Layer > len(chain) {
		return nil, &ResolutionError{
			AssigneeType: assignee.AssigneeType,
			ReferenceID:  rctx.InitiatorID,
			Reason:       "no superior at requested layer",
		}
	}

	return []string{chain[assignee.Layer-1]}, nil
}
