package models

import "time"

// FlowPermissionType restricts who may start instances of a workflow.
type FlowPermissionType string

const (
	FlowPermissionEveryone FlowPermissionType = "EVERYONE"
	FlowPermissionSpecific FlowPermissionType = "SPECIFIC"
	FlowPermissionNobody   FlowPermissionType = "NOBODY"
)

// FlowPermission controls instance initiation. The zero value allows everyone.
type FlowPermission struct {
	Type         FlowPermissionType `json:"type,omitempty"`
	InitiatorIDs []string           `json:"initiator_ids,omitempty"`
}

// Allows reports whether the given user may start an instance.
func (p FlowPermission) Allows(userID string) bool {
	switch p.Type {
	case FlowPermissionNobody:
		return false
	case FlowPermissionSpecific:
		for _, id := range p.InitiatorIDs {
			if id == userID {
				return true
			}
		}

		return false
	default:
		return true
	}
}

// Workflow is a versioned, immutable-once-saved workflow definition. Updating
// the node tree writes a new version under the same ID; running instances
// keep resolving against the version they were started with.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Icon        string         `json:"icon,omitempty"`
	GroupID     string         `json:"group_id"`
	RootNode    *Node          `json:"root_node"   validate:"required"`
	Permission  FlowPermission `json:"permission"`
	Cancelable  bool           `json:"cancelable"`
	Active      bool           `json:"active"`
	Version     int            `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
