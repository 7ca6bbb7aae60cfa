// Package directory abstracts the organizational directory the assignee
// resolver consults: users, departments with leaders, roles, and manager
// chains. The engine only depends on this interface; implementations may be
// backed by an HR system, LDAP, or the bundled in-memory snapshot.
package directory

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrRoleNotFound       = errors.New("role not found")
)

// User is a directory member.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	DepartmentID string   `json:"department_id,omitempty"`
	ManagerID    string   `json:"manager_id,omitempty"`
	RoleIDs      []string `json:"role_ids,omitempty"`
	Active       bool     `json:"active"`
}

// Department is one node of the org hierarchy.
type Department struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	LeaderID string `json:"leader_id,omitempty"`
}

// WalkDirection selects which way a hierarchy walk moves.
type WalkDirection string

const (
	WalkUp   WalkDirection = "UP"
	WalkDown WalkDirection = "DOWN"
)

// Directory is the read-only org lookup surface used during assignee
// resolution.
type Directory interface {
	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetDepartment returns the department or ErrDepartmentNotFound.
	GetDepartment(ctx context.Context, id string) (*Department, error)

	// GetDepartmentLeader walks `layer` levels from the department in the
	// given direction and returns the leader user ID of the department at
	// that exact level. Layer 0 is the department itself. An empty string
	// means the department at that level has no leader.
	GetDepartmentLeader(ctx context.Context, departmentID string, layer int, direction WalkDirection) (string, error)

	// GetUsersWithRole returns the IDs of all active users holding the role,
	// or ErrRoleNotFound when the role does not exist.
	GetUsersWithRole(ctx context.Context, roleID string) ([]string, error)

	// GetManagerChain returns the user's managers from direct manager
	// upwards.
	GetManagerChain(ctx context.Context, userID string) ([]string, error)
}
