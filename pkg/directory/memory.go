package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Memory is an in-memory directory snapshot. It serves tests and small
// single-process deployments; NewFromFile loads it from a JSON export.
type Memory struct {
	users       map[string]*User
	departments map[string]*Department
	roles       map[string][]string // role ID -> member user IDs
}

// Snapshot is the JSON shape NewFromFile loads.
type Snapshot struct {
	Users       []*User             `json:"users"`
	Departments []*Department       `json:"departments"`
	Roles       map[string][]string `json:"roles"`
}

// NewMemory builds a directory from a snapshot.
func NewMemory(snapshot Snapshot) *Memory {
	m := &Memory{
		users:       make(map[string]*User, len(snapshot.Users)),
		departments: make(map[string]*Department, len(snapshot.Departments)),
		roles:       snapshot.Roles,
	}

	if m.roles == nil {
		m.roles = make(map[string][]string)
	}

	for _, user := range snapshot.Users {
		m.users[user.ID] = user
	}

	for _, department := range snapshot.Departments {
		m.departments[department.ID] = department
	}

	return m
}

// NewFromFile loads a directory snapshot from a JSON file.
func NewFromFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file %s: %w", path, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse directory file %s: %w", path, err)
	}

	return NewMemory(snapshot), nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func (m *Memory) GetDepartment(_ context.Context, id string) (*Department, error) {
	department, ok := m.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}

	return department, nil
}

func (m *Memory) GetDepartmentLeader(ctx context.Context, departmentID string, layer int, direction WalkDirection) (string, error) {
	department, err := m.GetDepartment(ctx, departmentID)
	if err != nil {
		return "", err
	}

	for range layer {
		var nextID string

		if direction == WalkDown {
			nextID = m.firstChildDepartment(department.ID)
		} else {
			nextID = department.ParentID
		}

		if nextID == "" {
			return "", ErrDepartmentNotFound
		}

		department, err = m.GetDepartment(ctx, nextID)
		if err != nil {
			return "", err
		}
	}

	return department.LeaderID, nil
}

func (m *Memory) GetUsersWithRole(_ context.Context, roleID string) ([]string, error) {
	members, ok := m.roles[roleID]
	if !ok {
		return nil, ErrRoleNotFound
	}

	active := make([]string, 0, len(members))

	for _, id := range members {
		if user, ok := m.users[id]; ok && user.Active {
			active = append(active, id)
		}
	}

	return active, nil
}

func (m *Memory) GetManagerChain(ctx context.Context, userID string) ([]string, error) {
	user, err := m.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	chain := make([]string, 0, 4)
	seen := map[string]bool{user.ID: true}

	for user.ManagerID != "" && !seen[user.ManagerID] {
		seen[user.ManagerID] = true
		chain = append(chain, user.ManagerID)

		manager, ok := m.users[user.ManagerID]
		if !ok {
			break
		}

		user = manager
	}

	return chain, nil
}

// firstChildDepartment returns an arbitrary-but-stable child: the
// lexicographically smallest ID among direct children.
func (m *Memory) firstChildDepartment(parentID string) string {
	best := ""

	for id, department := range m.departments {
		if department.ParentID != parentID {
			continue
		}

		if best == "" || id < best {
			best = id
		}
	}

	return best
}
