package directory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Users: []*User{
			{ID: "user-1", Name: "Ana", DepartmentID: "dept-eng", ManagerID: "manager-1", Active: true},
			{ID: "manager-1", Name: "Marta", DepartmentID: "dept-eng", ManagerID: "ceo", Active: true},
			{ID: "ceo", Name: "Carla", DepartmentID: "dept-root", Active: true},
			{ID: "former-1", Name: "Gone", Active: false},
		},
		Departments: []*Department{
			{ID: "dept-root", Name: "Company", LeaderID: "ceo"},
			{ID: "dept-eng", Name: "Engineering", ParentID: "dept-root", LeaderID: "manager-1"},
			{ID: "dept-eng-a", Name: "Platform", ParentID: "dept-eng", LeaderID: "user-1"},
			{ID: "dept-eng-b", Name: "Product", ParentID: "dept-eng"},
		},
		Roles: map[string][]string{
			"finance": {"manager-1", "former-1"},
		},
	}
}

func TestGetDepartmentLeader_LayerZeroIsOwnDepartment(t *testing.T) {
	dir := NewMemory(testSnapshot())

	leader, err := dir.GetDepartmentLeader(t.Context(), "dept-eng", 0, WalkUp)
	require.NoError(t, err)
	assert.Equal(t, "manager-1", leader)
}

func TestGetDepartmentLeader_WalksUp(t *testing.T) {
	dir := NewMemory(testSnapshot())

	leader, err := dir.GetDepartmentLeader(t.Context(), "dept-eng", 1, WalkUp)
	require.NoError(t, err)
	assert.Equal(t, "ceo", leader)
}

func TestGetDepartmentLeader_WalkPastRoot(t *testing.T) {
	dir := NewMemory(testSnapshot())

	_, err := dir.GetDepartmentLeader(t.Context(), "dept-eng", 2, WalkUp)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)
}

func TestGetDepartmentLeader_WalksDownToSmallestChild(t *testing.T) {
	dir := NewMemory(testSnapshot())

	leader, err := dir.GetDepartmentLeader(t.Context(), "dept-eng", 1, WalkDown)
	require.NoError(t, err)
	assert.Equal(t, "user-1", leader)
}

func TestGetDepartmentLeader_LeaderlessDepartment(t *testing.T) {
	dir := NewMemory(testSnapshot())

	leader, err := dir.GetDepartmentLeader(t.Context(), "dept-eng-b", 0, WalkUp)
	require.NoError(t, err)
	assert.Empty(t, leader)
}

func TestGetUsersWithRole_FiltersInactiveMembers(t *testing.T) {
	dir := NewMemory(testSnapshot())

	members, err := dir.GetUsersWithRole(t.Context(), "finance")
	require.NoError(t, err)
	assert.Equal(t, []string{"manager-1"}, members)
}

func TestGetUsersWithRole_UnknownRole(t *testing.T) {
	dir := NewMemory(testSnapshot())

	_, err := dir.GetUsersWithRole(t.Context(), "legal")
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestGetManagerChain(t *testing.T) {
	dir := NewMemory(testSnapshot())

	chain, err := dir.GetManagerChain(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"manager-1", "ceo"}, chain)
}

func TestGetManagerChain_StopsOnCycle(t *testing.T) {
	snapshot := testSnapshot()
	snapshot.Users = append(snapshot.Users,
		&User{ID: "a", ManagerID: "b", Active: true},
		&User{ID: "b", ManagerID: "a", Active: true},
	)
	dir := NewMemory(snapshot)

	chain, err := dir.GetManagerChain(t.Context(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, chain)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")

	data, err := json.Marshal(testSnapshot())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	dir, err := NewFromFile(path)
	require.NoError(t, err)

	user, err := dir.GetUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
}

func TestNewFromFile_MissingFile(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
