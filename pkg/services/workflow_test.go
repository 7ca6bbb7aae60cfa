package services

import (
	"testing"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence/file"
	"github.com/beeflow/beeflow/pkg/testutil"
	workfloweng "github.com/beeflow/beeflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflowService(t *testing.T) (*Workflow, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return NewWorkflow(p), p
}

func TestWorkflowService_Create(t *testing.T) {
	service, _ := newWorkflowService(t)
	wf := testutil.CreateTestWorkflow(testutil.CreateTestNode(
		testutil.WithName("approval"),
		testutil.WithAssignees(testutil.SingleUser("user-1")),
	))

	created, err := service.Create(t.Context(), wf)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestWorkflowService_Create_InvalidTree(t *testing.T) {
	service, _ := newWorkflowService(t)
	wf := testutil.CreateTestWorkflow(testutil.CreateTestNode(
		testutil.WithName("approval"),
		testutil.WithAssignees(),
	))

	_, err := service.Create(t.Context(), wf)
	require.Error(t, err)
	assert.True(t, workfloweng.IsValidationError(err))
}

func TestWorkflowService_Create_NameTooShort(t *testing.T) {
	service, _ := newWorkflowService(t)
	wf := testutil.CreateTestWorkflow(testutil.CreateTestNode(
		testutil.WithName("approval"),
		testutil.WithAssignees(testutil.SingleUser("user-1")),
	))
	wf.Name = "ab"

	_, err := service.Create(t.Context(), wf)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestWorkflowService_Update_WritesNewVersion(t *testing.T) {
	service, _ := newWorkflowService(t)
	wf := testutil.CreateTestWorkflow(testutil.CreateTestNode(
		testutil.WithName("approval"),
		testutil.WithAssignees(testutil.SingleUser("user-1")),
	))

	created, err := service.Create(t.Context(), wf)
	require.NoError(t, err)

	changed := testutil.CreateTestWorkflow(testutil.CreateTestNode(
		testutil.WithName("stricter-approval"),
		testutil.WithAssignees(testutil.SingleUser("manager-1")),
	))

	updated, err := service.Update(t.Context(), created.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 2, updated.Version)

	// The old snapshot is still retrievable.
	v1, err := service.FetchVersion(t.Context(), created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "approval", v1.RootNode.ChildNode.Name)

	latest, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
}

func TestWorkflowService_Update_NotFound(t *testing.T) {
	service, _ := newWorkflowService(t)
	wf := testutil.CreateTestWorkflow(testutil.CreateTestNode(
		testutil.WithName("approval"),
		testutil.WithAssignees(testutil.SingleUser("user-1")),
	))

	_, err := service.Update(t.Context(), "missing", wf)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflowService_Delete(t *testing.T) {
	service, _ := newWorkflowService(t)
	wf := testutil.CreateTestWorkflow(testutil.CreateTestNode(
		testutil.WithName("approval"),
		testutil.WithAssignees(testutil.SingleUser("user-1")),
	))

	created, err := service.Create(t.Context(), wf)
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	_, err = service.FetchByID(t.Context(), created.ID)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflowService_List(t *testing.T) {
	service, _ := newWorkflowService(t)

	for range 3 {
		wf := testutil.CreateTestWorkflow(testutil.CreateTestNode(
			testutil.WithName("approval"),
			testutil.WithAssignees(testutil.SingleUser("user-1")),
		))
		_, err := service.Create(t.Context(), wf)
		require.NoError(t, err)
	}

	workflows, err := service.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, workflows, 3)
}

func TestFormService_CreateAndFetch(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	wfService := NewWorkflow(p)
	formService := NewForm(p)

	wf, err := wfService.Create(t.Context(), testutil.CreateTestWorkflow(testutil.CreateTestNode(
		testutil.WithName("approval"),
		testutil.WithAssignees(testutil.SingleUser("user-1")),
	)))
	require.NoError(t, err)

	form, err := formService.Create(t.Context(), &models.Form{
		Name:       "Expense",
		WorkflowID: wf.ID,
		Fields: []models.FormField{
			{Name: "amount", Label: "Amount", Type: models.FieldTypeNumber, Required: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, form.Version)
	assert.True(t, form.Active)

	fetched, err := formService.FetchByWorkflow(t.Context(), wf.ID)
	require.NoError(t, err)
	assert.Equal(t, form.ID, fetched.ID)
}

func TestFormService_Create_UnknownWorkflow(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	formService := NewForm(p)

	_, err := formService.Create(t.Context(), &models.Form{
		Name:       "Expense",
		WorkflowID: "missing",
		Fields: []models.FormField{
			{Name: "amount", Label: "Amount", Type: models.FieldTypeNumber},
		},
	})
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestFormService_Create_InvalidSchema(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	wfService := NewWorkflow(p)
	formService := NewForm(p)

	wf, err := wfService.Create(t.Context(), testutil.CreateTestWorkflow(testutil.CreateTestNode(
		testutil.WithName("approval"),
		testutil.WithAssignees(testutil.SingleUser("user-1")),
	)))
	require.NoError(t, err)

	_, err = formService.Create(t.Context(), &models.Form{
		Name:       "Broken",
		WorkflowID: wf.ID,
		Fields: []models.FormField{
			{Name: "pick one", Label: "Pick", Type: models.FieldTypeSingleChoice, Options: []string{"a"}},
		},
	})
	assert.Error(t, err)
}
