package workflow

import (
	"log/slog"
	"testing"
	"time"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence/file"
	"github.com/beeflow/beeflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) (*Executor, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	executor := NewExecutor(p, NewResolver(testutil.CreateTestDirectory()), nil, slog.New(slog.DiscardHandler))

	return executor, p
}

func approvalChain(names ...string) *models.Node {
	var child *models.Node
	for i := len(names) - 1; i >= 0; i-- {
		child = testutil.CreateTestNode(
			testutil.WithName(names[i]),
			testutil.WithAssignees(testutil.SingleUser("manager-1")),
			testutil.WithChild(child),
		)
	}

	return child
}

func TestExecutor_Start_BlocksAtFirstApproval(t *testing.T) {
	executor, p := newTestExecutor(t)
	workflow := testutil.CreateTestWorkflow(approvalChain("first-approval", "second-approval"))

	instance, err := executor.Start(t.Context(), workflow, StartRequest{
		Title:       "expense report",
		InitiatorID: "user-1",
		FormData:    map[string]any{"amount": 120},
	})
	require.NoError(t, err)

	assert.Equal(t, models.InstanceStatusRunning, instance.Status)
	assert.Equal(t, "first-approval", instance.CurrentNodeName)
	assert.Equal(t, workflow.Version, instance.WorkflowVersion)

	tasks, err := p.TaskRepository().ListPendingByInstance(t.Context(), instance.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "first-approval", tasks[0].NodeName)
	assert.Equal(t, models.TaskStatusPending, tasks[0].Status)
	require.Len(t, tasks[0].Assignees, 1)
	assert.Equal(t, "manager-1", tasks[0].Assignees[0].UserID)
}

func TestExecutor_Start_PermissionDenied(t *testing.T) {
	executor, _ := newTestExecutor(t)
	workflow := testutil.CreateTestWorkflow(
		approvalChain("approval"),
		testutil.WithPermission(models.FlowPermission{
			Type:         models.FlowPermissionSpecific,
			InitiatorIDs: []string{"user-2"},
		}),
	)

	_, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestExecutor_Start_EmptyTreeCompletesImmediately(t *testing.T) {
	executor, _ := newTestExecutor(t)
	workflow := testutil.CreateTestWorkflow(nil)

	instance, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
}

func TestExecutor_Start_CopyNodeNeverBlocks(t *testing.T) {
	executor, p := newTestExecutor(t)
	copyNode := testutil.CreateTestNode(
		testutil.WithName("notify-finance"),
		testutil.WithType(models.NodeTypeCopy),
		testutil.WithCCs(testutil.SingleUser("user-2")),
		testutil.WithChild(approvalChain("approval")),
	)
	workflow := testutil.CreateTestWorkflow(copyNode)

	instance, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "approval", instance.CurrentNodeName)

	tasks, err := p.TaskRepository().ListByInstance(t.Context(), instance.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	var copyTask *models.Task
	for _, task := range tasks {
		if task.Type == models.TaskTypeCopy {
			copyTask = task
		}
	}

	require.NotNil(t, copyTask)
	assert.Equal(t, models.TaskStatusApproved, copyTask.Status)
	require.Len(t, copyTask.Assignees, 1)
	assert.Equal(t, models.TaskStatusApproved, copyTask.Assignees[0].Status)
}

func TestExecutor_Start_ConditionGatePasses(t *testing.T) {
	executor, _ := newTestExecutor(t)
	gate := testutil.CreateTestNode(
		testutil.WithName("amount-gate"),
		testutil.WithType(models.NodeTypeCondition),
		testutil.WithConditionGroups(testutil.EqualsCondition("amount", 100)),
		testutil.WithChild(approvalChain("approval")),
	)
	workflow := testutil.CreateTestWorkflow(gate)

	instance, err := executor.Start(t.Context(), workflow, StartRequest{
		InitiatorID: "user-1",
		FormData:    map[string]any{"amount": float64(100)},
	})
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusRunning, instance.Status)
	assert.Equal(t, "approval", instance.CurrentNodeName)
}

func TestExecutor_Start_ConditionGateFailsCompletesInstance(t *testing.T) {
	executor, p := newTestExecutor(t)
	gate := testutil.CreateTestNode(
		testutil.WithName("amount-gate"),
		testutil.WithType(models.NodeTypeCondition),
		testutil.WithConditionGroups(testutil.EqualsCondition("amount", 100)),
		testutil.WithChild(approvalChain("approval")),
	)
	workflow := testutil.CreateTestWorkflow(gate)

	instance, err := executor.Start(t.Context(), workflow, StartRequest{
		InitiatorID: "user-1",
		FormData:    map[string]any{"amount": float64(5)},
	})
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)

	tasks, err := p.TaskRepository().ListByInstance(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestExecutor_Start_RouterPicksLowestPriorityMatch(t *testing.T) {
	executor, _ := newTestExecutor(t)
	// Both branches match; priority decides.
	branchHigh := testutil.CreateTestNode(
		testutil.WithName("branch-high"),
		testutil.WithType(models.NodeTypeCondition),
		testutil.WithConditionGroups(testutil.EqualsCondition("kind", "x")),
		testutil.WithPriority(2),
		testutil.WithChild(approvalChain("high-approval")),
	)
	branchLow := testutil.CreateTestNode(
		testutil.WithName("branch-low"),
		testutil.WithType(models.NodeTypeCondition),
		testutil.WithConditionGroups(testutil.EqualsCondition("kind", "x")),
		testutil.WithPriority(1),
		testutil.WithChild(approvalChain("low-approval")),
	)
	router := testutil.CreateTestNode(
		testutil.WithName("route"),
		testutil.WithType(models.NodeTypeRouter),
		testutil.WithBranches(branchHigh, branchLow),
	)
	workflow := testutil.CreateTestWorkflow(router)

	instance, err := executor.Start(t.Context(), workflow, StartRequest{
		InitiatorID: "user-1",
		Variables:   map[string]any{"kind": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "low-approval", instance.CurrentNodeName)
}

func TestExecutor_Start_RouterNoMatch(t *testing.T) {
	executor, _ := newTestExecutor(t)
	branch := testutil.CreateTestNode(
		testutil.WithName("branch-a"),
		testutil.WithType(models.NodeTypeCondition),
		testutil.WithConditionGroups(testutil.EqualsCondition("kind", "a")),
		testutil.WithPriority(1),
	)
	router := testutil.CreateTestNode(
		testutil.WithName("route"),
		testutil.WithType(models.NodeTypeRouter),
		testutil.WithBranches(branch),
	)
	workflow := testutil.CreateTestWorkflow(router)

	_, err := executor.Start(t.Context(), workflow, StartRequest{
		InitiatorID: "user-1",
		Variables:   map[string]any{"kind": "z"},
	})
	assert.ErrorIs(t, err, ErrNoRouteMatched)
}

func TestExecutor_ResumeAfterApproval_AdvancesToNextNode(t *testing.T) {
	executor, p := newTestExecutor(t)
	workflow := testutil.CreateTestWorkflow(approvalChain("first-approval", "second-approval"))

	instance, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, executor.ResumeAfterApproval(t.Context(), workflow, instance, "first-approval"))
	require.NoError(t, p.InstanceRepository().Update(t.Context(), instance))

	assert.Equal(t, models.InstanceStatusRunning, instance.Status)
	assert.Equal(t, "second-approval", instance.CurrentNodeName)

	tasks, err := p.TaskRepository().ListPendingByInstance(t.Context(), instance.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "second-approval", tasks[0].NodeName)
}

func TestExecutor_ResumeAfterApproval_LastNodeCompletes(t *testing.T) {
	executor, _ := newTestExecutor(t)
	workflow := testutil.CreateTestWorkflow(approvalChain("only-approval"))

	instance, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, executor.ResumeAfterApproval(t.Context(), workflow, instance, "only-approval"))
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)

	// Every history entry is closed.
	for _, entry := range instance.NodeHistory {
		assert.NotNil(t, entry.CompletedAt, entry.NodeName)
	}
}

func TestExecutor_ResumeAfterApproval_DanglingNode(t *testing.T) {
	executor, _ := newTestExecutor(t)
	workflow := testutil.CreateTestWorkflow(approvalChain("approval"))

	instance, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	require.NoError(t, err)

	err = executor.ResumeAfterApproval(t.Context(), workflow, instance, "renamed-away")
	require.Error(t, err)
	assert.True(t, IsCorruptStateError(err))
}

func TestExecutor_RejectCascade_CancelsOpenTasks(t *testing.T) {
	executor, p := newTestExecutor(t)
	workflow := testutil.CreateTestWorkflow(approvalChain("approval"))

	instance, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, executor.RejectCascade(t.Context(), instance, "approval", "manager-1"))
	require.NoError(t, p.InstanceRepository().Update(t.Context(), instance))

	assert.Equal(t, models.InstanceStatusRejected, instance.Status)

	pending, err := p.TaskRepository().ListPendingByInstance(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestExecutor_Cancel(t *testing.T) {
	executor, p := newTestExecutor(t)
	workflow := testutil.CreateTestWorkflow(approvalChain("approval"), testutil.WithCancelable())

	instance, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, executor.Cancel(t.Context(), instance, "user-1", "changed my mind"))
	assert.Equal(t, models.InstanceStatusCanceled, instance.Status)

	tasks, err := p.TaskRepository().ListByInstance(t.Context(), instance.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskStatusCanceled, tasks[0].Status)
	require.NotEmpty(t, tasks[0].Comments)
	assert.Equal(t, "changed my mind", tasks[0].Comments[0].Content)
}

func TestExecutor_Cancel_TerminalInstance(t *testing.T) {
	executor, _ := newTestExecutor(t)
	workflow := testutil.CreateTestWorkflow(nil)

	instance, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, models.InstanceStatusCompleted, instance.Status)

	assert.ErrorIs(t, executor.Cancel(t.Context(), instance, "user-1", ""), ErrInvalidState)
}

func TestExecutor_Start_RecordsNodeHistory(t *testing.T) {
	executor, _ := newTestExecutor(t)
	copyNode := testutil.CreateTestNode(
		testutil.WithName("notify"),
		testutil.WithType(models.NodeTypeCopy),
		testutil.WithCCs(testutil.SingleUser("user-2")),
		testutil.WithChild(approvalChain("approval")),
	)
	workflow := testutil.CreateTestWorkflow(copyNode)

	instance, err := executor.Start(t.Context(), workflow, StartRequest{InitiatorID: "user-1"})
	require.NoError(t, err)

	names := make([]string, len(instance.NodeHistory))
	for i, entry := range instance.NodeHistory {
		names[i] = entry.NodeName
	}

	assert.Equal(t, []string{"start", "notify", "approval"}, names)
	// The blocking approval entry is still open.
	assert.Nil(t, instance.NodeHistory[2].CompletedAt)
	assert.WithinDuration(t, time.Now(), instance.NodeHistory[0].StartedAt, time.Minute)
}
