package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/beeflow/beeflow/pkg/eventbus"
	"github.com/beeflow/beeflow/pkg/events"
	"github.com/beeflow/beeflow/pkg/forms"
	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/otelhelper"
	"github.com/beeflow/beeflow/pkg/persistence"
	"github.com/beeflow/beeflow/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrInstanceNotFound is returned when an instance is not found.
	ErrInstanceNotFound = persistence.ErrInstanceNotFound

	// ErrTaskNotFound is returned when a task is not found.
	ErrTaskNotFound = persistence.ErrTaskNotFound
)

// ReassignMode selects whether a reassignment adds or replaces assignees.
type ReassignMode string

const (
	ReassignModeAppend  ReassignMode = "append"
	ReassignModeReplace ReassignMode = "replace"
)

// StartWorkflowRequest carries the inputs of a new instance.
type StartWorkflowRequest struct {
	WorkflowID  string `validate:"required"`
	InitiatorID string `validate:"required"`
	Title       string
	FormData    map[string]any
	Variables   map[string]any
	Priority    int
	DueDate     *time.Time
}

// Execution orchestrates the runtime side: starting instances, applying
// decisions, reassigning and commenting tasks, and cancellation. Every write
// goes through conditional repository updates. The service performs no
// retries: the loser of a concurrent update gets the version conflict back
// and is expected to re-fetch and resubmit.
type Execution struct {
	persistence persistence.Persistence
	executor    *workflow.Executor
	eventBus    eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewExecution creates the execution service.
func NewExecution(
	p persistence.Persistence,
	executor *workflow.Executor,
	eb eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Execution {
	return &Execution{
		persistence: p,
		executor:    executor,
		eventBus:    eb,
		tracer:      tracer,
		logger:      logger.With("module", "execution"),
	}
}

// StartWorkflow validates the request against the latest active definition
// and its form, then runs the tree until the first blocking node.
func (e *Execution) StartWorkflow(ctx context.Context, req StartWorkflowRequest) (*models.WorkflowInstance, error) {
	ctx, span := e.startSpan(ctx, "execution.start_workflow",
		attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID),
		attribute.String(otelhelper.UserIDKey, req.InitiatorID),
	)
	defer span.End()

	wf, err := e.persistence.WorkflowRepository().GetByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, e.spanError(span, err)
	}

	if !wf.Active {
		return nil, e.spanError(span, ErrWorkflowInactive)
	}

	if err := e.validateFormData(ctx, wf.ID, req.FormData); err != nil {
		return nil, e.spanError(span, err)
	}

	instance, err := e.executor.Start(ctx, wf, workflow.StartRequest{
		Title:       req.Title,
		InitiatorID: req.InitiatorID,
		FormData:    req.FormData,
		Variables:   req.Variables,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return nil, e.spanError(span, err)
	}

	e.logger.InfoContext(ctx, "workflow instance started",
		"workflow_id", wf.ID, "workflow_version", wf.Version,
		"instance_id", instance.ID, "initiator_id", req.InitiatorID)

	return instance, nil
}

// ApproveTask records an approval from userID on the task. When the task
// resolves APPROVED, execution advances past its node.
func (e *Execution) ApproveTask(ctx context.Context, taskID, userID, comment string) (*models.Task, error) {
	return e.decide(ctx, taskID, userID, models.DecisionApprove, comment)
}

// RejectTask records a rejection. A single rejection resolves the task and
// cascades the whole instance to REJECTED.
func (e *Execution) RejectTask(ctx context.Context, taskID, userID, comment string) (*models.Task, error) {
	return e.decide(ctx, taskID, userID, models.DecisionReject, comment)
}

func (e *Execution) decide(ctx context.Context, taskID, userID string, decision models.Decision, comment string) (*models.Task, error) {
	ctx, span := e.startSpan(ctx, "execution.decide",
		attribute.String(otelhelper.TaskIDKey, taskID),
		attribute.String(otelhelper.UserIDKey, userID),
		attribute.String("beeflow.decision", string(decision)),
	)
	defer span.End()

	task, err := e.persistence.TaskRepository().GetByID(ctx, taskID)
	if err != nil {
		return nil, e.spanError(span, err)
	}

	if task.Type != models.TaskTypeApproval {
		return nil, e.spanError(span, ErrTaskNotApprovable)
	}

	outcome, err := workflow.RecordDecision(task, userID, decision, comment, time.Now().UTC())
	if err != nil {
		return nil, e.spanError(span, err)
	}

	// The conditional update is the CAS that finalizes the task. The loser
	// of a concurrent decision gets the conflict back and never advances
	// the instance.
	if err := e.persistence.TaskRepository().Update(ctx, task); err != nil {
		return nil, e.spanError(span, err)
	}

	if outcome != workflow.TaskOutcomePending {
		if err := e.afterResolution(ctx, task, userID, outcome); err != nil {
			return nil, e.spanError(span, err)
		}
	}

	return task, nil
}

// afterResolution advances or cascades the owning instance once a task left
// PENDING. It runs only from the decision that won the task-finalizing CAS,
// so the instance is advanced at most once per task.
func (e *Execution) afterResolution(ctx context.Context, task *models.Task, userID string, outcome workflow.TaskOutcome) error {
	instance, err := e.persistence.InstanceRepository().GetByID(ctx, task.WorkflowInstanceID)
	if err != nil {
		return err
	}

	if instance.Status.Terminal() {
		return nil
	}

	// Nodes are resolved against the definition version the instance was
	// started with, never the latest one.
	wf, err := e.persistence.WorkflowRepository().GetVersion(ctx, instance.WorkflowID, instance.WorkflowVersion)
	if err != nil {
		return err
	}

	if outcome == workflow.TaskOutcomeApproved {
		err = e.executor.ResumeAfterApproval(ctx, wf, instance, task.NodeName)
	} else {
		err = e.executor.RejectCascade(ctx, instance, task.NodeName, userID)
	}

	if err != nil {
		return err
	}

	if err := e.persistence.InstanceRepository().Update(ctx, instance); err != nil {
		return err
	}

	e.publish(ctx, instance.ID, events.TaskResolved{
		BaseEvent:  events.NewBaseEvent(events.TaskResolvedEvent, instance.WorkflowID),
		InstanceID: instance.ID,
		TaskID:     task.ID,
		NodeName:   task.NodeName,
		Status:     task.Status,
		DecidedBy:  userID,
	})

	return nil
}

// AddTaskComment appends a remark to a task. Comments are allowed on
// resolved tasks too.
func (e *Execution) AddTaskComment(ctx context.Context, taskID, userID, content string) (*models.Task, error) {
	if content == "" {
		return nil, ErrInvalidRequest
	}

	task, err := e.persistence.TaskRepository().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	workflow.AddComment(task, userID, content, time.Now().UTC())

	if err := e.persistence.TaskRepository().Update(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// ReassignTask adds newUserID as an assignee, or replaces the open assignee
// entries with them, depending on mode.
func (e *Execution) ReassignTask(ctx context.Context, taskID, newUserID, byUserID string, mode ReassignMode) (*models.Task, error) {
	ctx, span := e.startSpan(ctx, "execution.reassign_task",
		attribute.String(otelhelper.TaskIDKey, taskID),
		attribute.String(otelhelper.UserIDKey, newUserID),
	)
	defer span.End()

	if mode != ReassignModeAppend && mode != ReassignModeReplace {
		return nil, e.spanError(span, ErrInvalidRequest)
	}

	task, err := e.persistence.TaskRepository().GetByID(ctx, taskID)
	if err != nil {
		return nil, e.spanError(span, err)
	}

	now := time.Now().UTC()
	if mode == ReassignModeReplace {
		err = workflow.ReplaceAssignees(task, newUserID, byUserID, now)
	} else {
		err = workflow.AddAssignee(task, newUserID, byUserID, now)
	}

	if err != nil {
		return nil, e.spanError(span, err)
	}

	if err := e.persistence.TaskRepository().Update(ctx, task); err != nil {
		return nil, e.spanError(span, err)
	}

	e.publish(ctx, task.WorkflowInstanceID, events.TaskReassigned{
		BaseEvent:    events.NewBaseEvent(events.TaskReassignedEvent, task.WorkflowID),
		InstanceID:   task.WorkflowInstanceID,
		TaskID:       task.ID,
		NewAssignee:  newUserID,
		ReassignedBy: byUserID,
		Replace:      mode == ReassignModeReplace,
	})

	return task, nil
}

// CancelInstance cancels a running instance. Only the initiator may cancel,
// and only when the definition allows it.
func (e *Execution) CancelInstance(ctx context.Context, instanceID, userID, reason string) (*models.WorkflowInstance, error) {
	ctx, span := e.startSpan(ctx, "execution.cancel_instance",
		attribute.String(otelhelper.InstanceIDKey, instanceID),
		attribute.String(otelhelper.UserIDKey, userID),
	)
	defer span.End()

	instance, err := e.persistence.InstanceRepository().GetByID(ctx, instanceID)
	if err != nil {
		return nil, e.spanError(span, err)
	}

	if instance.InitiatorID != userID {
		return nil, e.spanError(span, workflow.ErrNotPermitted)
	}

	wf, err := e.persistence.WorkflowRepository().GetVersion(ctx, instance.WorkflowID, instance.WorkflowVersion)
	if err != nil {
		return nil, e.spanError(span, err)
	}

	if !wf.Cancelable {
		return nil, e.spanError(span, ErrNotCancelable)
	}

	if err := e.executor.Cancel(ctx, instance, userID, reason); err != nil {
		return nil, e.spanError(span, err)
	}

	e.logger.InfoContext(ctx, "workflow instance canceled",
		"instance_id", instanceID, "canceled_by", userID)

	return instance, nil
}

// GetInstanceByID retrieves one instance.
func (e *Execution) GetInstanceByID(ctx context.Context, instanceID string) (*models.WorkflowInstance, error) {
	return e.persistence.InstanceRepository().GetByID(ctx, instanceID)
}

// GetUserInstances lists the instances a user initiated, newest first.
func (e *Execution) GetUserInstances(ctx context.Context, userID string) ([]*models.WorkflowInstance, error) {
	return e.persistence.InstanceRepository().ListByInitiator(ctx, userID)
}

// GetTasks lists every task of an instance.
func (e *Execution) GetTasks(ctx context.Context, instanceID string) ([]*models.Task, error) {
	if _, err := e.persistence.InstanceRepository().GetByID(ctx, instanceID); err != nil {
		return nil, err
	}

	return e.persistence.TaskRepository().ListByInstance(ctx, instanceID)
}

// GetUserTasks lists the pending tasks waiting on a user, the aggregate
// to-do view across all instances.
func (e *Execution) GetUserTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	return e.persistence.TaskRepository().ListPendingByUser(ctx, userID)
}

// validateFormData checks submitted data against the workflow's active form.
// A workflow without a form accepts any data.
func (e *Execution) validateFormData(ctx context.Context, workflowID string, data map[string]any) error {
	form, err := e.persistence.FormRepository().GetByWorkflow(ctx, workflowID)
	if err != nil {
		if errors.Is(err, persistence.ErrFormNotFound) {
			return nil
		}

		return err
	}

	return forms.ValidateData(form, data)
}

func (e *Execution) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if e.tracer == nil {
		return trace.ContextWithSpan(ctx, trace.SpanFromContext(ctx)), trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, e.tracer, name, attrs...)
}

func (e *Execution) spanError(span trace.Span, err error) error {
	otelhelper.SetError(span, err)

	return err
}

func (e *Execution) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
