package workflow

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/beeflow/beeflow/pkg/eventbus"
	"github.com/beeflow/beeflow/pkg/events"
	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
	"github.com/google/uuid"
)

// StartRequest carries the initiator-provided inputs of a new instance.
type StartRequest struct {
	Title       string
	InitiatorID string
	FormData    map[string]any
	Variables   map[string]any
	Priority    int
	DueDate     *time.Time
}

// Executor drives the instance state machine: it walks the pinned definition
// tree, creates tasks at approval and copy nodes, evaluates condition gates
// and router branches, and moves instances into their terminal states.
//
// The executor mutates the instance in memory and persists it with
// conditional updates; a lost race surfaces as ErrVersionConflict to the
// caller.
type Executor struct {
	persistence persistence.Persistence
	resolver    *Resolver
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
}

func NewExecutor(p persistence.Persistence, resolver *Resolver, eb eventbus.EventPublisher, logger *slog.Logger) *Executor {
	return &Executor{
		persistence: p,
		resolver:    resolver,
		eventBus:    eb,
		logger:      logger.With("module", "executor"),
	}
}

// Start creates a RUNNING instance pinned to the definition's version and
// walks the tree from the root until the first blocking node or a terminal
// state. The initiator node itself holds no task; it only records history.
func (e *Executor) Start(ctx context.Context, workflow *models.Workflow, req StartRequest) (*models.WorkflowInstance, error) {
	if !workflow.Permission.Allows(req.InitiatorID) {
		return nil, ErrNotPermitted
	}

	now := time.Now().UTC()
	completed := now
	instance := &models.WorkflowInstance{
		ID:              uuid.New().String(),
		WorkflowID:      workflow.ID,
		WorkflowVersion: workflow.Version,
		Title:           req.Title,
		Status:          models.InstanceStatusRunning,
		InitiatorID:     req.InitiatorID,
		CurrentNodeName: workflow.RootNode.Name,
		NodeHistory: []models.NodeExecution{{
			NodeName:    workflow.RootNode.Name,
			Type:        models.NodeTypeInitiator,
			StartedAt:   now,
			CompletedAt: &completed,
		}},
		FormData:  req.FormData,
		Variables: req.Variables,
		Priority:  req.Priority,
		DueDate:   req.DueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.persistence.InstanceRepository().Create(ctx, instance); err != nil {
		return nil, err
	}

	e.publish(ctx, instance.ID, events.InstanceStarted{
		BaseEvent:       events.NewBaseEvent(events.InstanceStartedEvent, workflow.ID),
		InstanceID:      instance.ID,
		WorkflowVersion: workflow.Version,
		InitiatorID:     req.InitiatorID,
		Title:           req.Title,
	})

	if err := e.advance(ctx, workflow, instance, workflow.RootNode.ChildNode); err != nil {
		return nil, err
	}

	if err := e.persistence.InstanceRepository().Update(ctx, instance); err != nil {
		return nil, err
	}

	return instance, nil
}

// ResumeAfterApproval continues the walk once the task at nodeName resolved
// APPROVED. The caller persists the instance afterwards.
func (e *Executor) ResumeAfterApproval(ctx context.Context, workflow *models.Workflow, instance *models.WorkflowInstance, nodeName string) error {
	if instance.Status.Terminal() {
		return ErrInvalidState
	}

	node := workflow.RootNode.FindByName(nodeName)
	if node == nil {
		err := &CorruptStateError{InstanceID: instance.ID, NodeName: nodeName}
		e.logger.ErrorContext(ctx, "definition version no longer contains active node",
			"instance_id", instance.ID, "node_name", nodeName)

		return err
	}

	e.completeHistory(instance, nodeName)

	return e.advance(ctx, workflow, instance, node.ChildNode)
}

// RejectCascade moves the instance to REJECTED after a task resolved
// REJECTED and cancels every other still-pending task of the instance. The
// caller persists the instance afterwards.
func (e *Executor) RejectCascade(ctx context.Context, instance *models.WorkflowInstance, nodeName, rejectedBy string) error {
	if instance.Status.Terminal() {
		return ErrInvalidState
	}

	now := time.Now().UTC()
	instance.Status = models.InstanceStatusRejected
	instance.UpdatedAt = now
	e.completeHistory(instance, nodeName)

	if err := e.cancelPendingTasks(ctx, instance.ID, rejectedBy, "instance rejected"); err != nil {
		return err
	}

	e.publish(ctx, instance.ID, events.InstanceRejected{
		BaseEvent:  events.NewBaseEvent(events.InstanceRejectedEvent, instance.WorkflowID),
		InstanceID: instance.ID,
		NodeName:   nodeName,
		RejectedBy: rejectedBy,
	})

	return nil
}

// Cancel moves a running instance to CANCELED and cancels its pending tasks.
// The caller checks who is allowed to cancel; the executor only enforces the
// state machine.
func (e *Executor) Cancel(ctx context.Context, instance *models.WorkflowInstance, canceledBy, reason string) error {
	if instance.Status.Terminal() {
		return ErrInvalidState
	}

	instance.Status = models.InstanceStatusCanceled
	instance.UpdatedAt = time.Now().UTC()

	if err := e.persistence.InstanceRepository().Update(ctx, instance); err != nil {
		return err
	}

	if err := e.cancelPendingTasks(ctx, instance.ID, canceledBy, "instance canceled"); err != nil {
		return err
	}

	e.publish(ctx, instance.ID, events.InstanceCanceled{
		BaseEvent:  events.NewBaseEvent(events.InstanceCanceledEvent, instance.WorkflowID),
		InstanceID: instance.ID,
		CanceledBy: canceledBy,
		Reason:     reason,
	})

	return nil
}

// advance walks node chains until it blocks at an approval node or reaches a
// terminal state. It mutates the instance in memory only; the caller persists.
func (e *Executor) advance(ctx context.Context, workflow *models.Workflow, instance *models.WorkflowInstance, node *models.Node) error {
	for node != nil {
		now := time.Now().UTC()

		switch node.Type {
		case models.NodeTypeInitiator:
			// Only valid at the root; mid-tree it is a plain pass-through.
			completed := now
			e.appendHistory(instance, node, now, &completed)
			node = node.ChildNode

		case models.NodeTypeApproval:
			e.appendHistory(instance, node, now, nil)
			instance.CurrentNodeName = node.Name
			instance.UpdatedAt = now

			return e.createApprovalTask(ctx, instance, node)

		case models.NodeTypeCopy:
			completed := now
			e.appendHistory(instance, node, now, &completed)

			if err := e.createCopyTask(ctx, instance, node); err != nil {
				return err
			}

			node = node.ChildNode

		case models.NodeTypeCondition:
			completed := now
			e.appendHistory(instance, node, now, &completed)

			if !models.MatchesAnyGroup(node.ConditionGroups, instance.EvaluationContext()) {
				// A failed gate ends the flow without rejection.
				e.complete(ctx, instance, node.Name)

				return nil
			}

			node = node.ChildNode

		case models.NodeTypeRouter:
			completed := now
			e.appendHistory(instance, node, now, &completed)

			branch := pickBranch(node, instance.EvaluationContext())
			if branch == nil {
				e.logger.WarnContext(ctx, "no router branch matched",
					"instance_id", instance.ID, "node_name", node.Name)

				return ErrNoRouteMatched
			}

			node = branch
		}
	}

	e.complete(ctx, instance, instance.CurrentNodeName)

	return nil
}

// pickBranch returns the matching branch with the lowest priority level, or
// nil when none matches.
func pickBranch(router *models.Node, vars map[string]any) *models.Node {
	branches := make([]*models.Node, len(router.ConditionNodes))
	copy(branches, router.ConditionNodes)
	sort.SliceStable(branches, func(i, j int) bool {
		return branches[i].PriorityLevel < branches[j].PriorityLevel
	})

	for _, branch := range branches {
		if models.MatchesAnyGroup(branch.ConditionGroups, vars) {
			return branch
		}
	}

	return nil
}

func (e *Executor) createApprovalTask(ctx context.Context, instance *models.WorkflowInstance, node *models.Node) error {
	assignees, err := e.resolver.ResolveAll(ctx, node.Assignees, ResolutionContext{InitiatorID: instance.InitiatorID})
	if err != nil {
		return err
	}

	if len(assignees) == 0 {
		return &ResolutionError{
			AssigneeType: models.AssigneeTypeSpecificUsers,
			ReferenceID:  node.Name,
			Reason:       "node resolved to no assignees",
		}
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:                 uuid.New().String(),
		WorkflowID:         instance.WorkflowID,
		WorkflowInstanceID: instance.ID,
		NodeName:           node.Name,
		Type:               models.TaskTypeApproval,
		Status:             models.TaskStatusPending,
		ApprovalMode:       node.EffectiveApprovalMode(),
		Title:              instance.Title,
		Assignees:          assignees,
		Priority:           instance.Priority,
		DueDate:            instance.DueDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := e.persistence.TaskRepository().Create(ctx, task); err != nil {
		return err
	}

	e.publish(ctx, instance.ID, events.TaskCreated{
		BaseEvent:  events.NewBaseEvent(events.TaskCreatedEvent, instance.WorkflowID),
		InstanceID: instance.ID,
		TaskID:     task.ID,
		NodeName:   node.Name,
		TaskType:   models.TaskTypeApproval,
		Assignees:  assigneeIDs(assignees),
	})

	return nil
}

// createCopyTask records a notify-only task. Copy tasks are born APPROVED
// and never block the walk; delivery is announced on the event bus.
func (e *Executor) createCopyTask(ctx context.Context, instance *models.WorkflowInstance, node *models.Node) error {
	recipients, err := e.resolver.ResolveAll(ctx, node.CCs, ResolutionContext{InitiatorID: instance.InitiatorID})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := range recipients {
		recipients[i].Status = models.TaskStatusApproved
		recipients[i].HandledAt = &now
	}

	task := &models.Task{
		ID:                 uuid.New().String(),
		WorkflowID:         instance.WorkflowID,
		WorkflowInstanceID: instance.ID,
		NodeName:           node.Name,
		Type:               models.TaskTypeCopy,
		Status:             models.TaskStatusApproved,
		Title:              instance.Title,
		Assignees:          recipients,
		Priority:           instance.Priority,
		DueDate:            instance.DueDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := e.persistence.TaskRepository().Create(ctx, task); err != nil {
		return err
	}

	e.publish(ctx, instance.ID, events.CopyDelivered{
		BaseEvent:  events.NewBaseEvent(events.CopyDeliveredEvent, instance.WorkflowID),
		InstanceID: instance.ID,
		TaskID:     task.ID,
		NodeName:   node.Name,
		Recipients: assigneeIDs(recipients),
	})

	return nil
}

func (e *Executor) complete(ctx context.Context, instance *models.WorkflowInstance, nodeName string) {
	now := time.Now().UTC()
	instance.Status = models.InstanceStatusCompleted
	instance.CurrentNodeName = nodeName
	instance.UpdatedAt = now

	e.publish(ctx, instance.ID, events.InstanceCompleted{
		BaseEvent:  events.NewBaseEvent(events.InstanceCompletedEvent, instance.WorkflowID),
		InstanceID: instance.ID,
		DurationMs: now.Sub(instance.CreatedAt).Milliseconds(),
	})
}

// cancelPendingTasks fans a cancellation out over the instance's open tasks.
// Each task is canceled with its own conditional update; a conflict means a
// concurrent decision won, so the task is reloaded and retried once.
func (e *Executor) cancelPendingTasks(ctx context.Context, instanceID, byUser, reason string) error {
	tasks, err := e.persistence.TaskRepository().ListPendingByInstance(ctx, instanceID)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if err := e.cancelTask(ctx, task, byUser, reason); err != nil {
			if persistence.IsVersionConflict(err) {
				reloaded, getErr := e.persistence.TaskRepository().GetByID(ctx, task.ID)
				if getErr != nil {
					return getErr
				}

				if reloaded.Status != models.TaskStatusPending {
					continue
				}

				if err := e.cancelTask(ctx, reloaded, byUser, reason); err != nil {
					return err
				}

				continue
			}

			return err
		}
	}

	return nil
}

func (e *Executor) cancelTask(ctx context.Context, task *models.Task, byUser, reason string) error {
	now := time.Now().UTC()
	task.Status = models.TaskStatusCanceled

	for i := range task.Assignees {
		if task.Assignees[i].Status == models.TaskStatusPending {
			task.Assignees[i].Status = models.TaskStatusCanceled
			task.Assignees[i].HandledAt = &now
		}
	}

	task.Comments = append(task.Comments, models.TaskComment{
		UserID:    byUser,
		Content:   reason,
		CreatedAt: now,
	})
	task.UpdatedAt = now

	return e.persistence.TaskRepository().Update(ctx, task)
}

func (e *Executor) appendHistory(instance *models.WorkflowInstance, node *models.Node, startedAt time.Time, completedAt *time.Time) {
	instance.NodeHistory = append(instance.NodeHistory, models.NodeExecution{
		NodeName:    node.Name,
		Type:        node.Type,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	})
}

// completeHistory stamps the newest open history entry for nodeName.
func (e *Executor) completeHistory(instance *models.WorkflowInstance, nodeName string) {
	now := time.Now().UTC()

	for i := len(instance.NodeHistory) - 1; i >= 0; i-- {
		if instance.NodeHistory[i].NodeName == nodeName && instance.NodeHistory[i].CompletedAt == nil {
			instance.NodeHistory[i].CompletedAt = &now

			return
		}
	}
}

// publish never fails the state machine; a lost notification is logged and
// tolerated.
func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func assigneeIDs(assignees []models.TaskAssignee) []string {
	ids := make([]string, len(assignees))
	for i, a := range assignees {
		ids[i] = a.UserID
	}

	return ids
}
