// Package events defines event types for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Kafka topic carrying all lifecycle events.
const Topic = "beeflow.events"

// Redis stream carrying overdue-task reminders.
const ReminderStream = "beeflow.reminders"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Instance lifecycle events.
	InstanceStartedEvent   EventType = "instance.started"
	InstanceCompletedEvent EventType = "instance.completed"
	InstanceRejectedEvent  EventType = "instance.rejected"
	InstanceCanceledEvent  EventType = "instance.canceled"

	// Task lifecycle events.
	TaskCreatedEvent    EventType = "task.created"
	TaskResolvedEvent   EventType = "task.resolved"
	TaskReassignedEvent EventType = "task.reassigned"
	TaskOverdueEvent    EventType = "task.overdue"

	// Copy delivery is notify-only and never blocks execution.
	CopyDeliveredEvent EventType = "copy.delivered"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type InstanceStarted struct {
	BaseEvent

	InstanceID      string `json:"instance_id"`
	WorkflowVersion int    `json:"workflow_version"`
	InitiatorID     string `json:"initiator_id"`
	Title           string `json:"title"`
}

func (e InstanceStarted) GetType() EventType {
	return InstanceStartedEvent
}

type InstanceCompleted struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	DurationMs int64  `json:"duration_ms"`
}

func (e InstanceCompleted) GetType() EventType {
	return InstanceCompletedEvent
}

type InstanceRejected struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	NodeName   string `json:"node_name"`
	RejectedBy string `json:"rejected_by"`
}

func (e InstanceRejected) GetType() EventType {
	return InstanceRejectedEvent
}

type InstanceCanceled struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	CanceledBy string `json:"canceled_by"`
	Reason     string `json:"reason,omitempty"`
}

func (e InstanceCanceled) GetType() EventType {
	return InstanceCanceledEvent
}

type TaskCreated struct {
	BaseEvent

	InstanceID string          `json:"instance_id"`
	TaskID     string          `json:"task_id"`
	NodeName   string          `json:"node_name"`
	TaskType   models.TaskType `json:"task_type"`
	Assignees  []string        `json:"assignees"`
}

func (e TaskCreated) GetType() EventType {
	return TaskCreatedEvent
}

type TaskResolved struct {
	BaseEvent

	InstanceID string            `json:"instance_id"`
	TaskID     string            `json:"task_id"`
	NodeName   string            `json:"node_name"`
	Status     models.TaskStatus `json:"status"`
	DecidedBy  string            `json:"decided_by"`
}

func (e TaskResolved) GetType() EventType {
	return TaskResolvedEvent
}

type TaskReassigned struct {
	BaseEvent

	InstanceID   string `json:"instance_id"`
	TaskID       string `json:"task_id"`
	NewAssignee  string `json:"new_assignee"`
	ReassignedBy string `json:"reassigned_by"`
	Replace      bool   `json:"replace"`
}

func (e TaskReassigned) GetType() EventType {
	return TaskReassignedEvent
}

type TaskOverdue struct {
	BaseEvent

	InstanceID string    `json:"instance_id"`
	TaskID     string    `json:"task_id"`
	NodeName   string    `json:"node_name"`
	DueDate    time.Time `json:"due_date"`
	Assignees  []string  `json:"assignees"`
}

func (e TaskOverdue) GetType() EventType {
	return TaskOverdueEvent
}

type CopyDelivered struct {
	BaseEvent

	InstanceID string   `json:"instance_id"`
	TaskID     string   `json:"task_id"`
	NodeName   string   `json:"node_name"`
	Recipients []string `json:"recipients"`
}

func (e CopyDelivered) GetType() EventType {
	return CopyDeliveredEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
