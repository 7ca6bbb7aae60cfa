// Package reminder provides the overdue-task scanner. On a cron schedule it
// looks for pending tasks whose due date has passed and pushes a reminder
// entry onto a Redis stream for downstream notification consumers.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/beeflow/beeflow/pkg/events"
	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// Config holds the scanner settings.
type Config struct {
	CronExpr  string
	RedisAddr string
	RedisDB   int
	Password  string
	Stream    string
}

// Scanner periodically scans for overdue approval tasks and emits one
// reminder per task per scan cycle. Tasks already reminded are skipped until
// the next restart so a slow consumer is not flooded.
type Scanner struct {
	tasks    persistence.TaskRepository
	client   redis.UniversalClient
	logger   *slog.Logger
	config   Config
	cron     *cron.Cron
	mutex    sync.Mutex
	notified map[string]struct{}
}

// NewScanner creates a scanner. The Redis connection is verified on Start.
func NewScanner(tasks persistence.TaskRepository, config Config, logger *slog.Logger) (*Scanner, error) {
	if config.CronExpr == "" {
		config.CronExpr = "*/5 * * * *"
	}

	if _, err := cron.ParseStandard(config.CronExpr); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", config.CronExpr, err)
	}

	if config.Stream == "" {
		config.Stream = events.ReminderStream
	}

	return &Scanner{
		tasks:    tasks,
		config:   config,
		logger:   logger.With("module", "reminder"),
		notified: make(map[string]struct{}),
	}, nil
}

func (s *Scanner) Start(ctx context.Context) error {
	addr := s.config.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}

	s.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: s.config.Password,
		DB:       s.config.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.client.Ping(pingCtx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", s.config.RedisDB)

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err = s.cron.AddFunc(s.config.CronExpr, func() {
		if scanErr := s.Scan(ctx); scanErr != nil {
			s.logger.ErrorContext(ctx, "Overdue scan failed", "error", scanErr)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Reminder scanner started", "cron", s.config.CronExpr, "stream", s.config.Stream)

	return nil
}

// Scan runs one pass over the overdue tasks.
func (s *Scanner) Scan(ctx context.Context) error {
	now := time.Now().UTC()

	overdue, err := s.tasks.ListOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	for _, task := range overdue {
		if s.alreadyNotified(task.ID) {
			continue
		}

		err := s.publishReminder(ctx, task)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish reminder",
				"task_id", task.ID, "error", err)

			continue
		}

		s.markNotified(task.ID)
		s.logger.InfoContext(ctx, "Published overdue reminder",
			"task_id", task.ID, "instance_id", task.WorkflowInstanceID, "due_date", task.DueDate)
	}

	return nil
}

func (s *Scanner) publishReminder(ctx context.Context, task *models.Task) error {
	pending := make([]string, 0, len(task.Assignees))

	for _, assignee := range task.Assignees {
		if assignee.Status == models.TaskStatusPending {
			pending = append(pending, assignee.UserID)
		}
	}

	event := events.TaskOverdue{
		BaseEvent:  events.NewBaseEvent(events.TaskOverdueEvent, task.WorkflowID),
		TaskID:     task.ID,
		InstanceID: task.WorkflowInstanceID,
		NodeName:   task.NodeName,
		DueDate:    *task.DueDate,
		Assignees:  pending,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder event: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.config.Stream,
		Values: map[string]any{
			"event_type": string(events.TaskOverdueEvent),
			"task_id":    task.ID,
			"payload":    payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to reminder stream: %w", err)
	}

	return nil
}

func (s *Scanner) alreadyNotified(taskID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, ok := s.notified[taskID]

	return ok
}

func (s *Scanner) markNotified(taskID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.notified[taskID] = struct{}{}
}

func (s *Scanner) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping reminder scanner")

	if s.cron != nil {
		s.cron.Stop()
	}

	if s.client != nil {
		err := s.client.Close()
		if err != nil {
			s.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
