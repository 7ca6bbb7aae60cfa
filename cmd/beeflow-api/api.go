// Package main provides the Beeflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/beeflow/beeflow/pkg/directory"
	"github.com/beeflow/beeflow/pkg/eventbus"
	"github.com/beeflow/beeflow/pkg/persistence"
	"github.com/beeflow/beeflow/pkg/services"
	"github.com/beeflow/beeflow/pkg/web"
	"github.com/beeflow/beeflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	directory   directory.Directory
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	directory directory.Directory,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		directory:   directory,
		eventBus:    eventBus,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence)
	formService := services.NewForm(a.persistence)

	resolver := workflow.NewResolver(a.directory)
	executor := workflow.NewExecutor(a.persistence, resolver, a.eventBus, a.logger)
	executionService := services.NewExecution(a.persistence, executor, a.eventBus, a.tracer, a.logger)

	handlers := web.NewAPIHandlers(workflowService, formService, executionService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Beeflow API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/start", handlers.StartWorkflow)
	w.Get("/:id/form", handlers.GetWorkflowForm)

	f := app.Group("/forms")
	f.Post("/", handlers.CreateForm)
	f.Delete("/:id", handlers.DeleteForm)

	i := app.Group("/instances")
	i.Get("/", handlers.GetUserInstances)
	i.Get("/:id", handlers.GetInstance)
	i.Get("/:id/tasks", handlers.GetInstanceTasks)
	i.Post("/:id/cancel", handlers.CancelInstance)

	t := app.Group("/tasks")
	t.Get("/", handlers.GetUserTasks)
	t.Post("/:id/approve", handlers.ApproveTask)
	t.Post("/:id/reject", handlers.RejectTask)
	t.Post("/:id/comments", handlers.CommentTask)
	t.Post("/:id/reassign", handlers.ReassignTask)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
