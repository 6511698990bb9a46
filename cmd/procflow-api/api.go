// Package main provides the procflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/vendoreval/procflow/pkg/cache"
	"github.com/vendoreval/procflow/pkg/persistence"
	"github.com/vendoreval/procflow/pkg/services"
	"github.com/vendoreval/procflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	publisher   message.Publisher
	dashCache   *cache.Dashboard
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	publisher message.Publisher,
	dashCache *cache.Dashboard,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		publisher:   publisher,
		dashCache:   dashCache,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	orchestrator := services.NewOrchestrator(a.persistence, a.publisher, a.dashCache, a.logger)
	handlers := web.NewAPIHandlers(orchestrator, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Procflow API")
	})

	app.Get("/templates", handlers.GetTemplates)
	app.Get("/dashboard/:projectId", handlers.GetDashboard)

	w := app.Group("/workflows")
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Get("/:id/activity", handlers.GetActivityLog)
	w.Post("/:id/start", handlers.StartWorkflow)
	w.Post("/:id/complete", handlers.CompleteWorkflow)
	w.Post("/:id/cancel", handlers.CancelWorkflow)

	s := app.Group("/stages")
	s.Post("/:id/start", handlers.StartStage)
	s.Post("/:id/complete", handlers.CompleteStage)
	s.Post("/:id/skip", handlers.SkipStage)
	s.Post("/:id/block", handlers.BlockStage)
	s.Post("/:id/unblock", handlers.UnblockStage)

	m := app.Group("/milestones")
	m.Post("/:id/complete", handlers.CompleteMilestone)
	m.Post("/:id/skip", handlers.SkipMilestone)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
