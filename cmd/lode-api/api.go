// Package main provides the Lode flow API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/lodecms/lode/pkg/eventbus"
	"github.com/lodecms/lode/pkg/events"
	"github.com/lodecms/lode/pkg/flow"
	"github.com/lodecms/lode/pkg/persistence"
	"github.com/lodecms/lode/pkg/ratelimit"
	"github.com/lodecms/lode/pkg/services"
	"github.com/lodecms/lode/pkg/web"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Store
	eventBus eventbus.EventBus
	limiter  ratelimit.Limiter
	tracer   trace.Tracer
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Store,
	eventBus eventbus.EventBus,
	limiter ratelimit.Limiter,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		eventBus: eventBus,
		limiter:  limiter,
		tracer:   tracer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	engine := flow.NewEngine(a.logger, a.tracer)
	flowService := services.NewFlows(a.store, engine, a.limiter, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(flowService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Lode API")
	})

	admin := app.Group("/api/admin/flows")
	admin.Get("/", handlers.GetFlows)
	admin.Post("/", handlers.CreateFlow)
	admin.Get("/:id", handlers.GetFlow)
	admin.Put("/:id", handlers.UpdateFlow)
	admin.Delete("/:id", handlers.DeleteFlow)

	// Run endpoints:
	admin.Get("/:id/runs", handlers.GetFlowRuns)
	admin.Post("/:id/run-test", handlers.RunFlowTest)

	app.Post("/api/public/flows/:slug/trigger", handlers.TriggerFlow)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// subscribeRunEvents attaches the built-in consumer for run notifications: one
// structured log line per recorded run, so a single-binary deployment still
// has an audit trail on stdout.
func (a *API) subscribeRunEvents(ctx context.Context) error {
	err := a.eventBus.Handle(events.FlowRunSucceededEvent, func(ctx context.Context, event any) error {
		succeeded, ok := event.(*events.FlowRunSucceeded)
		if !ok {
			return nil
		}

		a.logger.InfoContext(ctx, "Flow run succeeded",
			"flow_id", succeeded.FlowID,
			"flow_slug", succeeded.FlowSlug,
			"run_id", succeeded.RunID,
			"event", succeeded.Event,
			"steps", succeeded.Steps,
		)

		return nil
	})
	if err != nil {
		return err
	}

	err = a.eventBus.Handle(events.FlowRunFailedEvent, func(ctx context.Context, event any) error {
		failed, ok := event.(*events.FlowRunFailed)
		if !ok {
			return nil
		}

		a.logger.WarnContext(ctx, "Flow run failed",
			"flow_id", failed.FlowID,
			"flow_slug", failed.FlowSlug,
			"run_id", failed.RunID,
			"event", failed.Event,
			"error", failed.Error,
		)

		return nil
	})
	if err != nil {
		return err
	}

	return a.eventBus.Subscribe(ctx)
}

func (a *API) Start(ctx context.Context, port int) error {
	if err := a.subscribeRunEvents(ctx); err != nil {
		return err
	}

	return a.App().Listen(":" + strconv.Itoa(port))
}
