package main

import (
	"context"
	"os"
	"time"

	"github.com/lodecms/lode/pkg/cmd"
	"github.com/lodecms/lode/pkg/log"
	"github.com/lodecms/lode/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	app := &cli.Command{
		Name:                  "lode-api",
		Usage:                 "Create and trigger content automation flows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses (kafka event bus only)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.IntFlag{
				Name:    "trigger-rate-limit",
				Usage:   "Trigger requests allowed per caller per window",
				Value:   120,
				Sources: cli.EnvVars("TRIGGER_RATE_LIMIT"),
			},
			&cli.DurationFlag{
				Name:    "trigger-rate-window",
				Usage:   "Window for the trigger rate limit",
				Value:   time.Minute,
				Sources: cli.EnvVars("TRIGGER_RATE_WINDOW"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL for the shared rate limit store",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Lode API")

			store := cmd.NewStore(ctx, logger, command.String("database-url"))

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close store", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger, command.String("kafka-brokers"))
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			limiter := cmd.NewTriggerLimiter(
				logger,
				command.Int("trigger-rate-limit"),
				command.Duration("trigger-rate-window"),
				command.String("redis-url"),
			)

			tracer, err := otelhelper.NewTracer(ctx, "lode-api")
			if err != nil {
				logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)

				return err
			}

			api := NewAPI(
				logger,
				store,
				eventBus,
				limiter,
				tracer,
			)

			err = api.Start(ctx, command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
