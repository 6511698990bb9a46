package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/vendoreval/procflow/pkg/cache"
	"github.com/vendoreval/procflow/pkg/cmd"
	"github.com/vendoreval/procflow/pkg/log"
	"github.com/vendoreval/procflow/pkg/otelhelper"
)

const (
	serviceName     = "procflow-api"
	defaultPort     = 9080
	defaultCacheTTL = 30 * time.Second
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Track procurement workflows for vendor evaluations",
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
				Usage:    "Database connection URL (postgres://...) or file-store root path",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the dashboard snapshot cache (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-channel",
				Usage:   "Transition event channel type (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_CHANNEL"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka brokers for the kafka event channel",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
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

			logger.InfoContext(ctx, "Initializing procflow API")

			if command.Bool("tracing") {
				if _, err := otelhelper.NewTracer(ctx, serviceName); err != nil {
					return err
				}
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			publisher, err := cmd.NewPublisher(logger, command.String("event-channel"), serviceName, command.String("kafka-brokers"))
			if err != nil {
				return err
			}

			defer func() {
				if err := publisher.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event channel", "error", err)
				}
			}()

			var dashCache *cache.Dashboard
			if redisURL := command.String("redis-url"); redisURL != "" {
				dashCache, err = cache.NewDashboard(ctx, redisURL, defaultCacheTTL)
				if err != nil {
					return err
				}

				defer func() {
					if err := dashCache.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close dashboard cache", "error", err)
					}
				}()
			}

			api := NewAPI(logger, persistence, publisher, dashCache)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("procflow API terminated", "error", err)
		os.Exit(1)
	}
}
