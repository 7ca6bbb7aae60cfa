// Package main provides the Beeflow reminder worker. It scans for overdue
// approval tasks on a cron schedule and pushes reminders to a Redis stream.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/beeflow/beeflow/pkg/cmd"
	"github.com/beeflow/beeflow/pkg/log"
	"github.com/beeflow/beeflow/pkg/reminder"

	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("reminder")

	command := &cli.Command{
		Name:                  "beeflow-reminder",
		Usage:                 "Start the overdue-task reminder worker",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the reminder stream",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				Sources: cli.EnvVars("REDIS_DB"),
			},
			&cli.StringFlag{
				Name:    "cron",
				Usage:   "Cron expression controlling the scan frequency",
				Value:   "*/5 * * * *",
				Sources: cli.EnvVars("REMINDER_CRON"),
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

			logger.InfoContext(ctx, "Initializing Beeflow reminder worker")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			scanner, err := reminder.NewScanner(persistence.TaskRepository(), reminder.Config{
				CronExpr:  command.String("cron"),
				RedisAddr: command.String("redis-addr"),
				Password:  command.String("redis-password"),
				RedisDB:   command.Int("redis-db"),
			}, logger)
			if err != nil {
				return err
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			err = scanner.Start(runCtx)
			if err != nil {
				return err
			}

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-signals:
				logger.InfoContext(runCtx, "Received signal, shutting down", "signal", sig)
			case <-runCtx.Done():
			}

			return scanner.Stop(runCtx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
