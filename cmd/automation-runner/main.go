// Package main provides the automation runner: it polls for LinkedIn automation runs and
// executes them against users' browser sessions.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
)

func main() {
	_ = godotenv.Load()

	command := &cli.Command{
		Name:                  "automation-runner",
		Usage:                 "Schedule and execute browser automation runs",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunCommand(),
			MigrateCommand(),
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		slog.Error("automation-runner exited with error", "error", err)
		os.Exit(1)
	}
}

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL (postgres://... or memory://)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}
