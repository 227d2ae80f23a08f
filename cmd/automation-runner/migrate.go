package main

import (
	"context"
	"errors"

	"github.com/dukex/automation-runner/pkg/cmd"
	"github.com/dukex/automation-runner/pkg/log"
	"github.com/dukex/automation-runner/pkg/persistence/postgresql"
	cli "github.com/urfave/cli/v3"
)

var errMigrateRequiresPostgres = errors.New("migrations only apply to PostgreSQL databases")

func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit",
		Flags: append([]cli.Flag{databaseURLFlag()}, logFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("migrate")
			databaseURL := command.String("database-url")

			provider, err := cmd.ParsePersistenceProvider(databaseURL)
			if err != nil {
				return err
			}

			if provider != cmd.PersistencePostgreSQL {
				return errMigrateRequiresPostgres
			}

			store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
			if err != nil {
				return err
			}

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			current, latest, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Database schema is up to date", "version", current, "latest", latest)

			return nil
		},
	}
}
