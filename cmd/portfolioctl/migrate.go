package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/mauv0809/portfolio-tracker/internal/db"
)

type migrateCmd struct {
	status bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending database migrations" }
func (*migrateCmd) Usage() string {
	return `portfolioctl migrate [-status]

  Applies every pending migration to DATABASE_URL. With -status, lists the
  applied and pending migrations without changing anything.
`
}

func (m *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&m.status, "status", false, "Only print the migration status.")
}

func (m *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := setup()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return subcommands.ExitFailure
	}

	if m.status {
		if err := db.MigrationStatus(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("Could not read migration status", "error", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	if err := db.RunMigrationsContext(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("Could not run migrations", "error", err)
		return subcommands.ExitFailure
	}
	logger.Info("Migrations completed")
	return subcommands.ExitSuccess
}
