package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/mauv0809/portfolio-tracker/internal/db"
)

type bootstrapCmd struct{}

func (*bootstrapCmd) Name() string     { return "bootstrap" }
func (*bootstrapCmd) Synopsis() string { return "create the configured portfolio user if missing" }
func (*bootstrapCmd) Usage() string {
	return `portfolioctl bootstrap

  Ensures the user described by PORTFOLIO_USER_ID, PORTFOLIO_USERNAME and
  PORTFOLIO_EMAIL exists, and prints its id.
`
}

func (*bootstrapCmd) SetFlags(*flag.FlagSet) {}

func (*bootstrapCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := setup()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return subcommands.ExitFailure
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Could not connect to database", "error", err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	p := cfg.Portfolio
	user, err := db.NewRepository(pool).EnsureUser(ctx, p.UserID, p.Username, p.Email)
	if err != nil {
		logger.Error("Could not bootstrap user", "error", err)
		return subcommands.ExitFailure
	}
	if user.ID != p.UserID {
		logger.Warn("User created with a different id; update PORTFOLIO_USER_ID", "configured", p.UserID, "actual", user.ID)
	}

	fmt.Printf("user %d (%s <%s>)\n", user.ID, user.Username, user.Email)
	return subcommands.ExitSuccess
}
