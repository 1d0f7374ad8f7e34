package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/mauv0809/portfolio-tracker/internal/db"
	"github.com/mauv0809/portfolio-tracker/internal/report"
)

type reportCmd struct {
	raw   bool
	width int
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print the portfolio report" }
func (*reportCmd) Usage() string {
	return `portfolioctl report [-raw] [-width <columns>]

  Prints holdings, metrics and the asset class breakdown of the configured
  user. Use -raw to emit the Markdown source instead of styled output.
`
}

func (r *reportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.raw, "raw", false, "Print Markdown instead of rendering it for the terminal.")
	f.IntVar(&r.width, "width", 100, "Word wrap width of the rendered report.")
}

func (r *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	repo := db.NewRepository(pool)
	user, err := repo.ResolveUser(ctx, cfg.Portfolio.UserID, cfg.Portfolio.Username)
	if err != nil {
		logger.Error("Could not find portfolio user; run bootstrap first", "error", err)
		return subcommands.ExitFailure
	}

	rep, err := report.Build(ctx, repo, user.ID, cfg.Portfolio.Currency)
	if err != nil {
		logger.Error("Could not build report", "error", err)
		return subcommands.ExitFailure
	}

	md := rep.Markdown()
	if r.raw {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}

	out, err := report.RenderTerminal(md, r.width)
	if err != nil {
		logger.Error("Could not render report", "error", err)
		return subcommands.ExitFailure
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}
