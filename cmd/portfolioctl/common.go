package main

import (
	"log/slog"

	"github.com/mauv0809/portfolio-tracker/internal/config"
)

// setup loads the configuration and returns a logger honouring its LOG_ settings.
func setup() (*config.Config, *slog.Logger, error) {
	logger := config.NewLogger(config.LogConfig{Level: "warn"})
	cfg, err := config.Load(logger)
	if err != nil {
		return nil, logger, err
	}
	return cfg, config.NewLogger(cfg.Log), nil
}
