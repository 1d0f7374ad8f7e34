package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment.
type Config struct {
	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`
	Port           string `env:"PORT" envDefault:"8080"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
	AssetsDir      string `env:"ASSETS_DIR" envDefault:"assets"`

	Portfolio PortfolioConfig `envPrefix:"PORTFOLIO_"`
	Log       LogConfig       `envPrefix:"LOG_"`
}

// PortfolioConfig identifies the single user the dashboard serves.
type PortfolioConfig struct {
	UserID   int64  `env:"USER_ID" envDefault:"1"`
	Username string `env:"USERNAME" envDefault:"JohnDoe"`
	Email    string `env:"EMAIL" envDefault:"john.doe@example.com"`
	Currency string `env:"CURRENCY" envDefault:"USD"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// LoadDotEnv loads a .env file when present. A missing file is not an error.
func LoadDotEnv(logger *slog.Logger, filenames ...string) {
	err := godotenv.Load(filenames...)
	switch {
	case err == nil:
		logger.Info("Environment variables loaded from .env file")
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("No .env file found, using environment variables")
	default:
		logger.Warn("Could not read .env file", "error", err)
	}
}

// Parse reads Config from the process environment.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Load loads .env (if any) and parses the environment.
func Load(logger *slog.Logger) (*Config, error) {
	LoadDotEnv(logger)
	return Parse()
}
