package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mauv0809/portfolio-tracker/internal/config"
	"github.com/mauv0809/portfolio-tracker/internal/db"
	"github.com/mauv0809/portfolio-tracker/internal/handlers"
	"github.com/mauv0809/portfolio-tracker/internal/money"
)

func main() {
	logger := config.NewLogger(config.LogConfig{Level: "info"})

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger = config.NewLogger(cfg.Log)

	if !money.Valid(cfg.Portfolio.Currency) {
		logger.Warn("Unknown currency, falling back", "currency", cfg.Portfolio.Currency, "fallback", money.DefaultCurrency)
		cfg.Portfolio.Currency = money.DefaultCurrency
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run migrations
	if cfg.MigrateOnStart {
		if err := db.RunMigrationsContext(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("Could not run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("Migrations completed")
	}

	// Connect to database
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Could not connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Connected to database")

	repo := db.NewRepository(pool)
	user, err := repo.EnsureUser(ctx, cfg.Portfolio.UserID, cfg.Portfolio.Username, cfg.Portfolio.Email)
	if err != nil {
		logger.Error("Could not bootstrap portfolio user", "error", err)
		os.Exit(1)
	}
	logger.Info("Serving portfolio", "user_id", user.ID, "username", user.Username, "currency", cfg.Portfolio.Currency)

	h := handlers.New(repo, user.ID, cfg.Portfolio.Currency, logger)

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = h.ErrorHandler
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error == nil {
				logger.Info("Request", attrs...)
			} else {
				logger.Warn("Request", append(attrs, "error", v.Error)...)
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Static files
	e.Static("/assets", cfg.AssetsDir)

	h.Register(e)

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
