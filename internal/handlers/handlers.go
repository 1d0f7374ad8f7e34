package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/mauv0809/portfolio-tracker/internal/models"
	"github.com/mauv0809/portfolio-tracker/internal/views"
)

// Store is the data access layer used by the handlers.
type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id int64) (models.User, error)
	UpdateUserEmail(ctx context.Context, userID int64, email string) error

	AddAccount(ctx context.Context, userID int64, name string, typ models.AccountType) (int64, error)
	GetAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error)
	DeleteAccount(ctx context.Context, accountID int64) error

	AddAsset(ctx context.Context, accountID int64, ticker, name string, class models.AssetClass) (int64, error)
	GetAssetsByAccount(ctx context.Context, accountID int64) ([]models.Asset, error)

	AddTransaction(ctx context.Context, tx models.Transaction) (int64, error)
	GetTransactionsByAsset(ctx context.Context, assetID int64) ([]models.Transaction, error)

	GetAssetClassBreakdown(ctx context.Context, userID int64) ([]models.AssetClassValue, error)
	GetPortfolioSummary(ctx context.Context, userID int64) ([]models.Holding, error)
	GetPortfolioMetrics(ctx context.Context, userID int64) (models.PortfolioMetrics, error)
}

type Handler struct {
	store    Store
	userID   int64
	currency string
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a handler serving the portfolio of userID.
func New(store Store, userID int64, currency string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    store,
		userID:   userID,
		currency: currency,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// Register mounts every route on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)

	e.GET("/", h.Dashboard)
	e.POST("/profile/email", h.UpdateEmail)

	e.GET("/assets", h.Assets)
	e.POST("/accounts", h.AddAccount)
	e.POST("/accounts/:id/assets", h.AddAsset)
	e.POST("/accounts/:id/delete", h.DeleteAccount)

	e.GET("/transactions", h.Transactions)
	e.POST("/assets/:id/transactions", h.AddTransaction)

	e.GET("/insights", h.Insights)
	e.GET("/insights/report", h.Report)

	api := e.Group("/api/insights")
	api.GET("/breakdown", h.APIBreakdown)
	api.GET("/summary", h.APISummary)
	api.GET("/metrics", h.APIMetrics)
}

// Render writes a templ component as the HTML response.
func Render(c echo.Context, status int, t templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := t.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	return c.HTML(status, buf.String())
}

func (h *Handler) meta(c echo.Context, title string, active views.Page) views.PageMeta {
	return views.PageMeta{
		Title:    title,
		Active:   active,
		Flash:    takeFlash(c),
		Currency: h.currency,
	}
}

// Health returns application health status
// @Summary Health check
// @Description Returns the health status of the application and its database
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		h.logger.Error("Health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":   "unavailable",
			"database": "unreachable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}

// ErrorHandler renders errors inside the page layout for browsers and as JSON
// for API routes.
func (h *Handler) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Unexpected error. Please try again."
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "uri", c.Request().RequestURI, "status", status, "error", err)
	}

	var renderErr error
	if isAPI(c) || c.Request().Method == http.MethodHead {
		renderErr = c.JSON(status, map[string]any{"error": message, "status": status})
	} else {
		page := views.ErrorPage(views.PageMeta{Title: "Error", Currency: h.currency}, status, message)
		renderErr = Render(c, status, page)
	}
	if renderErr != nil {
		h.logger.Error("Rendering error response", "error", renderErr)
	}
}
