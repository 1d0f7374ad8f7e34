package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/portfolio-tracker/internal/models"
)

// SummaryResponse is the JSON body of GET /api/insights/summary.
type SummaryResponse struct {
	Holdings       []models.Holding `json:"holdings"`
	TotalCostBasis string           `json:"total_cost_basis"`
}

// BreakdownResponse is the JSON body of GET /api/insights/breakdown.
type BreakdownResponse struct {
	AssetClasses []models.AssetClassValue `json:"asset_classes"`
	TotalValue   string                   `json:"total_value"`
}

// APIBreakdown handles GET /api/insights/breakdown
// @Summary Asset class breakdown
// @Tags insights
// @Produce json
// @Success 200 {object} BreakdownResponse
// @Router /api/insights/breakdown [get]
func (h *Handler) APIBreakdown(c echo.Context) error {
	breakdown, err := h.store.GetAssetClassBreakdown(c.Request().Context(), h.userID)
	if err != nil {
		return loadFailed("the asset class breakdown", err)
	}
	return c.JSON(http.StatusOK, BreakdownResponse{
		AssetClasses: breakdown,
		TotalValue:   models.TotalValue(breakdown).String(),
	})
}

// APISummary handles GET /api/insights/summary
// @Summary Current holdings netted from buys and sells
// @Tags insights
// @Produce json
// @Success 200 {object} SummaryResponse
// @Router /api/insights/summary [get]
func (h *Handler) APISummary(c echo.Context) error {
	holdings, err := h.store.GetPortfolioSummary(c.Request().Context(), h.userID)
	if err != nil {
		return loadFailed("your holdings", err)
	}
	return c.JSON(http.StatusOK, SummaryResponse{
		Holdings:       holdings,
		TotalCostBasis: models.TotalCostBasis(holdings).String(),
	})
}

// APIMetrics handles GET /api/insights/metrics
// @Summary Buy-side portfolio metrics
// @Tags insights
// @Produce json
// @Success 200 {object} models.PortfolioMetrics
// @Router /api/insights/metrics [get]
func (h *Handler) APIMetrics(c echo.Context) error {
	metrics, err := h.store.GetPortfolioMetrics(c.Request().Context(), h.userID)
	if err != nil {
		return loadFailed("portfolio metrics", err)
	}
	return c.JSON(http.StatusOK, metrics)
}
