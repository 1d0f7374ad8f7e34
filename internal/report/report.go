// Package report assembles a markdown portfolio report from the insight queries.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mauv0809/portfolio-tracker/internal/models"
	"github.com/mauv0809/portfolio-tracker/internal/money"
)

// Source is the read side of the repository needed to build a report.
type Source interface {
	GetPortfolioMetrics(ctx context.Context, userID int64) (models.PortfolioMetrics, error)
	GetPortfolioSummary(ctx context.Context, userID int64) ([]models.Holding, error)
	GetAssetClassBreakdown(ctx context.Context, userID int64) ([]models.AssetClassValue, error)
}

type Report struct {
	GeneratedAt time.Time
	Currency    string
	Metrics     models.PortfolioMetrics
	Holdings    []models.Holding
	Breakdown   []models.AssetClassValue
}

// Build runs the three insight queries for userID.
func Build(ctx context.Context, src Source, userID int64, currency string) (*Report, error) {
	metrics, err := src.GetPortfolioMetrics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	holdings, err := src.GetPortfolioSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	breakdown, err := src.GetAssetClassBreakdown(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}

	return &Report{
		GeneratedAt: time.Now(),
		Currency:    currency,
		Metrics:     metrics,
		Holdings:    holdings,
		Breakdown:   breakdown,
	}, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02")
}

// Markdown renders the report. Tables use GitHub-flavoured syntax.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Portfolio Report\n\n")
	fmt.Fprintf(&b, "_Generated %s. Values are cost basis, not market value._\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))

	b.WriteString("## Metrics\n\n")
	if r.Metrics.Empty() {
		b.WriteString("No buy transactions recorded yet.\n\n")
	} else {
		b.WriteString("| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Total Assets | %d Tickers |\n", r.Metrics.NumAssets)
		fmt.Fprintf(&b, "| Total Investment | %s |\n", money.FormatNull(r.Metrics.TotalInvestment, r.Currency, "N/A"))
		fmt.Fprintf(&b, "| Avg. Purchase Price | %s |\n", money.FormatNull(r.Metrics.AvgPurchasePrice, r.Currency, "N/A"))
		fmt.Fprintf(&b, "| First Transaction | %s |\n", formatDate(r.Metrics.FirstTransaction))
		fmt.Fprintf(&b, "| Latest Transaction | %s |\n\n", formatDate(r.Metrics.LatestTransaction))
	}

	b.WriteString("## Holdings\n\n")
	if len(r.Holdings) == 0 {
		b.WriteString("No assets found in your portfolio.\n\n")
	} else {
		b.WriteString("| Ticker | Total Quantity | Cost Basis |\n|---|---:|---:|\n")
		for _, h := range r.Holdings {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", escapeCell(h.Ticker), h.Quantity.String(), money.Format(h.CostBasis, r.Currency))
		}
		fmt.Fprintf(&b, "| **Total** | | **%s** |\n\n", money.Format(models.TotalCostBasis(r.Holdings), r.Currency))
	}

	b.WriteString("## Breakdown by Asset Class\n\n")
	if len(r.Breakdown) == 0 {
		b.WriteString("No asset class data to display.\n")
	} else {
		b.WriteString("| Asset Class | Total Value |\n|---|---:|\n")
		for _, v := range r.Breakdown {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(string(v.Class)), money.Format(v.TotalValue, r.Currency))
		}
	}

	return b.String()
}

// escapeCell keeps user-entered text from breaking table rows.
func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", "\\|"), "\n", " ")
}
