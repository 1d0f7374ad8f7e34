package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mauv0809/portfolio-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	metrics   models.PortfolioMetrics
	holdings  []models.Holding
	breakdown []models.AssetClassValue
	err       error
}

func (f fakeSource) GetPortfolioMetrics(context.Context, int64) (models.PortfolioMetrics, error) {
	return f.metrics, f.err
}

func (f fakeSource) GetPortfolioSummary(context.Context, int64) ([]models.Holding, error) {
	return f.holdings, nil
}

func (f fakeSource) GetAssetClassBreakdown(context.Context, int64) ([]models.AssetClassValue, error) {
	return f.breakdown, nil
}

func sampleSource() fakeSource {
	first := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return fakeSource{
		metrics: models.PortfolioMetrics{
			NumAssets:         1,
			TotalInvestment:   decimal.NullDecimal{Decimal: decimal.NewFromInt(1500), Valid: true},
			AvgPurchasePrice:  decimal.NullDecimal{Decimal: decimal.NewFromInt(150), Valid: true},
			FirstTransaction:  &first,
			LatestTransaction: &latest,
		},
		holdings: []models.Holding{
			{Ticker: "AAPL", Quantity: decimal.NewFromInt(6), CostBasis: decimal.NewFromInt(860)},
		},
		breakdown: []models.AssetClassValue{
			{Class: models.ClassEquities, TotalValue: decimal.NewFromInt(1500)},
		},
	}
}

func TestBuild_Markdown(t *testing.T) {
	r, err := Build(context.Background(), sampleSource(), 1, "USD")
	require.NoError(t, err)

	md := r.Markdown()
	assert.Contains(t, md, "# Portfolio Report")
	assert.Contains(t, md, "| Total Assets | 1 Tickers |")
	assert.Contains(t, md, "| Avg. Purchase Price | $150.00 |")
	assert.Contains(t, md, "| First Transaction | 2024-01-02 |")
	assert.Contains(t, md, "| AAPL | 6 | $860.00 |")
	assert.Contains(t, md, "| Equities | $1,500.00 |")
}

func TestBuild_Empty(t *testing.T) {
	r, err := Build(context.Background(), fakeSource{}, 1, "USD")
	require.NoError(t, err)

	md := r.Markdown()
	assert.Contains(t, md, "No buy transactions recorded yet.")
	assert.Contains(t, md, "No assets found in your portfolio.")
	assert.Contains(t, md, "No asset class data to display.")
}

func TestBuild_Error(t *testing.T) {
	_, err := Build(context.Background(), fakeSource{err: errors.New("boom")}, 1, "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "building report")
}

func TestRenderHTML(t *testing.T) {
	r, err := Build(context.Background(), sampleSource(), 1, "USD")
	require.NoError(t, err)

	html, err := RenderHTML(r.Markdown())
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Portfolio Report</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>AAPL</td>")
}

func TestRenderHTML_DropsRawHTML(t *testing.T) {
	html, err := RenderHTML("| Ticker |\n|---|\n| <script>alert(1)</script> |\n")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestRenderTerminal(t *testing.T) {
	out, err := RenderTerminal("# Portfolio Report\n\nHello", 80)
	require.NoError(t, err)
	assert.Contains(t, out, "Portfolio Report")
}

func TestEscapeCell(t *testing.T) {
	assert.Equal(t, `A\|B C`, escapeCell("A|B\nC"))
}
