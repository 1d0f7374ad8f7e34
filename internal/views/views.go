package views

import (
	"time"

	"github.com/a-h/templ"
	"github.com/mauv0809/portfolio-tracker/internal/models"
	"github.com/shopspring/decimal"
)

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

type Page string

const (
	PageDashboard    Page = "dashboard"
	PageAssets       Page = "assets"
	PageTransactions Page = "transactions"
	PageInsights     Page = "insights"
)

type navItem struct {
	page  Page
	label string
	href  string
}

var navigation = []navItem{
	{PageDashboard, "Dashboard", "/"},
	{PageAssets, "Asset Management", "/assets"},
	{PageTransactions, "Transactions", "/transactions"},
	{PageInsights, "Business Insights", "/insights"},
}

// Flash kinds map onto the alert styles in app.css.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
	FlashWarning = "warning"
)

type Flash struct {
	Kind    string
	Message string
}

// PageMeta is shared by every page rendered in the layout.
type PageMeta struct {
	Title    string
	Active   Page
	Flash    *Flash
	Currency string
}

type DashboardData struct {
	User     models.User
	Holdings []models.Holding
}

type AssetsData struct {
	Accounts []models.Account
	Selected *models.Account
	Assets   []models.Asset
}

type TransactionsData struct {
	Accounts        []models.Account
	SelectedAccount *models.Account
	Assets          []models.Asset
	SelectedAsset   *models.Asset
	Transactions    []models.Transaction
	Today           time.Time
}

type InsightsData struct {
	Metrics   models.PortfolioMetrics
	Breakdown []models.AssetClassValue
}

// assetChoice adds an asset select to the account selector.
type assetChoice struct {
	assets   []models.Asset
	selected int64
}

func transactionAssetChoice(data TransactionsData) *assetChoice {
	if data.SelectedAsset == nil {
		return nil
	}
	return &assetChoice{assets: data.Assets, selected: data.SelectedAsset.ID}
}

func dateOrNA(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02")
}

func peakValue(breakdown []models.AssetClassValue) decimal.Decimal {
	peak := decimal.Zero
	for _, v := range breakdown {
		if v.TotalValue.GreaterThan(peak) {
			peak = v.TotalValue
		}
	}
	return peak
}

// barWidth returns value as a percentage of peak, clamped to [0, 100].
func barWidth(value, peak decimal.Decimal) string {
	if !peak.IsPositive() || value.IsNegative() {
		return "0"
	}
	pct := value.Div(peak).Mul(decimal.NewFromInt(100)).Round(1)
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		pct = decimal.NewFromInt(100)
	}
	return pct.String()
}

func barStyle(value, peak decimal.Decimal) templ.SafeCSS {
	return templ.SafeCSS("width: " + barWidth(value, peak) + "%")
}
