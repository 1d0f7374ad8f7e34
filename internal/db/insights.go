package db

import (
	"context"

	"github.com/mauv0809/portfolio-tracker/internal/models"
)

// All insight queries walk users -> accounts -> assets -> transactions for one
// user and recompute from the raw history on every call.

// GetAssetClassBreakdown sums buy amounts per asset class, largest first.
func (r *Repository) GetAssetClassBreakdown(ctx context.Context, userID int64) ([]models.AssetClassValue, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.asset_class, SUM(t.total_amount) AS total_value
		FROM users u
		JOIN accounts acc ON u.user_id = acc.user_id
		JOIN assets a ON acc.account_id = a.account_id
		JOIN transactions t ON a.asset_id = t.asset_id
		WHERE u.user_id = $1 AND t.transaction_type = 'buy'
		GROUP BY a.asset_class
		ORDER BY total_value DESC
	`, userID)
	if err != nil {
		return nil, wrap("querying asset class breakdown", err)
	}
	defer rows.Close()

	breakdown := []models.AssetClassValue{}
	for rows.Next() {
		var v models.AssetClassValue
		if err := rows.Scan(&v.Class, &v.TotalValue); err != nil {
			return nil, wrap("scanning asset class value", err)
		}
		breakdown = append(breakdown, v)
	}

	return breakdown, wrap("reading asset class breakdown", rows.Err())
}

// GetPortfolioSummary nets buys against sells per ticker and keeps only
// tickers still held (net quantity > 0). Dividends do not move either sum.
// Summaries computed by the earlier tool subtracted dividend quantities as if
// they were sells, so results differ for assets that carry dividend rows.
func (r *Repository) GetPortfolioSummary(ctx context.Context, userID int64) ([]models.Holding, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			a.ticker_symbol,
			SUM(CASE t.transaction_type
				WHEN 'buy' THEN t.quantity
				WHEN 'sell' THEN -t.quantity
				ELSE 0 END) AS total_quantity,
			SUM(CASE t.transaction_type
				WHEN 'buy' THEN t.total_amount
				WHEN 'sell' THEN -t.total_amount
				ELSE 0 END) AS total_cost_basis
		FROM users u
		JOIN accounts acc ON u.user_id = acc.user_id
		JOIN assets a ON acc.account_id = a.account_id
		JOIN transactions t ON a.asset_id = t.asset_id
		WHERE u.user_id = $1
		GROUP BY a.ticker_symbol
		HAVING SUM(CASE t.transaction_type
			WHEN 'buy' THEN t.quantity
			WHEN 'sell' THEN -t.quantity
			ELSE 0 END) > 0
		ORDER BY a.ticker_symbol
	`, userID)
	if err != nil {
		return nil, wrap("querying portfolio summary", err)
	}
	defer rows.Close()

	holdings := []models.Holding{}
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.Ticker, &h.Quantity, &h.CostBasis); err != nil {
			return nil, wrap("scanning holding", err)
		}
		holdings = append(holdings, h)
	}

	return holdings, wrap("reading portfolio summary", rows.Err())
}

// GetPortfolioMetrics aggregates buy transactions. avg_purchase_price is the
// plain mean of price_per_unit, not weighted by quantity.
func (r *Repository) GetPortfolioMetrics(ctx context.Context, userID int64) (models.PortfolioMetrics, error) {
	var m models.PortfolioMetrics
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(DISTINCT a.ticker_symbol) AS num_assets,
			SUM(t.total_amount) AS total_investment,
			AVG(t.price_per_unit) AS avg_purchase_price,
			MIN(t.transaction_date) AS first_transaction,
			MAX(t.transaction_date) AS latest_transaction
		FROM users u
		JOIN accounts acc ON u.user_id = acc.user_id
		JOIN assets a ON acc.account_id = a.account_id
		JOIN transactions t ON a.asset_id = t.asset_id
		WHERE u.user_id = $1 AND t.transaction_type = 'buy'
	`, userID).Scan(&m.NumAssets, &m.TotalInvestment, &m.AvgPurchasePrice, &m.FirstTransaction, &m.LatestTransaction)
	if err != nil {
		return models.PortfolioMetrics{}, wrap("querying portfolio metrics", err)
	}
	return m, nil
}
