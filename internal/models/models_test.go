package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction_ComputesTotal(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tx := NewTransaction(7, TransactionBuy, date, decimal.RequireFromString("2.5"), decimal.RequireFromString("40.10"))

	assert.Equal(t, int64(7), tx.AssetID)
	assert.Equal(t, TransactionBuy, tx.Type)
	assert.True(t, tx.TotalAmount.Equal(decimal.RequireFromString("100.25")), "got %s", tx.TotalAmount)
	assert.Equal(t, date, tx.Date)
}

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		in      string
		want    TransactionType
		wantErr bool
	}{
		{in: "buy", want: TransactionBuy},
		{in: "Sell", want: TransactionSell},
		{in: "Dividend", want: TransactionDividend},
		{in: "transfer", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTransactionType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTotals(t *testing.T) {
	holdings := []Holding{
		{Ticker: "AAPL", CostBasis: decimal.NewFromInt(860)},
		{Ticker: "BTC", CostBasis: decimal.RequireFromString("140.5")},
	}
	assert.True(t, TotalCostBasis(holdings).Equal(decimal.RequireFromString("1000.5")))
	assert.True(t, TotalCostBasis(nil).IsZero())

	breakdown := []AssetClassValue{
		{Class: ClassEquities, TotalValue: decimal.NewFromInt(1500)},
		{Class: ClassCrypto, TotalValue: decimal.NewFromInt(250)},
	}
	assert.True(t, TotalValue(breakdown).Equal(decimal.NewFromInt(1750)))
}

func TestPortfolioMetrics_Empty(t *testing.T) {
	assert.True(t, PortfolioMetrics{}.Empty())
	assert.False(t, PortfolioMetrics{NumAssets: 1}.Empty())
}
