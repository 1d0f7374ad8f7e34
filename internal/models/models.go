package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountBrokerage      AccountType = "Brokerage"
	AccountRetirement     AccountType = "Retirement"
	AccountCryptoExchange AccountType = "Crypto Exchange"
)

// AccountTypes lists the account types offered by the account form, in display order.
var AccountTypes = []AccountType{AccountBrokerage, AccountRetirement, AccountCryptoExchange}

type AssetClass string

const (
	ClassEquities    AssetClass = "Equities"
	ClassFixedIncome AssetClass = "Fixed Income"
	ClassCrypto      AssetClass = "Crypto"
	ClassOther       AssetClass = "Other"
)

var AssetClasses = []AssetClass{ClassEquities, ClassFixedIncome, ClassCrypto, ClassOther}

type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionDividend TransactionType = "dividend"
)

var TransactionTypes = []TransactionType{TransactionBuy, TransactionSell, TransactionDividend}

// Label returns the capitalized form shown in the transaction form ("Buy", "Sell", "Dividend").
func (t TransactionType) Label() string {
	switch t {
	case TransactionBuy:
		return "Buy"
	case TransactionSell:
		return "Sell"
	case TransactionDividend:
		return "Dividend"
	}
	return string(t)
}

// ParseTransactionType accepts either the stored lowercase value or its label.
func ParseTransactionType(s string) (TransactionType, error) {
	for _, t := range TransactionTypes {
		if s == string(t) || s == t.Label() {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

type User struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Account struct {
	ID     int64       `json:"account_id"`
	UserID int64       `json:"user_id"`
	Name   string      `json:"account_name"`
	Type   AccountType `json:"account_type"`
}

type Asset struct {
	ID        int64      `json:"asset_id"`
	AccountID int64      `json:"account_id"`
	Ticker    string     `json:"ticker_symbol"`
	Name      string     `json:"asset_name"`
	Class     AssetClass `json:"asset_class"`
}

// Transaction is a single buy, sell or dividend event on an asset.
// TotalAmount is stored as entered and never recomputed on read.
type Transaction struct {
	ID           int64           `json:"transaction_id"`
	AssetID      int64           `json:"asset_id"`
	Type         TransactionType `json:"transaction_type"`
	Date         time.Time       `json:"transaction_date"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// NewTransaction builds a transaction whose total is quantity × price.
func NewTransaction(assetID int64, typ TransactionType, date time.Time, quantity, price decimal.Decimal) Transaction {
	return Transaction{
		AssetID:      assetID,
		Type:         typ,
		Date:         date,
		Quantity:     quantity,
		PricePerUnit: price,
		TotalAmount:  quantity.Mul(price),
	}
}

// AssetClassValue is one row of the asset-class breakdown.
type AssetClassValue struct {
	Class      AssetClass      `json:"asset_class"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Holding is a currently held position netted from buys and sells.
type Holding struct {
	Ticker    string          `json:"ticker"`
	Quantity  decimal.Decimal `json:"total_quantity"`
	CostBasis decimal.Decimal `json:"total_cost_basis"`
}

type PortfolioMetrics struct {
	NumAssets         int64               `json:"num_assets"`
	TotalInvestment   decimal.NullDecimal `json:"total_investment"`
	AvgPurchasePrice  decimal.NullDecimal `json:"avg_purchase_price"`
	FirstTransaction  *time.Time          `json:"first_transaction"`
	LatestTransaction *time.Time          `json:"latest_transaction"`
}

// Empty reports whether no buy transaction contributed to the metrics.
func (m PortfolioMetrics) Empty() bool {
	return m.NumAssets == 0
}

// TotalCostBasis sums the cost basis of every holding.
func TotalCostBasis(holdings []Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.CostBasis)
	}
	return total
}

// TotalValue sums the breakdown across all asset classes.
func TotalValue(breakdown []AssetClassValue) decimal.Decimal {
	total := decimal.Zero
	for _, v := range breakdown {
		total = total.Add(v.TotalValue)
	}
	return total
}
