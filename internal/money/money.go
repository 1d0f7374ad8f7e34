// Package money formats decimal amounts for display in a single currency.
package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a configured code is unknown.
const DefaultCurrency = gomoney.USD

// Format renders amount in the given ISO currency, e.g. "$1,234.56".
// Amounts are rounded half away from zero to the currency's minor unit.
func Format(amount decimal.Decimal, code string) string {
	cur := gomoney.GetCurrency(code)
	if cur == nil {
		cur = gomoney.GetCurrency(DefaultCurrency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return gomoney.New(minor, cur.Code).Display()
}

// FormatNull renders a nullable amount, using fallback when it is null.
func FormatNull(amount decimal.NullDecimal, code, fallback string) string {
	if !amount.Valid {
		return fallback
	}
	return Format(amount.Decimal, code)
}

// Valid reports whether code is a currency known to go-money.
func Valid(code string) bool {
	return gomoney.GetCurrency(code) != nil
}
