package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Money is an exact fixed-point amount in a single ISO 4217 currency.
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// Mul scales the amount by qty, keeping the currency.
func (m Money) Mul(qty decimal.Decimal) Money {
	return Money{
		Amount:   m.Amount.Mul(qty),
		Currency: m.Currency,
	}
}

func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency.String()
}
