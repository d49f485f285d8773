// Package currency formats amounts held in the base currency (SEK) for
// display in another currency using fixed approximate rates.
package currency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Base is the currency every stored amount is expressed in.
const Base = "SEK"

// Formatter renders an amount for presentation.
type Formatter interface {
	Format(amount decimal.Decimal) string
}

// Currency describes a display currency and its rate from Base.
type Currency struct {
	Code   string
	Symbol string
	Rate   decimal.Decimal
}

var currencies = map[string]Currency{
	"SEK": {Code: "SEK", Symbol: "kr", Rate: decimal.NewFromInt(1)},
	"EUR": {Code: "EUR", Symbol: "€", Rate: decimal.RequireFromString("0.087")},
	"USD": {Code: "USD", Symbol: "$", Rate: decimal.RequireFromString("0.095")},
}

// Lookup returns the currency registered under code.
func Lookup(code string) (Currency, error) {
	c, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Currency{}, fmt.Errorf("unsupported currency %q", code)
	}
	return c, nil
}

// Codes lists the supported currency codes.
func Codes() []string {
	out := make([]string, 0, len(currencies))
	for k := range currencies {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fixed converts with a constant rate and rounds to two decimals.
type Fixed struct {
	Currency
}

// NewFixed returns a Formatter for code.
func NewFixed(code string) (*Fixed, error) {
	c, err := Lookup(code)
	if err != nil {
		return nil, err
	}
	return &Fixed{Currency: c}, nil
}

// Convert returns amount expressed in the formatter's currency.
func (f *Fixed) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(f.Rate)
}

// Format renders "<symbol> <amount>" with two decimals.
func (f *Fixed) Format(amount decimal.Decimal) string {
	return f.Symbol + " " + f.Convert(amount).StringFixed(2)
}
