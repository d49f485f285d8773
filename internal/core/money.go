// Package core provides money parsing and handling utilities.
//
// Amounts arrive from forms and query strings in either dot (12.34) or
// comma (12,34) notation. Strict parsing rejects anything that is not a
// non-negative number; sanitizing coerces the same inputs to zero instead.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a non-negative amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("1 200")  -> 1200, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SanitizeAmount is the lenient counterpart of ParseAmount used at the
// input boundary: empty, malformed or negative values become zero.
func SanitizeAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ClampPercent limits a percentage to [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// NonNegative coerces negative amounts to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
