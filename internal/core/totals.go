package core

import "github.com/shopspring/decimal"

// DefaultVATRate is the Swedish standard rate applied when none is chosen.
var DefaultVATRate = decimal.NewFromInt(25)

// VATRates lists the rates offered by the invoice and quote forms.
var VATRates = []decimal.Decimal{
	decimal.NewFromInt(0),
	decimal.NewFromInt(6),
	decimal.NewFromInt(12),
	decimal.NewFromInt(25),
}

var hundred = decimal.NewFromInt(100)

// Totals holds the derived amounts of an invoice.
type Totals struct {
	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

// CalculateTotals sums the item totals and applies vatRate (a percentage).
// Amounts keep full precision; rounding is a presentation concern.
func CalculateTotals(items []LineItem, vatRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Total)
	}
	vat := subtotal.Mul(vatRate).Div(hundred)
	return Totals{
		Subtotal:  subtotal,
		VATAmount: vat,
		Total:     subtotal.Add(vat),
	}
}

// ApplyTotals recomputes every item total and then the invoice totals.
func (inv *Invoice) ApplyTotals() {
	for i := range inv.Items {
		inv.Items[i].Recompute()
	}
	t := CalculateTotals(inv.Items, inv.VATRate)
	inv.Subtotal = t.Subtotal
	inv.VATAmount = t.VATAmount
	inv.Total = t.Total
}
