package core

import "github.com/shopspring/decimal"

// Quote is the breakdown shown by the price calculator.
type Quote struct {
	Subtotal       decimal.Decimal
	DiscountRate   decimal.Decimal
	DiscountAmount decimal.Decimal
	AfterDiscount  decimal.Decimal
	VATRate        decimal.Decimal
	VATAmount      decimal.Decimal
	Total          decimal.Decimal
}

// CalculateQuote applies a percentage discount before VAT. Negative
// amounts are treated as zero and percentages are clamped to [0, 100].
func CalculateQuote(amount, discountPct, vatRate decimal.Decimal) Quote {
	amount = NonNegative(amount)
	discountPct = ClampPercent(discountPct)
	vatRate = ClampPercent(vatRate)

	discount := amount.Mul(discountPct).Div(hundred)
	after := amount.Sub(discount)
	vat := after.Mul(vatRate).Div(hundred)
	return Quote{
		Subtotal:       amount,
		DiscountRate:   discountPct,
		DiscountAmount: discount,
		AfterDiscount:  after,
		VATRate:        vatRate,
		VATAmount:      vat,
		Total:          after.Add(vat),
	}
}

// ProductionEstimate prices a video production job: shooting and editing
// time at hourly rates plus fixed costs.
type ProductionEstimate struct {
	BaseRate           decimal.Decimal
	Hours              decimal.Decimal
	EditingRate        decimal.Decimal
	EditingHours       decimal.Decimal
	AdditionalServices decimal.Decimal
	EquipmentCosts     decimal.Decimal
	TravelExpenses     decimal.Decimal
	VATRate            decimal.Decimal
}

// Calculate returns the estimate as a Quote without discount.
func (p ProductionEstimate) Calculate() Quote {
	subtotal := NonNegative(p.BaseRate).Mul(NonNegative(p.Hours)).
		Add(NonNegative(p.EditingRate).Mul(NonNegative(p.EditingHours))).
		Add(NonNegative(p.AdditionalServices)).
		Add(NonNegative(p.EquipmentCosts)).
		Add(NonNegative(p.TravelExpenses))
	return CalculateQuote(subtotal, decimal.Zero, p.VATRate)
}
