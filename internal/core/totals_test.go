package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func item(qty, price string) LineItem {
	li := LineItem{Quantity: dec(qty), UnitPrice: dec(price)}
	li.Recompute()
	return li
}

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name                string
		items               []LineItem
		rate                string
		subtotal, vat, total string
	}{
		{"single item standard rate", []LineItem{item("2", "50")}, "25", "100", "25", "125"},
		{"empty list", nil, "25", "0", "0", "0"},
		{"zero rate", []LineItem{item("3", "10")}, "0", "30", "0", "30"},
		{"several items reduced rate", []LineItem{item("1", "100"), item("2", "25.5")}, "12", "151", "18.12", "169.12"},
		{"fractional vat kept at full precision", []LineItem{item("1", "0.01")}, "25", "0.01", "0.0025", "0.0125"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTotals(tt.items, dec(tt.rate))
			if !got.Subtotal.Equal(dec(tt.subtotal)) || !got.VATAmount.Equal(dec(tt.vat)) || !got.Total.Equal(dec(tt.total)) {
				t.Fatalf("CalculateTotals() = {%s %s %s}, want {%s %s %s}",
					got.Subtotal, got.VATAmount, got.Total, tt.subtotal, tt.vat, tt.total)
			}
		})
	}
}

func TestCalculateTotalsOrderIndependent(t *testing.T) {
	items := []LineItem{item("1", "19.99"), item("3", "7.5"), item("0", "1000"), item("2.5", "40")}
	want := CalculateTotals(items, DefaultVATRate)

	reversed := make([]LineItem, len(items))
	for i := range items {
		reversed[len(items)-1-i] = items[i]
	}
	got := CalculateTotals(reversed, DefaultVATRate)
	if !got.Total.Equal(want.Total) || !got.Subtotal.Equal(want.Subtotal) {
		t.Fatalf("order changed result: %v vs %v", got, want)
	}

	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total)
	}
	if !want.Subtotal.Equal(sum) {
		t.Fatalf("subtotal %s != sum of items %s", want.Subtotal, sum)
	}
	if !want.Total.Equal(want.Subtotal.Mul(dec("1.25"))) {
		t.Fatalf("total %s != subtotal*1.25", want.Total)
	}
}

func TestCalculateTotalsIdempotent(t *testing.T) {
	items := []LineItem{item("4", "12.5")}
	a := CalculateTotals(items, dec("6"))
	b := CalculateTotals(items, dec("6"))
	if !a.Total.Equal(b.Total) {
		t.Fatalf("repeated call differs: %s vs %s", a.Total, b.Total)
	}
	if !items[0].Total.Equal(dec("50")) {
		t.Fatalf("input modified: %s", items[0].Total)
	}
}

func TestApplyTotalsRecomputesItems(t *testing.T) {
	inv := Invoice{
		VATRate: dec("25"),
		Items:   []LineItem{{Quantity: dec("2"), UnitPrice: dec("50"), Total: dec("999")}},
	}
	inv.ApplyTotals()
	if !inv.Items[0].Total.Equal(dec("100")) {
		t.Fatalf("item total = %s, want 100", inv.Items[0].Total)
	}
	if !inv.Total.Equal(dec("125")) {
		t.Fatalf("invoice total = %s, want 125", inv.Total)
	}
}
