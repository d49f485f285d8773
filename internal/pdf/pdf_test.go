package pdf

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
	"invoicer/internal/currency"
)

func TestRender(t *testing.T) {
	inv := core.Invoice{
		Number:       "INV-1708387200000",
		CustomerName: "BAKGATOR AB",
		Date:         "2024-02-20",
		DueDate:      "2024-03-21",
		PaymentTerms: core.TermsNet30,
		Status:       core.StatusUnpaid,
		VATRate:      decimal.NewFromInt(25),
		Items: []core.LineItem{
			{Description: "Filmproduktion, dag 1", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(8000)},
		},
		Notes: "Tack för ert förtroende!\nBankgiro 123-4567",
	}
	inv.ApplyTotals()

	fmtr, err := currency.NewFixed("EUR")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	err = Render(&buf, Seller{Name: "Studio Öst", Address: "Storgatan 1\n111 22 Stockholm", OrgNr: "556000-0000"},
		inv, core.Customer{CompanyName: "BAKGATOR AB", BillingAddress: "Bakgatan 2"}, fmtr)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
	if buf.Len() < 500 {
		t.Fatalf("suspiciously small PDF: %d bytes", buf.Len())
	}
}

func TestLines(t *testing.T) {
	got := lines("a\n\n b ", "", orgLine(""), vatLine("SE1"))
	want := []string{"a", "b", "VAT no: SE1"}
	if len(got) != len(want) {
		t.Fatalf("lines() = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lines()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
