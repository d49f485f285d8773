package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validInvoice() Invoice {
	inv := Invoice{
		CustomerID: "c1",
		Date:       "2024-02-20",
		DueDate:    "2024-03-21",
		Items:      []LineItem{{Description: "Filming", Quantity: dec("2"), UnitPrice: dec("50")}},
		VATRate:    dec("25"),
		Status:     StatusUnpaid,
	}
	inv.ApplyTotals()
	return inv
}

func TestInvoiceValidate(t *testing.T) {
	if err := validInvoice().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Invoice)
		want   error
	}{
		{"missing customer", func(i *Invoice) { i.CustomerID = " " }, ErrMissingCustomer},
		{"no items", func(i *Invoice) { i.Items = nil }, ErrNoItems},
		{"bad date", func(i *Invoice) { i.Date = "20/02/2024" }, ErrInvalidDate},
		{"due before date", func(i *Invoice) { i.DueDate = "2024-02-19" }, ErrDueBeforeDate},
		{"vat over 100", func(i *Invoice) { i.VATRate = dec("101") }, ErrInvalidVATRate},
		{"negative vat", func(i *Invoice) { i.VATRate = dec("-1") }, ErrInvalidVATRate},
		{"bad status", func(i *Invoice) { i.Status = "draft" }, ErrInvalidStatus},
		{"negative quantity", func(i *Invoice) { i.Items[0].Quantity = dec("-1") }, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := validInvoice()
			tc.mutate(&inv)
			if err := inv.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCustomerShippingAddress(t *testing.T) {
	c := Customer{CompanyName: "BAKGATOR AB", BillingAddress: "Storgatan 1", ShippingAddress: "Lager 2"}
	if got := c.ShippingAddressOrBilling(); got != "Storgatan 1" {
		t.Fatalf("without custom shipping got %q", got)
	}
	c.UseCustomShipping = true
	if got := c.ShippingAddressOrBilling(); got != "Lager 2" {
		t.Fatalf("with custom shipping got %q", got)
	}
	c.ShippingAddress = ""
	if got := c.ShippingAddressOrBilling(); got != "Storgatan 1" {
		t.Fatalf("empty custom shipping should fall back, got %q", got)
	}
}

func TestPurchaseValidate(t *testing.T) {
	good := Purchase{Date: "2024-05-01", Description: "Camera battery", Amount: dec("499")}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Purchase{
		{Date: "", Description: "a", Amount: dec("1")},
		{Date: "2024-05-01", Description: "", Amount: dec("1")},
		{Date: "2024-05-01", Description: "a", Amount: dec("0")},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{"paid": StatusPaid, " UNPAID ": StatusUnpaid} {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("overdue"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-02-20", "2024-02-20", true},
		{" 2024-02-20 ", "2024-02-20", true},
		{"2024-02-20T23:30:00+01:00", "2024-02-20", true},
		{"2024-13-01", "", false},
		{"", "", false},
		{"yesterday", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || FormatDate(got) != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, FormatDate(got), err)
			}
			if got.Location() != time.UTC {
				t.Fatalf("%q expected UTC, got %v", tc.in, got.Location())
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}
