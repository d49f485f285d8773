package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItemInput is one row of the invoice form as typed by the user.
type LineItemInput struct {
	Description string
	Quantity    string
	UnitPrice   string
}

// InvoiceForm is the state of the invoice form. Numbers stay as entered
// until Build sanitizes them.
type InvoiceForm struct {
	CustomerID   string
	InvoiceDate  string
	DueDate      string
	Items        []LineItemInput
	VATRate      string
	PaymentTerms string
	Notes        string
}

// Lines converts the item rows into line items with fresh totals. Rows
// that are entirely blank are dropped.
func (f InvoiceForm) Lines() []LineItem {
	lines := make([]LineItem, 0, len(f.Items))
	for _, in := range f.Items {
		if strings.TrimSpace(in.Description) == "" && strings.TrimSpace(in.Quantity) == "" && strings.TrimSpace(in.UnitPrice) == "" {
			continue
		}
		li := LineItem{
			Description: strings.TrimSpace(in.Description),
			Quantity:    SanitizeAmount(in.Quantity),
			UnitPrice:   SanitizeAmount(in.UnitPrice),
		}
		li.Recompute()
		lines = append(lines, li)
	}
	return lines
}

// Rate returns the VAT rate of the form, DefaultVATRate when left empty.
func (f InvoiceForm) Rate() decimal.Decimal {
	if strings.TrimSpace(f.VATRate) == "" {
		return DefaultVATRate
	}
	return SanitizeAmount(f.VATRate)
}

// Preview computes the totals the form would produce.
func (f InvoiceForm) Preview() Totals {
	return CalculateTotals(f.Lines(), f.Rate())
}

// Build validates the form and produces an unpaid invoice for customer.
// A missing invoice date defaults to today and a missing due date is
// derived from the payment terms.
func (f InvoiceForm) Build(customer Customer, now time.Time) (Invoice, error) {
	if strings.TrimSpace(f.CustomerID) == "" {
		return Invoice{}, ErrMissingCustomer
	}
	terms := strings.TrimSpace(f.PaymentTerms)
	if terms == "" {
		terms = DefaultPaymentTerms
	}
	if _, err := GetDueDateRule(terms); err != nil {
		return Invoice{}, err
	}

	date := strings.TrimSpace(f.InvoiceDate)
	if date == "" {
		date = FormatDate(now)
	} else {
		d, err := ParseDate(date)
		if err != nil {
			return Invoice{}, err
		}
		date = FormatDate(d)
	}
	due := strings.TrimSpace(f.DueDate)
	if due == "" {
		var err error
		if due, err = DueDateFor(terms, date); err != nil {
			return Invoice{}, err
		}
	} else {
		d, err := ParseDate(due)
		if err != nil {
			return Invoice{}, err
		}
		due = FormatDate(d)
	}

	inv := Invoice{
		Number:       NewInvoiceNumber(now),
		CustomerID:   f.CustomerID,
		CustomerName: customer.CompanyName,
		Date:         date,
		DueDate:      due,
		Items:        f.Lines(),
		VATRate:      f.Rate(),
		Status:       StatusUnpaid,
		PaymentTerms: terms,
		Notes:        strings.TrimSpace(f.Notes),
	}
	inv.ApplyTotals()
	if err := inv.Validate(); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// NewInvoiceNumber derives a display number from the creation time.
func NewInvoiceNumber(now time.Time) string {
	return "INV-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// CustomerForm is the state of the customer form.
type CustomerForm struct {
	CompanyName       string
	OrgNumber         string
	VATNumber         string
	BillingAddress    string
	ShippingAddress   string
	UseCustomShipping bool
	Email             string
	Phone             string
	ContactName       string
	ContactPosition   string
	ContactEmail      string
	ContactPhone      string
}

// Build trims the fields and validates the resulting customer. Without a
// custom shipping address the billing address is used for both.
func (f CustomerForm) Build() (Customer, error) {
	c := Customer{
		CompanyName:       strings.TrimSpace(f.CompanyName),
		OrgNumber:         strings.TrimSpace(f.OrgNumber),
		VATNumber:         strings.TrimSpace(f.VATNumber),
		BillingAddress:    strings.TrimSpace(f.BillingAddress),
		ShippingAddress:   strings.TrimSpace(f.ShippingAddress),
		UseCustomShipping: f.UseCustomShipping,
		Email:             strings.TrimSpace(f.Email),
		Phone:             strings.TrimSpace(f.Phone),
		ContactPerson: ContactPerson{
			Name:     strings.TrimSpace(f.ContactName),
			Position: strings.TrimSpace(f.ContactPosition),
			Email:    strings.TrimSpace(f.ContactEmail),
			Phone:    strings.TrimSpace(f.ContactPhone),
		},
	}
	if !c.UseCustomShipping {
		c.ShippingAddress = c.BillingAddress
	}
	if err := c.Validate(); err != nil {
		return Customer{}, err
	}
	return c, nil
}
