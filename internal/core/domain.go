package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPaid   Status = "paid"
	StatusUnpaid Status = "unpaid"
)

// DateLayout is the calendar-date format invoices and purchases are stored in.
const DateLayout = "2006-01-02"

type (
	Status string

	// LineItem is a single billable row of an invoice. Total is derived
	// from Quantity and UnitPrice and must be refreshed with Recompute.
	LineItem struct {
		Description string
		Quantity    decimal.Decimal
		UnitPrice   decimal.Decimal
		Total       decimal.Decimal
	}

	Invoice struct {
		ID           string
		Number       string
		CustomerID   string
		CustomerName string
		Date         string // YYYY-MM-DD
		DueDate      string // YYYY-MM-DD
		Items        []LineItem
		Subtotal     decimal.Decimal
		VATRate      decimal.Decimal // percent, 0-100
		VATAmount    decimal.Decimal
		Total        decimal.Decimal
		Status       Status
		PaymentTerms string
		Notes        string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	ContactPerson struct {
		Name     string
		Position string
		Email    string
		Phone    string
	}

	Customer struct {
		ID                string
		CompanyName       string
		OrgNumber         string
		VATNumber         string
		BillingAddress    string
		ShippingAddress   string
		UseCustomShipping bool
		Email             string
		Phone             string
		ContactPerson     ContactPerson
		CreatedAt         time.Time
	}

	// Purchase is a bookkeeping receipt: an expense with an optional image.
	Purchase struct {
		ID          string
		Date        string // YYYY-MM-DD
		Description string
		Amount      decimal.Decimal
		ImageURL    string
		CreatedAt   time.Time
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidVATRate    = errors.New("VAT rate must be between 0 and 100")
	ErrEmptyCompanyName  = errors.New("empty company name")
	ErrEmptyDescription  = errors.New("empty description")
	ErrMissingCustomer   = errors.New("customer is required")
	ErrNoItems           = errors.New("invoice needs at least one item")
	ErrDueBeforeDate     = errors.New("due date is before invoice date")
	ErrInvalidTimeframe  = errors.New("invalid timeframe")
	ErrUnknownTerms      = errors.New("unknown payment terms")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
)

// ParseStatus accepts "paid" or "unpaid", case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPaid:
		return StatusPaid, nil
	case StatusUnpaid:
		return StatusUnpaid, nil
	}
	return "", ErrInvalidStatus
}

// Recompute refreshes Total from Quantity and UnitPrice.
func (li *LineItem) Recompute() {
	li.Total = li.Quantity.Mul(li.UnitPrice)
}

// ShippingAddressOrBilling returns the address goods are shipped to.
func (c Customer) ShippingAddressOrBilling() string {
	if c.UseCustomShipping && strings.TrimSpace(c.ShippingAddress) != "" {
		return c.ShippingAddress
	}
	return c.BillingAddress
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.CompanyName) == "" {
		return ErrEmptyCompanyName
	}
	return nil
}

func (inv Invoice) Validate() error {
	if strings.TrimSpace(inv.CustomerID) == "" {
		return ErrMissingCustomer
	}
	if len(inv.Items) == 0 {
		return ErrNoItems
	}
	date, err := ParseDate(inv.Date)
	if err != nil {
		return err
	}
	due, err := ParseDate(inv.DueDate)
	if err != nil {
		return err
	}
	if due.Before(date) {
		return ErrDueBeforeDate
	}
	if inv.VATRate.IsNegative() || inv.VATRate.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidVATRate
	}
	if inv.Status != StatusPaid && inv.Status != StatusUnpaid {
		return ErrInvalidStatus
	}
	for _, it := range inv.Items {
		if it.Quantity.IsNegative() || it.UnitPrice.IsNegative() {
			return ErrInvalidAmount
		}
	}
	return nil
}

func (p Purchase) Validate() error {
	if _, err := ParseDate(p.Date); err != nil {
		return err
	}
	if strings.TrimSpace(p.Description) == "" {
		return ErrEmptyDescription
	}
	if len(p.Description) > 200 {
		return ErrDescriptionLength
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ParseDate parses a calendar date. Full RFC 3339 timestamps are accepted
// too and truncated to their date in their own offset.
func ParseDate(s string) (time.Time, error) {
	return ParseDateIn(s, time.UTC)
}

// ParseDateIn parses a calendar date as midnight in loc.
func ParseDateIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	return time.Time{}, ErrInvalidDate
}

// FormatDate renders t as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
