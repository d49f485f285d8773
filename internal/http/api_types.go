package http

import (
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

// JSON views. Money is rendered as a fixed two-decimal string.

type lineItemJSON struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

type invoiceJSON struct {
	ID           string         `json:"id"`
	Number       string         `json:"invoice_number"`
	CustomerID   string         `json:"customer_id"`
	CustomerName string         `json:"customer_name"`
	Date         string         `json:"invoice_date"`
	DueDate      string         `json:"due_date"`
	Items        []lineItemJSON `json:"items"`
	Subtotal     string         `json:"subtotal"`
	VATRate      string         `json:"vat_rate"`
	VATAmount    string         `json:"vat_amount"`
	Total        string         `json:"total"`
	Status       string         `json:"status"`
	PaymentTerms string         `json:"payment_terms,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func toInvoiceJSON(inv core.Invoice) invoiceJSON {
	out := invoiceJSON{
		ID:           inv.ID,
		Number:       inv.Number,
		CustomerID:   inv.CustomerID,
		CustomerName: inv.CustomerName,
		Date:         inv.Date,
		DueDate:      inv.DueDate,
		Items:        make([]lineItemJSON, 0, len(inv.Items)),
		Subtotal:     money(inv.Subtotal),
		VATRate:      inv.VATRate.String(),
		VATAmount:    money(inv.VATAmount),
		Total:        money(inv.Total),
		Status:       string(inv.Status),
		PaymentTerms: inv.PaymentTerms,
		Notes:        inv.Notes,
		CreatedAt:    inv.CreatedAt,
	}
	for _, it := range inv.Items {
		out.Items = append(out.Items, lineItemJSON{
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   money(it.UnitPrice),
			Total:       money(it.Total),
		})
	}
	return out
}

type contactJSON struct {
	Name     string `json:"name,omitempty"`
	Position string `json:"position,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type customerJSON struct {
	ID                string      `json:"id"`
	CompanyName       string      `json:"company_name"`
	OrgNumber         string      `json:"org_number,omitempty"`
	VATNumber         string      `json:"vat_number,omitempty"`
	BillingAddress    string      `json:"billing_address,omitempty"`
	ShippingAddress   string      `json:"shipping_address,omitempty"`
	UseCustomShipping bool        `json:"use_custom_shipping"`
	Email             string      `json:"email,omitempty"`
	Phone             string      `json:"phone,omitempty"`
	ContactPerson     contactJSON `json:"contact_person"`
	CreatedAt         time.Time   `json:"created_at"`
}

func toCustomerJSON(c core.Customer) customerJSON {
	return customerJSON{
		ID:                c.ID,
		CompanyName:       c.CompanyName,
		OrgNumber:         c.OrgNumber,
		VATNumber:         c.VATNumber,
		BillingAddress:    c.BillingAddress,
		ShippingAddress:   c.ShippingAddress,
		UseCustomShipping: c.UseCustomShipping,
		Email:             c.Email,
		Phone:             c.Phone,
		ContactPerson: contactJSON{
			Name:     c.ContactPerson.Name,
			Position: c.ContactPerson.Position,
			Email:    c.ContactPerson.Email,
			Phone:    c.ContactPerson.Phone,
		},
		CreatedAt: c.CreatedAt,
	}
}

type bucketJSON struct {
	Label  string `json:"label"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Amount string `json:"amount"`
}

type revenueJSON struct {
	Timeframe string       `json:"timeframe"`
	Buckets   []bucketJSON `json:"buckets"`
	Total     string       `json:"total"`
	Max       string       `json:"max"`
	Skipped   int          `json:"skipped"`
}

func toRevenueJSON(s core.RevenueSeries) revenueJSON {
	out := revenueJSON{
		Timeframe: string(s.Timeframe),
		Buckets:   make([]bucketJSON, 0, len(s.Buckets)),
		Total:     money(s.Total),
		Skipped:   s.Skipped,
	}
	top, _ := s.Max()
	out.Max = money(top)
	for _, b := range s.Buckets {
		out.Buckets = append(out.Buckets, bucketJSON{
			Label:  b.Label,
			Start:  b.Start.Format(time.RFC3339),
			End:    b.End.Format(time.RFC3339),
			Amount: money(b.Amount),
		})
	}
	return out
}

type dueInvoiceJSON struct {
	ID           string `json:"id"`
	Number       string `json:"invoice_number"`
	CustomerName string `json:"customer_name"`
	DueDate      string `json:"due_date"`
	DaysLeft     int    `json:"days_left"`
	Total        string `json:"total"`
}

type summaryJSON struct {
	Count       int              `json:"count"`
	PaidCount   int              `json:"paid_count"`
	UnpaidCount int              `json:"unpaid_count"`
	Paid        string           `json:"paid"`
	Outstanding string           `json:"outstanding"`
	Attention   []dueInvoiceJSON `json:"attention"`
}

func toSummaryJSON(s core.Summary) summaryJSON {
	out := summaryJSON{
		Count:       s.Count,
		PaidCount:   s.PaidCount,
		UnpaidCount: s.UnpaidCount,
		Paid:        money(s.Paid),
		Outstanding: money(s.Outstanding),
		Attention:   make([]dueInvoiceJSON, 0, len(s.Attention)),
	}
	for _, d := range s.Attention {
		out.Attention = append(out.Attention, dueInvoiceJSON{
			ID:           d.Invoice.ID,
			Number:       d.Invoice.Number,
			CustomerName: d.Invoice.CustomerName,
			DueDate:      d.Invoice.DueDate,
			DaysLeft:     d.DaysLeft,
			Total:        money(d.Invoice.Total),
		})
	}
	return out
}

type totalsJSON struct {
	Items     []string `json:"items"`
	Subtotal  string   `json:"subtotal"`
	VATAmount string   `json:"vat_amount"`
	Total     string   `json:"total"`
}

type quoteJSON struct {
	Subtotal       string `json:"subtotal"`
	DiscountRate   string `json:"discount_rate"`
	DiscountAmount string `json:"discount_amount"`
	AfterDiscount  string `json:"after_discount"`
	VATRate        string `json:"vat_rate"`
	VATAmount      string `json:"vat_amount"`
	Total          string `json:"total"`
}

func toQuoteJSON(q core.Quote) quoteJSON {
	return quoteJSON{
		Subtotal:       money(q.Subtotal),
		DiscountRate:   q.DiscountRate.String(),
		DiscountAmount: money(q.DiscountAmount),
		AfterDiscount:  money(q.AfterDiscount),
		VATRate:        q.VATRate.String(),
		VATAmount:      money(q.VATAmount),
		Total:          money(q.Total),
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
