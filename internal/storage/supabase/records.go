package supabase

import (
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

type customerRecord struct {
	ID                    string    `json:"id,omitempty"`
	UserID                string    `json:"user_id,omitempty"`
	CompanyName           string    `json:"company_name"`
	OrgNumber             string    `json:"org_number,omitempty"`
	VATNumber             string    `json:"vat_number,omitempty"`
	BillingAddress        string    `json:"billing_address,omitempty"`
	ShippingAddress       string    `json:"shipping_address,omitempty"`
	Email                 string    `json:"email,omitempty"`
	Phone                 string    `json:"phone,omitempty"`
	ContactPersonName     string    `json:"contact_person_name,omitempty"`
	ContactPersonPosition string    `json:"contact_person_position,omitempty"`
	ContactPersonEmail    string    `json:"contact_person_email,omitempty"`
	ContactPersonPhone    string    `json:"contact_person_phone,omitempty"`
	CreatedAt             time.Time `json:"created_at,omitempty"`
}

func (r customerRecord) toCore() core.Customer {
	return core.Customer{
		ID:                r.ID,
		CompanyName:       r.CompanyName,
		OrgNumber:         r.OrgNumber,
		VATNumber:         r.VATNumber,
		BillingAddress:    r.BillingAddress,
		ShippingAddress:   r.ShippingAddress,
		UseCustomShipping: r.ShippingAddress != "" && r.ShippingAddress != r.BillingAddress,
		Email:             r.Email,
		Phone:             r.Phone,
		ContactPerson: core.ContactPerson{
			Name:     r.ContactPersonName,
			Position: r.ContactPersonPosition,
			Email:    r.ContactPersonEmail,
			Phone:    r.ContactPersonPhone,
		},
		CreatedAt: r.CreatedAt,
	}
}

type itemRecord struct {
	ID          string          `json:"id,omitempty"`
	InvoiceID   string          `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type invoiceRecord struct {
	ID            string          `json:"id,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    string          `json:"customer_id"`
	Date          string          `json:"date"`
	DueDate       string          `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	PaymentTerms  string          `json:"payment_terms,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`

	// Embedded resources, only present on reads.
	Customers *struct {
		CompanyName string `json:"company_name"`
	} `json:"customers,omitempty"`
	InvoiceItems []itemRecord `json:"invoice_items,omitempty"`
}

func toInvoiceRecord(inv core.Invoice, userID string) invoiceRecord {
	return invoiceRecord{
		UserID:        userID,
		InvoiceNumber: inv.Number,
		CustomerID:    inv.CustomerID,
		Date:          inv.Date,
		DueDate:       inv.DueDate,
		Subtotal:      inv.Subtotal,
		VATRate:       inv.VATRate,
		VATAmount:     inv.VATAmount,
		Total:         inv.Total,
		Status:        string(inv.Status),
		PaymentTerms:  inv.PaymentTerms,
		Notes:         inv.Notes,
	}
}

func toItemRecords(invoiceID string, items []core.LineItem) []itemRecord {
	out := make([]itemRecord, len(items))
	for i, it := range items {
		out[i] = itemRecord{
			InvoiceID:   invoiceID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		}
	}
	return out
}

func (r invoiceRecord) toCore() core.Invoice {
	inv := core.Invoice{
		ID:           r.ID,
		Number:       r.InvoiceNumber,
		CustomerID:   r.CustomerID,
		Date:         r.Date,
		DueDate:      r.DueDate,
		Subtotal:     r.Subtotal,
		VATRate:      r.VATRate,
		VATAmount:    r.VATAmount,
		Total:        r.Total,
		Status:       core.Status(r.Status),
		PaymentTerms: r.PaymentTerms,
		Notes:        r.Notes,
	}
	if r.CreatedAt != nil {
		inv.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		inv.UpdatedAt = *r.UpdatedAt
	}
	if r.Customers != nil {
		inv.CustomerName = r.Customers.CompanyName
	}
	for _, it := range r.InvoiceItems {
		inv.Items = append(inv.Items, core.LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return inv
}

type purchaseRecord struct {
	ID          string          `json:"id,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ImageURL    string          `json:"image_url,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
}

func (r purchaseRecord) toCore() core.Purchase {
	p := core.Purchase{
		ID:          r.ID,
		Date:        r.Date,
		Description: r.Description,
		Amount:      r.Amount,
		ImageURL:    r.ImageURL,
	}
	if r.CreatedAt != nil {
		p.CreatedAt = *r.CreatedAt
	}
	return p
}
