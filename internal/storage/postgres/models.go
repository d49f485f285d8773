package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

type customerRow struct {
	ID                string `gorm:"primaryKey;size:36"`
	CompanyName       string `gorm:"size:200;not null"`
	OrgNumber         string `gorm:"size:50"`
	VATNumber         string `gorm:"size:50"`
	BillingAddress    string `gorm:"type:text"`
	ShippingAddress   string `gorm:"type:text"`
	UseCustomShipping bool
	Email             string `gorm:"size:200"`
	Phone             string `gorm:"size:50"`
	ContactName       string `gorm:"size:200"`
	ContactPosition   string `gorm:"size:200"`
	ContactEmail      string `gorm:"size:200"`
	ContactPhone      string `gorm:"size:50"`
	CreatedAt         time.Time
}

func (customerRow) TableName() string { return "customers" }

type invoiceRow struct {
	ID            string          `gorm:"primaryKey;size:36"`
	InvoiceNumber string          `gorm:"size:50;uniqueIndex;not null"`
	CustomerID    string          `gorm:"size:36;index;not null"`
	Customer      *customerRow    `gorm:"foreignKey:CustomerID"`
	Date          string          `gorm:"size:10;index;not null"`
	DueDate       string          `gorm:"size:10;not null"`
	Subtotal      decimal.Decimal `gorm:"type:numeric"`
	VATRate       decimal.Decimal `gorm:"type:numeric"`
	VATAmount     decimal.Decimal `gorm:"type:numeric"`
	Total         decimal.Decimal `gorm:"type:numeric"`
	Status        string          `gorm:"size:10;default:'unpaid'"`
	PaymentTerms  string          `gorm:"size:30;default:'net30'"`
	Notes         string          `gorm:"type:text"`
	Items         []itemRow       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (invoiceRow) TableName() string { return "invoices" }

type itemRow struct {
	ID          uint            `gorm:"primaryKey"`
	InvoiceID   string          `gorm:"size:36;index;not null"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:text"`
	Quantity    decimal.Decimal `gorm:"type:numeric"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric"`
	Total       decimal.Decimal `gorm:"type:numeric"`
}

func (itemRow) TableName() string { return "invoice_items" }

type purchaseRow struct {
	ID          string          `gorm:"primaryKey;size:36"`
	Date        string          `gorm:"size:10;index;not null"`
	Description string          `gorm:"type:text;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric"`
	ImageURL    string          `gorm:"type:text"`
	CreatedAt   time.Time
}

func (purchaseRow) TableName() string { return "purchases" }

func toCustomerRow(c core.Customer) customerRow {
	return customerRow{
		ID:                c.ID,
		CompanyName:       c.CompanyName,
		OrgNumber:         c.OrgNumber,
		VATNumber:         c.VATNumber,
		BillingAddress:    c.BillingAddress,
		ShippingAddress:   c.ShippingAddress,
		UseCustomShipping: c.UseCustomShipping,
		Email:             c.Email,
		Phone:             c.Phone,
		ContactName:       c.ContactPerson.Name,
		ContactPosition:   c.ContactPerson.Position,
		ContactEmail:      c.ContactPerson.Email,
		ContactPhone:      c.ContactPerson.Phone,
		CreatedAt:         c.CreatedAt,
	}
}

func (r customerRow) toCore() core.Customer {
	return core.Customer{
		ID:                r.ID,
		CompanyName:       r.CompanyName,
		OrgNumber:         r.OrgNumber,
		VATNumber:         r.VATNumber,
		BillingAddress:    r.BillingAddress,
		ShippingAddress:   r.ShippingAddress,
		UseCustomShipping: r.UseCustomShipping,
		Email:             r.Email,
		Phone:             r.Phone,
		ContactPerson: core.ContactPerson{
			Name:     r.ContactName,
			Position: r.ContactPosition,
			Email:    r.ContactEmail,
			Phone:    r.ContactPhone,
		},
		CreatedAt: r.CreatedAt,
	}
}

func toInvoiceRow(inv core.Invoice) invoiceRow {
	row := invoiceRow{
		ID:            inv.ID,
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
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	row.Items = toItemRows(inv.ID, inv.Items)
	return row
}

func toItemRows(invoiceID string, items []core.LineItem) []itemRow {
	rows := make([]itemRow, len(items))
	for i, it := range items {
		rows[i] = itemRow{
			InvoiceID:   invoiceID,
			Position:    i,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		}
	}
	return rows
}

func (r invoiceRow) toCore() core.Invoice {
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
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Customer != nil {
		inv.CustomerName = r.Customer.CompanyName
	}
	for _, it := range r.Items {
		inv.Items = append(inv.Items, core.LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return inv
}

func (r purchaseRow) toCore() core.Purchase {
	return core.Purchase{
		ID:          r.ID,
		Date:        r.Date,
		Description: r.Description,
		Amount:      r.Amount,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
	}
}
