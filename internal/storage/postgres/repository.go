// Package postgres stores invoices, customers and purchases in a hosted
// PostgreSQL database through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invoicer/internal/core"
)

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn, retrying while the database starts up, and
// migrates the schema.
func Open(dsn string, attempts int, wait time.Duration) (*Repository, error) {
	if attempts < 1 {
		attempts = 1
	}
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}
		slog.Warn("Postgres connection attempt failed", "attempt", i+1, "of", attempts, "error", err)
		if i < attempts-1 {
			time.Sleep(wait)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&customerRow{}, &invoiceRow{}, &itemRow{}, &purchaseRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) invoices(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func (r *Repository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	var rows []invoiceRow
	if err := r.invoices(ctx).Order("date DESC, created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]core.Invoice, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	var row invoiceRow
	err := r.invoices(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return row.toCore(), nil
}

func (r *Repository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	now := r.now().UTC()
	inv.ID = uuid.NewString()
	inv.CreatedAt, inv.UpdatedAt = now, now
	row := toInvoiceRow(inv)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	slog.InfoContext(ctx, "Invoice saved to Postgres", "id", inv.ID, "number", inv.Number)
	return r.GetInvoice(ctx, inv.ID)
}

func (r *Repository) UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&invoiceRow{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"invoice_number": inv.Number,
			"customer_id":    inv.CustomerID,
			"date":           inv.Date,
			"due_date":       inv.DueDate,
			"subtotal":       inv.Subtotal,
			"vat_rate":       inv.VATRate,
			"vat_amount":     inv.VATAmount,
			"total":          inv.Total,
			"status":         string(inv.Status),
			"payment_terms":  inv.PaymentTerms,
			"notes":          inv.Notes,
			"updated_at":     r.now().UTC(),
		})
		if res.Error != nil {
			return fmt.Errorf("update invoice: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("invoice %s: %w", inv.ID, core.ErrNotFound)
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&itemRow{}).Error; err != nil {
			return fmt.Errorf("delete invoice items: %w", err)
		}
		if items := toItemRows(inv.ID, inv.Items); len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("create invoice items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Invoice{}, err
	}
	return r.GetInvoice(ctx, inv.ID)
}

func (r *Repository) SetInvoiceStatus(ctx context.Context, id string, status core.Status) (core.Invoice, error) {
	res := r.db.WithContext(ctx).Model(&invoiceRow{}).Where("id = ?", id).Updates(map[string]any{
		"status":     string(status),
		"updated_at": r.now().UTC(),
	})
	if res.Error != nil {
		return core.Invoice{}, fmt.Errorf("update invoice status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	return r.GetInvoice(ctx, id)
}

func (r *Repository) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	var rows []customerRow
	if err := r.db.WithContext(ctx).Order("company_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]core.Customer, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) GetCustomer(ctx context.Context, id string) (core.Customer, error) {
	var row customerRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Customer{}, fmt.Errorf("customer %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return row.toCore(), nil
}

func (r *Repository) CreateCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = r.now().UTC()
	row := toCustomerRow(c)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (r *Repository) ListPurchases(ctx context.Context) ([]core.Purchase, error) {
	var rows []purchaseRow
	if err := r.db.WithContext(ctx).Order("date DESC, created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	out := make([]core.Purchase, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) CreatePurchase(ctx context.Context, p core.Purchase) (core.Purchase, error) {
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt = r.now().UTC()
	row := purchaseRow{ID: p.ID, Date: p.Date, Description: p.Description, Amount: p.Amount, ImageURL: p.ImageURL, CreatedAt: p.CreatedAt}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Purchase{}, fmt.Errorf("create purchase: %w", err)
	}
	return p, nil
}
