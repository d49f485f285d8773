package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"invoicer/internal/core"

	_ "modernc.org/sqlite"
)

// Sync states of an invoice row with respect to the spreadsheet export.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, selectInvoices+` ORDER BY i.date DESC, i.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []core.Invoice
	index := map[string]int{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		index[inv.ID] = len(invoices)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}

	items, err := r.db.QueryContext(ctx, selectAllItems)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer items.Close()
	for items.Next() {
		invoiceID, li, err := scanItem(items)
		if err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		if i, ok := index[invoiceID]; ok {
			invoices[i].Items = append(invoices[i].Items, li)
		}
	}
	if err := items.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice items: %w", err)
	}
	return invoices, nil
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	return r.getInvoice(ctx, r.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SQLiteRepository) getInvoice(ctx context.Context, q querier, id string) (core.Invoice, error) {
	inv, err := scanInvoice(q.QueryRowContext(ctx, selectInvoices+` WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}

	rows, err := q.QueryContext(ctx, selectItemsByInvoice, id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		_, li, err := scanItem(rows)
		if err != nil {
			return core.Invoice{}, fmt.Errorf("scan invoice item: %w", err)
		}
		inv.Items = append(inv.Items, li)
	}
	return inv, rows.Err()
}

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	now := r.now().UTC()
	inv.ID = uuid.NewString()
	inv.CreatedAt, inv.UpdatedAt = now, now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, insertInvoice,
			inv.ID, inv.Number, inv.CustomerID, inv.Date, inv.DueDate,
			inv.Subtotal, inv.VATRate, inv.VATAmount, inv.Total,
			string(inv.Status), inv.PaymentTerms, inv.Notes,
			now.Format(timeLayout), now.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		return insertItems(ctx, tx, inv.ID, inv.Items)
	})
	if err != nil {
		return core.Invoice{}, err
	}

	slog.InfoContext(ctx, "Invoice saved to SQLite",
		"id", inv.ID,
		"number", inv.Number,
		"total", inv.Total.String())
	return r.GetInvoice(ctx, inv.ID)
}

func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	now := r.now().UTC()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateInvoice,
			inv.Number, inv.CustomerID, inv.Date, inv.DueDate,
			inv.Subtotal, inv.VATRate, inv.VATAmount, inv.Total,
			string(inv.Status), inv.PaymentTerms, inv.Notes,
			now.Format(timeLayout), inv.ID)
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("invoice %s: %w", inv.ID, core.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, deleteItemsByInvoice, inv.ID); err != nil {
			return fmt.Errorf("delete invoice items: %w", err)
		}
		return insertItems(ctx, tx, inv.ID, inv.Items)
	})
	if err != nil {
		return core.Invoice{}, err
	}
	return r.GetInvoice(ctx, inv.ID)
}

func (r *SQLiteRepository) SetInvoiceStatus(ctx context.Context, id string, status core.Status) (core.Invoice, error) {
	res, err := r.db.ExecContext(ctx, updateInvoiceStatus, string(status), r.now().UTC().Format(timeLayout), id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	return r.GetInvoice(ctx, id)
}

// MarkInvoiceSynced records a successful spreadsheet export.
func (r *SQLiteRepository) MarkInvoiceSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, updateSyncStatus, SyncSynced, id); err != nil {
		return fmt.Errorf("mark invoice synced: %w", err)
	}
	slog.InfoContext(ctx, "Invoice marked as synced", "id", id)
	return nil
}

// MarkInvoiceSyncError records a failed spreadsheet export.
func (r *SQLiteRepository) MarkInvoiceSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, updateSyncStatus, SyncError, id); err != nil {
		return fmt.Errorf("mark invoice sync error: %w", err)
	}
	slog.WarnContext(ctx, "Invoice marked with sync error", "id", id)
	return nil
}

// PendingSyncInvoices returns up to limit invoice IDs not yet exported.
func (r *SQLiteRepository) PendingSyncInvoices(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, selectPendingSync, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync invoices: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending invoice: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	rows, err := r.db.QueryContext(ctx, selectCustomers+` ORDER BY company_name`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	var out []core.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCustomer(ctx context.Context, id string) (core.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, selectCustomers+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, fmt.Errorf("customer %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = r.now().UTC()
	_, err := r.db.ExecContext(ctx, insertCustomer,
		c.ID, c.CompanyName, c.OrgNumber, c.VATNumber, c.BillingAddress, c.ShippingAddress,
		c.UseCustomShipping, c.Email, c.Phone,
		c.ContactPerson.Name, c.ContactPerson.Position, c.ContactPerson.Email, c.ContactPerson.Phone,
		c.CreatedAt.Format(timeLayout))
	if err != nil {
		return core.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	slog.InfoContext(ctx, "Customer saved to SQLite", "id", c.ID, "company", c.CompanyName)
	return c, nil
}

func (r *SQLiteRepository) ListPurchases(ctx context.Context) ([]core.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, selectPurchases)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()
	var out []core.Purchase
	for rows.Next() {
		var (
			p       core.Purchase
			created string
		)
		if err := rows.Scan(&p.ID, &p.Date, &p.Description, &p.Amount, &p.ImageURL, &created); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreatePurchase(ctx context.Context, p core.Purchase) (core.Purchase, error) {
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt = r.now().UTC()
	_, err := r.db.ExecContext(ctx, insertPurchase,
		p.ID, p.Date, p.Description, p.Amount, p.ImageURL, p.CreatedAt.Format(timeLayout))
	if err != nil {
		return core.Purchase{}, fmt.Errorf("insert purchase: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, invoiceID string, items []core.LineItem) error {
	for i, it := range items {
		if _, err := tx.ExecContext(ctx, insertItem, invoiceID, i, it.Description, it.Quantity, it.UnitPrice, it.Total); err != nil {
			return fmt.Errorf("insert invoice item %d: %w", i, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(s scanner) (core.Invoice, error) {
	var (
		inv              core.Invoice
		status           string
		created, updated string
	)
	err := s.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.CustomerName, &inv.Date, &inv.DueDate,
		&inv.Subtotal, &inv.VATRate, &inv.VATAmount, &inv.Total,
		&status, &inv.PaymentTerms, &inv.Notes, &created, &updated)
	if err != nil {
		return core.Invoice{}, err
	}
	inv.Status = core.Status(status)
	inv.CreatedAt = parseTime(created)
	inv.UpdatedAt = parseTime(updated)
	return inv, nil
}

func scanItem(s scanner) (string, core.LineItem, error) {
	var (
		invoiceID string
		li        core.LineItem
	)
	if err := s.Scan(&invoiceID, &li.Description, &li.Quantity, &li.UnitPrice, &li.Total); err != nil {
		return "", core.LineItem{}, err
	}
	return invoiceID, li, nil
}

func scanCustomer(s scanner) (core.Customer, error) {
	var (
		c       core.Customer
		created string
	)
	err := s.Scan(&c.ID, &c.CompanyName, &c.OrgNumber, &c.VATNumber, &c.BillingAddress, &c.ShippingAddress,
		&c.UseCustomShipping, &c.Email, &c.Phone,
		&c.ContactPerson.Name, &c.ContactPerson.Position, &c.ContactPerson.Email, &c.ContactPerson.Phone,
		&created)
	if err != nil {
		return core.Customer{}, err
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
