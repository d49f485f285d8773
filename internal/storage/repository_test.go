package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
	"invoicer/internal/store"
)

var _ store.Repository = (*SQLiteRepository)(nil)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "invoicer.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleInvoice(customerID string) core.Invoice {
	inv := core.Invoice{
		Number:       "INV-1",
		CustomerID:   customerID,
		Date:         "2024-02-20",
		DueDate:      "2024-03-21",
		VATRate:      decimal.NewFromInt(25),
		Status:       core.StatusUnpaid,
		PaymentTerms: core.TermsNet30,
		Items: []core.LineItem{
			{Description: "Filming", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)},
			{Description: "Editing", Quantity: decimal.RequireFromString("1.5"), UnitPrice: decimal.RequireFromString("99.90")},
		},
	}
	inv.ApplyTotals()
	return inv
}

func TestSQLiteInvoiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	c, err := repo.CreateCustomer(ctx, core.Customer{CompanyName: "BAKGATOR AB", UseCustomShipping: true, ShippingAddress: "Lager 2"})
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}

	created, err := repo.CreateInvoice(ctx, sampleInvoice(c.ID))
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if created.ID == "" || created.CustomerName != "BAKGATOR AB" {
		t.Fatalf("unexpected invoice %+v", created)
	}
	if len(created.Items) != 2 || created.Items[1].Description != "Editing" {
		t.Fatalf("items not preserved in order: %+v", created.Items)
	}
	if !created.Total.Equal(decimal.RequireFromString("312.3125")) {
		t.Fatalf("total = %s, want full precision 312.3125", created.Total)
	}

	paid, err := repo.SetInvoiceStatus(ctx, created.ID, core.StatusPaid)
	if err != nil || paid.Status != core.StatusPaid {
		t.Fatalf("SetInvoiceStatus() = %+v, %v", paid, err)
	}

	paid.Items = paid.Items[:1]
	paid.ApplyTotals()
	updated, err := repo.UpdateInvoice(ctx, paid)
	if err != nil {
		t.Fatalf("UpdateInvoice() error = %v", err)
	}
	if len(updated.Items) != 1 || !updated.Total.Equal(decimal.NewFromInt(125)) {
		t.Fatalf("unexpected update %+v", updated)
	}

	list, err := repo.ListInvoices(ctx)
	if err != nil || len(list) != 1 || len(list[0].Items) != 1 {
		t.Fatalf("ListInvoices() = %+v, %v", list, err)
	}

	got, err := repo.GetCustomer(ctx, c.ID)
	if err != nil || !got.UseCustomShipping || got.ShippingAddress != "Lager 2" {
		t.Fatalf("GetCustomer() = %+v, %v", got, err)
	}
}

func TestSQLiteNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.GetInvoice(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetInvoice err = %v", err)
	}
	if _, err := repo.SetInvoiceStatus(ctx, "missing", core.StatusPaid); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("SetInvoiceStatus err = %v", err)
	}
	if _, err := repo.UpdateInvoice(ctx, core.Invoice{ID: "missing", Status: core.StatusPaid}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("UpdateInvoice err = %v", err)
	}
	if _, err := repo.GetCustomer(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetCustomer err = %v", err)
	}
}

func TestSQLiteRejectsUnknownCustomer(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.CreateInvoice(context.Background(), sampleInvoice("ghost")); err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestSQLiteSyncStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c, _ := repo.CreateCustomer(ctx, core.Customer{CompanyName: "A"})
	inv, err := repo.CreateInvoice(ctx, sampleInvoice(c.ID))
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}

	pending, err := repo.PendingSyncInvoices(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0] != inv.ID {
		t.Fatalf("PendingSyncInvoices() = %v, %v", pending, err)
	}
	if err := repo.MarkInvoiceSynced(ctx, inv.ID); err != nil {
		t.Fatalf("MarkInvoiceSynced() error = %v", err)
	}
	if pending, _ := repo.PendingSyncInvoices(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected no pending invoices, got %v", pending)
	}

	// A status change makes the row pending again.
	if _, err := repo.SetInvoiceStatus(ctx, inv.ID, core.StatusPaid); err != nil {
		t.Fatalf("SetInvoiceStatus() error = %v", err)
	}
	if pending, _ := repo.PendingSyncInvoices(ctx, 10); len(pending) != 1 {
		t.Fatalf("expected invoice pending after status change, got %v", pending)
	}
}

func TestSQLitePurchases(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.CreatePurchase(ctx, core.Purchase{Date: "bad"}); err == nil {
		t.Fatal("expected validation error")
	}
	p, err := repo.CreatePurchase(ctx, core.Purchase{Date: "2024-04-01", Description: "SD cards", Amount: decimal.RequireFromString("349.50"), ImageURL: "/uploads/a.jpg"})
	if err != nil {
		t.Fatalf("CreatePurchase() error = %v", err)
	}
	list, err := repo.ListPurchases(ctx)
	if err != nil || len(list) != 1 || list[0].ID != p.ID || !list[0].Amount.Equal(decimal.RequireFromString("349.5")) {
		t.Fatalf("ListPurchases() = %+v, %v", list, err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}
