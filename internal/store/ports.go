// Package store declares the persistence ports every backend implements.
package store

import (
	"context"

	"invoicer/internal/core"
)

// Ports for outbound adapters. Missing records are reported with an error
// wrapping core.ErrNotFound.
type (
	InvoiceRepository interface {
		ListInvoices(ctx context.Context) ([]core.Invoice, error)
		GetInvoice(ctx context.Context, id string) (core.Invoice, error)
		// CreateInvoice assigns ID and timestamps and returns the stored invoice.
		CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
		// UpdateInvoice replaces the invoice and all of its items.
		UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
		SetInvoiceStatus(ctx context.Context, id string, status core.Status) (core.Invoice, error)
	}

	CustomerRepository interface {
		ListCustomers(ctx context.Context) ([]core.Customer, error)
		GetCustomer(ctx context.Context, id string) (core.Customer, error)
		CreateCustomer(ctx context.Context, c core.Customer) (core.Customer, error)
	}

	PurchaseRepository interface {
		ListPurchases(ctx context.Context) ([]core.Purchase, error)
		CreatePurchase(ctx context.Context, p core.Purchase) (core.Purchase, error)
	}

	// Repository is the full persistence surface of a backend.
	Repository interface {
		InvoiceRepository
		CustomerRepository
		PurchaseRepository
		Close() error
	}
)
