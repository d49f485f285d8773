package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	applog "invoicer/internal/log"
	"invoicer/internal/store"
)

// SyncPublisher announces invoice writes to the export pipeline.
type SyncPublisher interface {
	PublishInvoiceSync(ctx context.Context, id, action string) error
}

// InvoiceService orchestrates invoice and customer writes across the
// repository and AMQP. Writes succeed once persisted; publishing is best effort.
type InvoiceService struct {
	repo      store.Repository
	publisher SyncPublisher
	logger    *applog.StructuredLogger
	now       func() time.Time

	mu       sync.Mutex
	onChange []func()
}

// NewInvoiceService wires the repository with an optional publisher.
// A nil publisher disables sync messages.
func NewInvoiceService(repo store.Repository, publisher SyncPublisher) *InvoiceService {
	return &InvoiceService{
		repo:      repo,
		publisher: publisher,
		logger:    applog.NewStructuredLogger(applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentInvoice})),
		now:       time.Now,
	}
}

// OnChange registers fn to run after every successful invoice write.
func (s *InvoiceService) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

func (s *InvoiceService) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	return s.repo.ListInvoices(ctx)
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *InvoiceService) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *InvoiceService) GetCustomer(ctx context.Context, id string) (core.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// CreateInvoice builds an invoice from form input, saves it and publishes
// a sync message.
func (s *InvoiceService) CreateInvoice(ctx context.Context, form core.InvoiceForm) (core.Invoice, error) {
	customer, err := s.customerFor(ctx, form.CustomerID)
	if err != nil {
		return core.Invoice{}, err
	}
	inv, err := form.Build(customer, s.now())
	if err != nil {
		return core.Invoice{}, fmt.Errorf("build invoice: %w", err)
	}

	created, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}
	s.logger.LogInvoiceCreated(ctx, created.ID, created.Number, created.CustomerID, created.Total)

	s.afterWrite(ctx, created.ID, amqp.ActionCreated)
	return created, nil
}

// UpdateInvoice replaces the editable fields of an invoice. Number, status
// and creation time are kept from the stored invoice.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id string, form core.InvoiceForm) (core.Invoice, error) {
	existing, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	customer, err := s.customerFor(ctx, form.CustomerID)
	if err != nil {
		return core.Invoice{}, err
	}
	inv, err := form.Build(customer, s.now())
	if err != nil {
		return core.Invoice{}, fmt.Errorf("build invoice: %w", err)
	}
	inv.ID = existing.ID
	inv.Number = existing.Number
	inv.Status = existing.Status
	inv.CreatedAt = existing.CreatedAt

	updated, err := s.repo.UpdateInvoice(ctx, inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}

	s.afterWrite(ctx, updated.ID, amqp.ActionUpdated)
	return updated, nil
}

// SetStatus marks an invoice paid or unpaid.
func (s *InvoiceService) SetStatus(ctx context.Context, id string, status core.Status) (core.Invoice, error) {
	if _, err := core.ParseStatus(string(status)); err != nil {
		return core.Invoice{}, err
	}
	inv, err := s.repo.SetInvoiceStatus(ctx, id, status)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("set invoice status: %w", err)
	}
	slog.InfoContext(ctx, "Invoice status changed", "id", id, "number", inv.Number, "status", status)

	s.afterWrite(ctx, inv.ID, amqp.ActionStatus)
	return inv, nil
}

// CreateCustomer validates and saves a customer.
func (s *InvoiceService) CreateCustomer(ctx context.Context, form core.CustomerForm) (core.Customer, error) {
	c, err := form.Build()
	if err != nil {
		return core.Customer{}, fmt.Errorf("build customer: %w", err)
	}
	created, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return core.Customer{}, fmt.Errorf("save customer: %w", err)
	}
	slog.InfoContext(ctx, "Customer created", "id", created.ID, "company", created.CompanyName)
	return created, nil
}

func (s *InvoiceService) ListPurchases(ctx context.Context) ([]core.Purchase, error) {
	return s.repo.ListPurchases(ctx)
}

// RecordPurchase validates and saves a bookkeeping purchase.
func (s *InvoiceService) RecordPurchase(ctx context.Context, p core.Purchase) (core.Purchase, error) {
	if err := p.Validate(); err != nil {
		return core.Purchase{}, fmt.Errorf("validate purchase: %w", err)
	}
	created, err := s.repo.CreatePurchase(ctx, p)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("save purchase: %w", err)
	}
	slog.InfoContext(ctx, "Purchase recorded", "id", created.ID, "amount", created.Amount.StringFixed(2))
	return created, nil
}

func (s *InvoiceService) customerFor(ctx context.Context, id string) (core.Customer, error) {
	if id == "" {
		return core.Customer{}, core.ErrMissingCustomer
	}
	c, err := s.repo.GetCustomer(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Customer{}, fmt.Errorf("customer %s: %w", id, core.ErrMissingCustomer)
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *InvoiceService) afterWrite(ctx context.Context, id, action string) {
	s.mu.Lock()
	hooks := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping sync message", "id", id)
		return
	}
	if err := s.publisher.PublishInvoiceSync(ctx, id, action); err != nil {
		// The invoice is already stored.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "action", action, "error", err)
	}
}

// Close releases the repository.
func (s *InvoiceService) Close() error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("close invoice service: %w", err)
	}
	return nil
}
