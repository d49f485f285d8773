package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	customers []core.Customer
	invoices  []core.Invoice
	purchases []core.Purchase
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewSeeded returns a store holding one demo customer and its unpaid
// 10 000 kr invoice for local development.
func NewSeeded() *Store {
	s := New()
	c, _ := s.CreateCustomer(context.Background(), core.Customer{
		CompanyName:    "BAKGATOR AB",
		OrgNumber:      "556677-8899",
		VATNumber:      "SE556677889901",
		BillingAddress: "Storgatan 1, 111 22 Stockholm",
		Email:          "info@bakgator.se",
		ContactPerson:  core.ContactPerson{Name: "Anna Berg", Position: "CFO"},
	})
	inv := core.Invoice{
		Number:       "INV-1708387200000",
		CustomerID:   c.ID,
		CustomerName: c.CompanyName,
		Date:         "2024-02-20",
		DueDate:      "2024-03-21",
		Items: []core.LineItem{{
			Description: "Video production",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(8000),
		}},
		VATRate:      core.DefaultVATRate,
		Status:       core.StatusUnpaid,
		PaymentTerms: core.TermsNet30,
	}
	inv.ApplyTotals()
	_, _ = s.CreateInvoice(context.Background(), inv)
	return s
}

func (s *Store) ListInvoices(_ context.Context) ([]core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Invoice, len(s.invoices))
	for i, inv := range s.invoices {
		out[i] = cloneInvoice(inv)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.invoiceIndex(id)
	if i < 0 {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	return cloneInvoice(s.invoices[i]), nil
}

func (s *Store) CreateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	inv.ID = uuid.NewString()
	inv.CreatedAt, inv.UpdatedAt = now, now
	inv = cloneInvoice(inv)
	s.invoices = append(s.invoices, inv)
	return cloneInvoice(inv), nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.invoiceIndex(inv.ID)
	if i < 0 {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", inv.ID, core.ErrNotFound)
	}
	inv.CreatedAt = s.invoices[i].CreatedAt
	inv.UpdatedAt = s.now().UTC()
	s.invoices[i] = cloneInvoice(inv)
	return cloneInvoice(inv), nil
}

func (s *Store) SetInvoiceStatus(_ context.Context, id string, status core.Status) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.invoiceIndex(id)
	if i < 0 {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	s.invoices[i].Status = status
	s.invoices[i].UpdatedAt = s.now().UTC()
	return cloneInvoice(s.invoices[i]), nil
}

func (s *Store) ListCustomers(_ context.Context) ([]core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Customer(nil), s.customers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompanyName < out[j].CompanyName })
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Customer{}, fmt.Errorf("customer %s: %w", id, core.ErrNotFound)
}

func (s *Store) CreateCustomer(_ context.Context, c core.Customer) (core.Customer, error) {
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = s.now().UTC()
	s.customers = append(s.customers, c)
	return c, nil
}

func (s *Store) ListPurchases(_ context.Context) ([]core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Purchase(nil), s.purchases...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) CreatePurchase(_ context.Context, p core.Purchase) (core.Purchase, error) {
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()
	s.purchases = append(s.purchases, p)
	return p, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) invoiceIndex(id string) int {
	for i, inv := range s.invoices {
		if inv.ID == id {
			return i
		}
	}
	return -1
}

// cloneInvoice copies the item slice so callers never share backing arrays
// with the store.
func cloneInvoice(inv core.Invoice) core.Invoice {
	inv.Items = append([]core.LineItem(nil), inv.Items...)
	return inv
}
