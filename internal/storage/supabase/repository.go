// Package supabase reads and writes the hosted Supabase tables through
// the PostgREST API.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"invoicer/internal/core"
)

const invoiceSelect = "*,customers(company_name),invoice_items(*)"

type Config struct {
	URL     string
	Key     string
	UserID  string
	Timeout time.Duration
}

// Repository is a resty-backed implementation of store.Repository.
type Repository struct {
	http   *resty.Client
	userID string
}

// apiError is the PostgREST error payload.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func New(cfg Config) *Repository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := strings.TrimSuffix(cfg.URL, "/")

	client := resty.New().
		SetBaseURL(base+"/rest/v1").
		SetHeader("apikey", cfg.Key).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Key)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Repository{http: client, userID: cfg.UserID}
}

func (r *Repository) Close() error { return nil }

func (r *Repository) Ping(ctx context.Context) error {
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{"select": "id", "limit": "1"}).
		Get("/customers")
	return check(resp, err, "ping supabase")
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		msg := resp.Status()
		if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
			msg = e.Message
		}
		return fmt.Errorf("%s: supabase error: status=%d, message=%s", op, resp.StatusCode(), msg)
	}
	return nil
}

func (r *Repository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	var rows []invoiceRecord
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{"select": invoiceSelect, "order": "date.desc,created_at.desc"}).
		SetResult(&rows).
		SetError(&apiError{}).
		Get("/invoices")
	if err := check(resp, err, "list invoices"); err != nil {
		return nil, err
	}
	out := make([]core.Invoice, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	var rows []invoiceRecord
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{"select": invoiceSelect, "id": "eq." + id}).
		SetResult(&rows).
		SetError(&apiError{}).
		Get("/invoices")
	if err := check(resp, err, "get invoice"); err != nil {
		return core.Invoice{}, err
	}
	if len(rows) == 0 {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	return rows[0].toCore(), nil
}

func (r *Repository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	var created []invoiceRecord
	resp, err := r.http.R().SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]invoiceRecord{toInvoiceRecord(inv, r.userID)}).
		SetResult(&created).
		SetError(&apiError{}).
		Post("/invoices")
	if err := check(resp, err, "create invoice"); err != nil {
		return core.Invoice{}, err
	}
	if len(created) == 0 {
		return core.Invoice{}, fmt.Errorf("create invoice: empty representation")
	}
	id := created[0].ID
	if err := r.insertItems(ctx, id, inv.Items); err != nil {
		// Each PostgREST request commits on its own; drop the orphaned row.
		if rbErr := r.deleteInvoice(context.WithoutCancel(ctx), id); rbErr != nil {
			return core.Invoice{}, errors.Join(err, fmt.Errorf("rollback invoice %s: %w", id, rbErr))
		}
		return core.Invoice{}, err
	}
	return r.GetInvoice(ctx, id)
}

func (r *Repository) deleteInvoice(ctx context.Context, id string) error {
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		SetError(&apiError{}).
		Delete("/invoices")
	return check(resp, err, "delete invoice")
}

func (r *Repository) deleteItems(ctx context.Context, invoiceID string) error {
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParam("invoice_id", "eq."+invoiceID).
		SetError(&apiError{}).
		Delete("/invoice_items")
	return check(resp, err, "delete invoice items")
}

func (r *Repository) insertItems(ctx context.Context, invoiceID string, items []core.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	resp, err := r.http.R().SetContext(ctx).
		SetBody(toItemRecords(invoiceID, items)).
		SetError(&apiError{}).
		Post("/invoice_items")
	return check(resp, err, "create invoice items")
}

func (r *Repository) patchInvoice(ctx context.Context, id string, body any) error {
	var updated []invoiceRecord
	resp, err := r.http.R().SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+id).
		SetBody(body).
		SetResult(&updated).
		SetError(&apiError{}).
		Patch("/invoices")
	if err := check(resp, err, "update invoice"); err != nil {
		return err
	}
	if len(updated) == 0 {
		return fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// UpdateInvoice replaces the invoice row and its items. If any step after
// the first write fails, the previous row and items are written back.
func (r *Repository) UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	prev, err := r.GetInvoice(ctx, inv.ID)
	if err != nil {
		return core.Invoice{}, err
	}

	rec := toInvoiceRecord(inv, "")
	now := time.Now().UTC()
	rec.UpdatedAt = &now
	if err := r.patchInvoice(ctx, inv.ID, rec); err != nil {
		return core.Invoice{}, err
	}
	if err := r.replaceItems(ctx, inv.ID, inv.Items); err != nil {
		if rbErr := r.restoreInvoice(context.WithoutCancel(ctx), prev); rbErr != nil {
			return core.Invoice{}, errors.Join(err, fmt.Errorf("restore invoice %s: %w", inv.ID, rbErr))
		}
		return core.Invoice{}, err
	}
	return r.GetInvoice(ctx, inv.ID)
}

func (r *Repository) replaceItems(ctx context.Context, invoiceID string, items []core.LineItem) error {
	if err := r.deleteItems(ctx, invoiceID); err != nil {
		return err
	}
	return r.insertItems(ctx, invoiceID, items)
}

func (r *Repository) restoreInvoice(ctx context.Context, prev core.Invoice) error {
	body := map[string]any{
		"invoice_number": prev.Number,
		"customer_id":    prev.CustomerID,
		"date":           prev.Date,
		"due_date":       prev.DueDate,
		"subtotal":       prev.Subtotal,
		"vat_rate":       prev.VATRate,
		"vat_amount":     prev.VATAmount,
		"total":          prev.Total,
		"status":         string(prev.Status),
		"payment_terms":  prev.PaymentTerms,
		"notes":          prev.Notes,
	}
	if err := r.patchInvoice(ctx, prev.ID, body); err != nil {
		return err
	}
	return r.replaceItems(ctx, prev.ID, prev.Items)
}

func (r *Repository) SetInvoiceStatus(ctx context.Context, id string, status core.Status) (core.Invoice, error) {
	body := map[string]any{"status": string(status), "updated_at": time.Now().UTC()}
	if err := r.patchInvoice(ctx, id, body); err != nil {
		return core.Invoice{}, err
	}
	return r.GetInvoice(ctx, id)
}

func (r *Repository) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	var rows []customerRecord
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{"select": "*", "order": "company_name.asc"}).
		SetResult(&rows).
		SetError(&apiError{}).
		Get("/customers")
	if err := check(resp, err, "list customers"); err != nil {
		return nil, err
	}
	out := make([]core.Customer, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *Repository) GetCustomer(ctx context.Context, id string) (core.Customer, error) {
	var rows []customerRecord
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{"select": "*", "id": "eq." + id}).
		SetResult(&rows).
		SetError(&apiError{}).
		Get("/customers")
	if err := check(resp, err, "get customer"); err != nil {
		return core.Customer{}, err
	}
	if len(rows) == 0 {
		return core.Customer{}, fmt.Errorf("customer %s: %w", id, core.ErrNotFound)
	}
	return rows[0].toCore(), nil
}

func (r *Repository) CreateCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	rec := customerRecord{
		UserID:                r.userID,
		CompanyName:           c.CompanyName,
		OrgNumber:             c.OrgNumber,
		VATNumber:             c.VATNumber,
		BillingAddress:        c.BillingAddress,
		ShippingAddress:       c.ShippingAddressOrBilling(),
		Email:                 c.Email,
		Phone:                 c.Phone,
		ContactPersonName:     c.ContactPerson.Name,
		ContactPersonPosition: c.ContactPerson.Position,
		ContactPersonEmail:    c.ContactPerson.Email,
		ContactPersonPhone:    c.ContactPerson.Phone,
	}
	var created []customerRecord
	resp, err := r.http.R().SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]customerRecord{rec}).
		SetResult(&created).
		SetError(&apiError{}).
		Post("/customers")
	if err := check(resp, err, "create customer"); err != nil {
		return core.Customer{}, err
	}
	if len(created) == 0 {
		return core.Customer{}, fmt.Errorf("create customer: empty representation")
	}
	return created[0].toCore(), nil
}

func (r *Repository) ListPurchases(ctx context.Context) ([]core.Purchase, error) {
	var rows []purchaseRecord
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{"select": "*", "order": "date.desc"}).
		SetResult(&rows).
		SetError(&apiError{}).
		Get("/purchases")
	if err := check(resp, err, "list purchases"); err != nil {
		return nil, err
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
	rec := purchaseRecord{UserID: r.userID, Date: p.Date, Description: p.Description, Amount: p.Amount, ImageURL: p.ImageURL}
	var created []purchaseRecord
	resp, err := r.http.R().SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]purchaseRecord{rec}).
		SetResult(&created).
		SetError(&apiError{}).
		Post("/purchases")
	if err := check(resp, err, "create purchase"); err != nil {
		return core.Purchase{}, err
	}
	if len(created) == 0 {
		return core.Purchase{}, fmt.Errorf("create purchase: empty representation")
	}
	return created[0].toCore(), nil
}
