package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	"invoicer/internal/store/memory"
)

type fakePublisher struct {
	mu        sync.Mutex
	syncs     []string
	reminders []amqp.ReminderMessage
	err       error
}

func (f *fakePublisher) PublishInvoiceSync(_ context.Context, id, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, id+":"+action)
	return f.err
}

func (f *fakePublisher) PublishReminder(_ context.Context, msg amqp.ReminderMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reminders = append(f.reminders, msg)
	return nil
}

func seedCustomer(t *testing.T, s *memory.Store) core.Customer {
	t.Helper()
	c, err := s.CreateCustomer(context.Background(), core.Customer{CompanyName: "BAKGATOR AB"})
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	return c
}

func invoiceForm(customerID string) core.InvoiceForm {
	return core.InvoiceForm{
		CustomerID:  customerID,
		InvoiceDate: "2024-02-20",
		Items:       []core.LineItemInput{{Description: "Filming", Quantity: "2", UnitPrice: "50"}},
	}
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	repo := memory.New()
	c := seedCustomer(t, repo)
	pub := &fakePublisher{}
	svc := NewInvoiceService(repo, pub)

	changed := 0
	svc.OnChange(func() { changed++ })

	inv, err := svc.CreateInvoice(context.Background(), invoiceForm(c.ID))
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if inv.ID == "" || !inv.Total.Equal(decimal.NewFromInt(125)) || inv.CustomerName != "BAKGATOR AB" {
		t.Fatalf("unexpected invoice %+v", inv)
	}
	if len(pub.syncs) != 1 || pub.syncs[0] != inv.ID+":"+amqp.ActionCreated {
		t.Errorf("published %v", pub.syncs)
	}
	if changed != 1 {
		t.Errorf("change hooks ran %d times, want 1", changed)
	}
}

func TestInvoiceService_CreateInvoiceErrors(t *testing.T) {
	repo := memory.New()
	svc := NewInvoiceService(repo, nil)

	if _, err := svc.CreateInvoice(context.Background(), invoiceForm("")); !errors.Is(err, core.ErrMissingCustomer) {
		t.Errorf("empty customer: err = %v", err)
	}
	if _, err := svc.CreateInvoice(context.Background(), invoiceForm("nope")); !errors.Is(err, core.ErrMissingCustomer) {
		t.Errorf("unknown customer: err = %v", err)
	}

	c := seedCustomer(t, repo)
	form := invoiceForm(c.ID)
	form.Items = nil
	if _, err := svc.CreateInvoice(context.Background(), form); !errors.Is(err, core.ErrNoItems) {
		t.Errorf("no items: err = %v", err)
	}
}

func TestInvoiceService_PublishFailureDoesNotFailWrite(t *testing.T) {
	repo := memory.New()
	c := seedCustomer(t, repo)
	svc := NewInvoiceService(repo, &fakePublisher{err: errors.New("broker down")})

	inv, err := svc.CreateInvoice(context.Background(), invoiceForm(c.ID))
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if _, err := repo.GetInvoice(context.Background(), inv.ID); err != nil {
		t.Fatalf("invoice not stored: %v", err)
	}
}

func TestInvoiceService_UpdateKeepsIdentity(t *testing.T) {
	repo := memory.New()
	c := seedCustomer(t, repo)
	pub := &fakePublisher{}
	svc := NewInvoiceService(repo, pub)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, invoiceForm(c.ID))
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if _, err := svc.SetStatus(ctx, created.ID, core.StatusPaid); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}

	form := invoiceForm(c.ID)
	form.Items = []core.LineItemInput{{Description: "Editing", Quantity: "1", UnitPrice: "400"}}
	updated, err := svc.UpdateInvoice(ctx, created.ID, form)
	if err != nil {
		t.Fatalf("UpdateInvoice() error = %v", err)
	}
	if updated.Number != created.Number || updated.Status != core.StatusPaid {
		t.Errorf("identity changed: %s/%s", updated.Number, updated.Status)
	}
	if !updated.Total.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total = %s, want 500", updated.Total)
	}
	want := []string{created.ID + ":created", created.ID + ":status", created.ID + ":updated"}
	if len(pub.syncs) != len(want) {
		t.Fatalf("published %v, want %v", pub.syncs, want)
	}
	for i := range want {
		if pub.syncs[i] != want[i] {
			t.Errorf("publish %d = %s, want %s", i, pub.syncs[i], want[i])
		}
	}

	if _, err := svc.UpdateInvoice(ctx, "missing", form); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing invoice: err = %v", err)
	}
	if _, err := svc.SetStatus(ctx, created.ID, "void"); !errors.Is(err, core.ErrInvalidStatus) {
		t.Errorf("bad status: err = %v", err)
	}
}

func TestInvoiceService_CustomersAndPurchases(t *testing.T) {
	svc := NewInvoiceService(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.CreateCustomer(ctx, core.CustomerForm{CompanyName: " "}); !errors.Is(err, core.ErrEmptyCompanyName) {
		t.Errorf("blank company: err = %v", err)
	}
	c, err := svc.CreateCustomer(ctx, core.CustomerForm{CompanyName: "Acme"})
	if err != nil || c.ID == "" {
		t.Fatalf("CreateCustomer() = %+v, %v", c, err)
	}

	if _, err := svc.RecordPurchase(ctx, core.Purchase{Date: "2024-02-20", Description: "Cable", Amount: decimal.Zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount: err = %v", err)
	}
	if _, err := svc.RecordPurchase(ctx, core.Purchase{Date: "2024-02-20", Description: "Cable", Amount: decimal.NewFromInt(99)}); err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}
	ps, err := svc.ListPurchases(ctx)
	if err != nil || len(ps) != 1 {
		t.Fatalf("ListPurchases() = %v, %v", ps, err)
	}
}

func TestDashboardService_OverviewAndCache(t *testing.T) {
	repo := memory.NewSeeded()
	d := NewDashboardService(repo, repo, 0)
	d.now = func() time.Time { return time.Date(2024, 2, 25, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	o, err := d.Overview(ctx, core.TimeframeMonth)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if o.CustomerCount != 1 || o.Summary.Count != 1 || o.Summary.UnpaidCount != 1 {
		t.Fatalf("unexpected overview %+v", o)
	}
	if !o.Revenue.Total.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("revenue total = %s, want 10000", o.Revenue.Total)
	}
	if d.Cache().Size() != 1 {
		t.Fatalf("cache size = %d, want 1", d.Cache().Size())
	}

	// A write behind the service's back is invisible until invalidation.
	c, _ := repo.ListCustomers(ctx)
	extra := core.Invoice{CustomerID: c[0].ID, Date: "2024-02-21", DueDate: "2024-03-21", VATRate: decimal.Zero, Status: core.StatusUnpaid,
		Items: []core.LineItem{{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5)}}}
	extra.ApplyTotals()
	if _, err := repo.CreateInvoice(ctx, extra); err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	s, _ := d.Revenue(ctx, core.TimeframeMonth)
	if !s.Total.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("cached total = %s, want 10000", s.Total)
	}
	d.Invalidate()
	s, _ = d.Revenue(ctx, core.TimeframeMonth)
	if !s.Total.Equal(decimal.NewFromInt(10005)) {
		t.Fatalf("fresh total = %s, want 10005", s.Total)
	}
}

func TestDashboardService_OverviewUsesOneSnapshot(t *testing.T) {
	repo := memory.NewSeeded()
	d := NewDashboardService(repo, repo, 0)
	d.now = func() time.Time { return time.Date(2024, 2, 25, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	if _, err := d.Revenue(ctx, core.TimeframeMonth); err != nil {
		t.Fatalf("Revenue() error = %v", err)
	}

	c, _ := repo.ListCustomers(ctx)
	extra := core.Invoice{CustomerID: c[0].ID, Date: "2024-02-21", DueDate: "2024-03-21", VATRate: decimal.Zero, Status: core.StatusUnpaid,
		Items: []core.LineItem{{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5)}}}
	extra.ApplyTotals()
	if _, err := repo.CreateInvoice(ctx, extra); err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}

	o, err := d.Overview(ctx, core.TimeframeMonth)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if o.Summary.Count != 2 {
		t.Fatalf("summary count = %d, want 2", o.Summary.Count)
	}
	if !o.Revenue.Total.Equal(decimal.NewFromInt(10005)) {
		t.Fatalf("revenue total = %s, want 10005", o.Revenue.Total)
	}
	if s, _ := d.Revenue(ctx, core.TimeframeMonth); !s.Total.Equal(decimal.NewFromInt(10005)) {
		t.Fatalf("cached total after overview = %s, want 10005", s.Total)
	}
}

func TestDashboardService_Summary(t *testing.T) {
	repo := memory.NewSeeded()
	d := NewDashboardService(repo, repo, 30*24*time.Hour)
	d.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	s, err := d.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if len(s.Attention) != 1 || s.Attention[0].DaysLeft != 20 {
		t.Fatalf("attention = %+v", s.Attention)
	}
}

func TestReminderService_Run(t *testing.T) {
	repo := memory.NewSeeded()
	pub := &fakePublisher{}
	r := NewReminderService(repo, pub, 0)
	r.now = func() time.Time { return time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC) }

	n, err := r.Run(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Run() = %d, %v", n, err)
	}
	msg := pub.reminders[0]
	if msg.Number != "INV-1708387200000" || msg.DaysLeft != 3 || msg.Total != "10000.00" || msg.CustomerName != "BAKGATOR AB" {
		t.Errorf("unexpected reminder %+v", msg)
	}

	r.now = func() time.Time { return time.Date(2024, 2, 21, 8, 0, 0, 0, time.UTC) }
	if n, _ := r.Run(context.Background()); n != 0 {
		t.Errorf("nothing due yet, sent %d", n)
	}
}

func TestReminderService_RunReportsFailures(t *testing.T) {
	repo := memory.NewSeeded()
	r := NewReminderService(repo, &fakePublisher{err: amqp.ErrCircuitOpen}, 0)
	r.now = func() time.Time { return time.Date(2024, 3, 30, 8, 0, 0, 0, time.UTC) }

	n, err := r.Run(context.Background())
	if n != 0 || !errors.Is(err, amqp.ErrCircuitOpen) {
		t.Fatalf("Run() = %d, %v", n, err)
	}
}

func TestReminderService_Schedule(t *testing.T) {
	r := NewReminderService(memory.New(), &fakePublisher{}, 0)
	c := cron.New()

	if _, err := r.Schedule(context.Background(), c, "0 8 * * *"); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Fatalf("entries = %d, want 1", len(c.Entries()))
	}
	if _, err := r.Schedule(context.Background(), c, "every morning"); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}
