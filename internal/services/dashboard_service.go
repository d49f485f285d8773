package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"invoicer/internal/cache"
	"invoicer/internal/core"
	applog "invoicer/internal/log"
	"invoicer/internal/store"
)

const (
	seriesCacheSize = 16
	seriesCacheTTL  = time.Minute

	// recentInvoices is how many invoices the dashboard table lists.
	recentInvoices = 20
)

// Overview is everything the dashboard page renders.
type Overview struct {
	Summary       core.Summary
	Revenue       core.RevenueSeries
	CustomerCount int
	// Recent are the newest invoices, as ordered by the repository.
	Recent []core.Invoice
}

// DashboardService computes revenue series and invoice summaries.
type DashboardService struct {
	invoices  store.InvoiceRepository
	customers store.CustomerRepository
	series    *cache.LRUCache[core.RevenueSeries]
	window    time.Duration
	logger    *applog.StructuredLogger
	now       func() time.Time
}

// NewDashboardService caches computed series for a minute. window is the
// attention horizon for unpaid invoices; zero means core.DefaultAttentionWindow.
func NewDashboardService(invoices store.InvoiceRepository, customers store.CustomerRepository, window time.Duration) *DashboardService {
	if window <= 0 {
		window = core.DefaultAttentionWindow
	}
	return &DashboardService{
		invoices:  invoices,
		customers: customers,
		series:    cache.NewLRUCache[core.RevenueSeries](seriesCacheSize, seriesCacheTTL),
		window:    window,
		logger:    applog.NewStructuredLogger(applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentRevenue})),
		now:       time.Now,
	}
}

// Cache exposes the series cache for registration with a cache.Manager.
func (d *DashboardService) Cache() *cache.LRUCache[core.RevenueSeries] {
	return d.series
}

// Invalidate drops cached series. Call after any invoice write.
func (d *DashboardService) Invalidate() {
	d.series.Clear()
}

// Revenue aggregates all invoices for tf, served from cache when fresh.
func (d *DashboardService) Revenue(ctx context.Context, tf core.Timeframe) (core.RevenueSeries, error) {
	now := d.now()
	key := seriesKey(tf, now)
	if s, ok := d.series.Get(key); ok {
		return s, nil
	}
	invoices, err := d.invoices.ListInvoices(ctx)
	if err != nil {
		return core.RevenueSeries{}, fmt.Errorf("list invoices: %w", err)
	}
	return d.aggregate(ctx, invoices, tf, now), nil
}

// Summary returns invoice counts, amounts and the attention list.
func (d *DashboardService) Summary(ctx context.Context) (core.Summary, error) {
	invoices, err := d.invoices.ListInvoices(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list invoices: %w", err)
	}
	return core.Summarize(invoices, d.now(), d.window), nil
}

// Overview loads invoices and customers concurrently and derives the
// summary and revenue series from one invoice snapshot.
func (d *DashboardService) Overview(ctx context.Context, tf core.Timeframe) (Overview, error) {
	var (
		invoices  []core.Invoice
		customers []core.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = d.invoices.ListInvoices(gctx)
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		customers, err = d.customers.ListCustomers(gctx)
		if err != nil {
			return fmt.Errorf("list customers: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	// Always recomputed from this snapshot; refreshes the cached series.
	now := d.now()
	series := d.aggregate(ctx, invoices, tf, now)
	return Overview{
		Summary:       core.Summarize(invoices, now, d.window),
		Revenue:       series,
		CustomerCount: len(customers),
		Recent:        invoices[:min(len(invoices), recentInvoices)],
	}, nil
}

func (d *DashboardService) aggregate(ctx context.Context, invoices []core.Invoice, tf core.Timeframe, now time.Time) core.RevenueSeries {
	s := core.AggregateRevenue(invoices, tf, now)
	d.logger.LogRevenueComputed(ctx, string(tf), len(s.Buckets), s.Skipped)
	d.series.Set(seriesKey(tf, now), s)
	return s
}

// seriesKey rolls over every hour so a cached series never outlives the
// bucket containing now.
func seriesKey(tf core.Timeframe, now time.Time) string {
	return string(tf) + "|" + core.FormatDate(now) + "|" + now.Format("15")
}
