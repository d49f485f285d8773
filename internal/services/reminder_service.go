package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	"invoicer/internal/store"
)

// ReminderPublisher delivers payment reminders.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, msg amqp.ReminderMessage) error
}

// ReminderService publishes one reminder per unpaid invoice due within the
// window, overdue invoices included.
type ReminderService struct {
	invoices  store.InvoiceRepository
	publisher ReminderPublisher
	window    time.Duration
	timeout   time.Duration
	now       func() time.Time
}

func NewReminderService(invoices store.InvoiceRepository, publisher ReminderPublisher, window time.Duration) *ReminderService {
	if window <= 0 {
		window = core.DefaultAttentionWindow
	}
	return &ReminderService{
		invoices:  invoices,
		publisher: publisher,
		window:    window,
		timeout:   time.Minute,
		now:       time.Now,
	}
}

// Run publishes reminders for every invoice needing attention and returns
// how many were sent. It keeps going past individual publish failures.
func (r *ReminderService) Run(ctx context.Context) (int, error) {
	invoices, err := r.invoices.ListInvoices(ctx)
	if err != nil {
		return 0, fmt.Errorf("list invoices: %w", err)
	}

	now := r.now()
	due := core.DueWithin(invoices, now, r.window)

	var (
		sent int
		errs []error
	)
	for _, d := range due {
		msg := amqp.ReminderMessage{
			InvoiceID:    d.Invoice.ID,
			Number:       d.Invoice.Number,
			CustomerName: d.Invoice.CustomerName,
			DueDate:      d.Invoice.DueDate,
			DaysLeft:     d.DaysLeft,
			Total:        d.Invoice.Total.StringFixed(2),
			Timestamp:    now,
		}
		if err := r.publisher.PublishReminder(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("publish reminder %s: %w", d.Invoice.Number, err))
			continue
		}
		sent++
	}

	slog.InfoContext(ctx, "Payment reminders published",
		"due", len(due), "sent", sent, "failed", len(errs))
	return sent, errors.Join(errs...)
}

// Schedule registers Run on c with a standard five-field cron spec.
func (r *ReminderService) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if _, err := r.Run(runCtx); err != nil {
			slog.ErrorContext(runCtx, "Reminder run failed", "error", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule reminders %q: %w", spec, err)
	}
	return id, nil
}
