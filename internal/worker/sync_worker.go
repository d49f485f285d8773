package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	"invoicer/internal/services"
	"invoicer/internal/store"
)

// syncTracker is implemented by repositories that record export state.
type syncTracker interface {
	PendingSyncInvoices(ctx context.Context, limit int) ([]string, error)
	MarkInvoiceSynced(ctx context.Context, id string) error
	MarkInvoiceSyncError(ctx context.Context, id string) error
}

// SyncWorker handles invoice sync and reminder messages from AMQP.
type SyncWorker struct {
	invoices  store.InvoiceRepository
	exporter  services.InvoiceExporter
	tracker   syncTracker
	batchSize int
}

// NewSyncWorker exports invoices read from repo. Sync state is recorded
// when repo tracks it (the SQLite backend does).
func NewSyncWorker(repo store.InvoiceRepository, exporter services.InvoiceExporter, batchSize int) *SyncWorker {
	w := &SyncWorker{
		invoices:  repo,
		exporter:  exporter,
		batchSize: batchSize,
	}
	if t, ok := repo.(syncTracker); ok {
		w.tracker = t
	}
	return w
}

// HandleSyncMessage exports the invoice named by msg to Google Sheets.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.InvoiceSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"action", msg.Action)

	inv, err := w.invoices.GetInvoice(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Requeueing cannot make it appear.
		slog.WarnContext(ctx, "Invoice for sync message not found, dropping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get invoice from storage: %w", err)
	}

	if err := w.syncInvoiceToSheets(ctx, inv); err != nil {
		return fmt.Errorf("sync invoice to sheets: %w", err)
	}
	return nil
}

// HandleReminder records a payment reminder.
func (w *SyncWorker) HandleReminder(ctx context.Context, msg *amqp.ReminderMessage) error {
	args := []any{
		"invoice_id", msg.InvoiceID,
		"number", msg.Number,
		"customer", msg.CustomerName,
		"due_date", msg.DueDate,
		"days_left", msg.DaysLeft,
		"total", msg.Total,
	}
	if msg.DaysLeft < 0 {
		slog.WarnContext(ctx, "Invoice overdue", args...)
		return nil
	}
	slog.InfoContext(ctx, "Invoice due soon", args...)
	return nil
}

// StartupSyncCheck exports invoices still pending from before the worker
// started, covering messages lost while it was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if w.tracker == nil {
		slog.DebugContext(ctx, "Repository does not track sync state, skipping startup check")
		return nil
	}
	ids, err := w.tracker.PendingSyncInvoices(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending invoices for startup check: %w", err)
	}
	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending invoices found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending invoices on startup, processing...", "count", len(ids))

	successCount, errorCount := 0, 0
	for _, id := range ids {
		inv, err := w.invoices.GetInvoice(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get invoice for startup sync", "id", id, "error", err)
			w.markError(ctx, id)
			errorCount++
			continue
		}
		if err := w.syncInvoiceToSheets(ctx, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to sync invoice during startup", "id", id, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(ids),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

func (w *SyncWorker) syncInvoiceToSheets(ctx context.Context, inv core.Invoice) error {
	ref, err := w.exporter.UpsertInvoice(ctx, inv)
	if err != nil {
		w.markError(ctx, inv.ID)
		return fmt.Errorf("upsert to sheets: %w", err)
	}

	if w.tracker != nil {
		if err := w.tracker.MarkInvoiceSynced(ctx, inv.ID); err != nil {
			// The sheet row is written.
			slog.ErrorContext(ctx, "Failed to mark as synced", "id", inv.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Successfully synced invoice",
		"id", inv.ID,
		"number", inv.Number,
		"sheets_ref", ref,
		"total", inv.Total.StringFixed(2))
	return nil
}

func (w *SyncWorker) markError(ctx context.Context, id string) {
	if w.tracker == nil {
		return
	}
	if err := w.tracker.MarkInvoiceSyncError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", err)
	}
}
