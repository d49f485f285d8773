package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"invoicer/internal/core"
)

// InvoiceExporter writes an invoice to an external sheet and returns the
// range it landed in.
type InvoiceExporter interface {
	UpsertInvoice(ctx context.Context, inv core.Invoice) (string, error)
}

// SyncQueue is the slice of the SQLite repository the processor polls.
type SyncQueue interface {
	GetInvoice(ctx context.Context, id string) (core.Invoice, error)
	PendingSyncInvoices(ctx context.Context, limit int) ([]string, error)
	MarkInvoiceSynced(ctx context.Context, id string) error
	MarkInvoiceSyncError(ctx context.Context, id string) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending invoices (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of invoices exported per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is how many failed exports of one invoice are attempted
	// before the processor stops picking it up (default: 3)
	MaxRetries int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncProcessor exports invoices with a pending sync status when no
// message broker is configured.
type SyncProcessor struct {
	queue    SyncQueue
	exporter InvoiceExporter
	config   SyncProcessorConfig

	attempts map[string]int

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(queue SyncQueue, exporter InvoiceExporter, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		queue:    queue,
		exporter: exporter,
		config:   config,
		attempts: make(map[string]int),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch exports one batch of pending invoices and returns how many
// succeeded.
func (p *SyncProcessor) processBatch(ctx context.Context) int {
	// Exhausted invoices are skipped below, so fetch enough to fill a batch.
	ids, err := p.queue.PendingSyncInvoices(ctx, p.config.BatchSize+len(p.attempts))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to get pending invoices", "error", err)
		return 0
	}

	synced, handled := 0, 0
	for _, id := range ids {
		if handled >= p.config.BatchSize {
			break
		}
		if p.attempts[id] >= p.config.MaxRetries {
			continue
		}
		select {
		case <-p.stopCh:
			return synced
		case <-ctx.Done():
			return synced
		default:
		}

		handled++
		if err := p.export(ctx, id); err != nil {
			p.handleFailure(ctx, id, err)
			continue
		}
		delete(p.attempts, id)
		synced++
	}
	if handled > 0 {
		slog.DebugContext(ctx, "Processed sync batch", "count", handled, "synced", synced)
	}
	return synced
}

func (p *SyncProcessor) export(ctx context.Context, id string) error {
	inv, err := p.queue.GetInvoice(ctx, id)
	if err != nil {
		return fmt.Errorf("get invoice %s: %w", id, err)
	}
	ref, err := p.exporter.UpsertInvoice(ctx, inv)
	if err != nil {
		return fmt.Errorf("upsert to sheets: %w", err)
	}
	if err := p.queue.MarkInvoiceSynced(ctx, id); err != nil {
		// The row is written; the next poll re-upserts the same row.
		slog.WarnContext(ctx, "Failed to mark invoice as synced", "id", id, "error", err)
	}
	slog.InfoContext(ctx, "Synced invoice to Google Sheets",
		"id", id, "number", inv.Number, "sheets_ref", ref)
	return nil
}

func (p *SyncProcessor) handleFailure(ctx context.Context, id string, exportErr error) {
	p.attempts[id]++
	slog.WarnContext(ctx, "Sync processing failed",
		"id", id, "attempt", p.attempts[id], "error", exportErr)

	if err := p.queue.MarkInvoiceSyncError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark invoice sync error", "id", id, "error", err)
	}
	if p.attempts[id] >= p.config.MaxRetries {
		slog.ErrorContext(ctx, "Invoice sync failed permanently after max retries",
			"id", id, "attempts", p.attempts[id])
	}
}
