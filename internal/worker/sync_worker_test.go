package worker

import (
	"context"
	"errors"
	"testing"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	"invoicer/internal/store/memory"
)

type trackingStore struct {
	*memory.Store
	synced  []string
	errored []string
}

func (s *trackingStore) PendingSyncInvoices(ctx context.Context, limit int) ([]string, error) {
	invoices, _ := s.ListInvoices(ctx)
	var ids []string
	for _, inv := range invoices {
		if len(ids) < limit {
			ids = append(ids, inv.ID)
		}
	}
	return append(ids, "missing"), nil
}

func (s *trackingStore) MarkInvoiceSynced(_ context.Context, id string) error {
	s.synced = append(s.synced, id)
	return nil
}

func (s *trackingStore) MarkInvoiceSyncError(_ context.Context, id string) error {
	s.errored = append(s.errored, id)
	return nil
}

type recordingExporter struct {
	numbers []string
	err     error
}

func (e *recordingExporter) UpsertInvoice(_ context.Context, inv core.Invoice) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.numbers = append(e.numbers, inv.Number)
	return "Invoices!A2:H2", nil
}

func firstInvoice(t *testing.T, s *memory.Store) core.Invoice {
	t.Helper()
	invoices, err := s.ListInvoices(context.Background())
	if err != nil || len(invoices) == 0 {
		t.Fatalf("seeded store has no invoices: %v", err)
	}
	return invoices[0]
}

func TestHandleSyncMessage(t *testing.T) {
	repo := &trackingStore{Store: memory.NewSeeded()}
	exporter := &recordingExporter{}
	w := NewSyncWorker(repo, exporter, 10)
	inv := firstInvoice(t, repo.Store)

	msg := amqp.NewInvoiceSyncMessage(inv.ID, amqp.ActionCreated)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
	if len(exporter.numbers) != 1 || exporter.numbers[0] != inv.Number {
		t.Errorf("exported %v", exporter.numbers)
	}
	if len(repo.synced) != 1 || repo.synced[0] != inv.ID {
		t.Errorf("synced marks %v", repo.synced)
	}
}

func TestHandleSyncMessage_MissingInvoiceIsDropped(t *testing.T) {
	w := NewSyncWorker(memory.New(), &recordingExporter{}, 10)
	if err := w.HandleSyncMessage(context.Background(), amqp.NewInvoiceSyncMessage("nope", amqp.ActionUpdated)); err != nil {
		t.Fatalf("missing invoice should be acked, got %v", err)
	}
}

func TestHandleSyncMessage_ExportFailure(t *testing.T) {
	repo := &trackingStore{Store: memory.NewSeeded()}
	boom := errors.New("sheets unavailable")
	w := NewSyncWorker(repo, &recordingExporter{err: boom}, 10)
	inv := firstInvoice(t, repo.Store)

	err := w.HandleSyncMessage(context.Background(), amqp.NewInvoiceSyncMessage(inv.ID, amqp.ActionStatus))
	if !errors.Is(err, boom) {
		t.Fatalf("expected export error, got %v", err)
	}
	if len(repo.errored) != 1 || len(repo.synced) != 0 {
		t.Errorf("errored %v synced %v", repo.errored, repo.synced)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	repo := &trackingStore{Store: memory.NewSeeded()}
	exporter := &recordingExporter{}
	w := NewSyncWorker(repo, exporter, 10)

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	if len(exporter.numbers) != 1 {
		t.Errorf("exported %v", exporter.numbers)
	}
	if len(repo.errored) != 1 || repo.errored[0] != "missing" {
		t.Errorf("errored %v", repo.errored)
	}
}

func TestStartupSyncCheck_WithoutTracker(t *testing.T) {
	exporter := &recordingExporter{}
	w := NewSyncWorker(memory.NewSeeded(), exporter, 10)
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	if len(exporter.numbers) != 0 {
		t.Errorf("untracked repository should not export on startup, got %v", exporter.numbers)
	}
}

func TestHandleReminder(t *testing.T) {
	w := NewSyncWorker(memory.New(), &recordingExporter{}, 10)
	for _, days := range []int{-3, 0, 5} {
		if err := w.HandleReminder(context.Background(), &amqp.ReminderMessage{Number: "INV-1", DaysLeft: days}); err != nil {
			t.Errorf("HandleReminder(%d) error = %v", days, err)
		}
	}
}
