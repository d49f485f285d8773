package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLoggerJSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Format: "json", Output: &buf})
	logger.WithComponent(ComponentWorker).Info("started", "queue", "invoice_sync")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec["component"] != ComponentWorker || rec["queue"] != "invoice_sync" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestLogRevenueComputedWarnsOnSkipped(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))

	sl.LogRevenueComputed(context.Background(), "month", 25, 0)
	if buf.Len() != 0 {
		t.Fatalf("clean aggregation should log at debug only, got %s", buf.String())
	}
	sl.LogRevenueComputed(context.Background(), "month", 25, 2)
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "skipped=2") {
		t.Fatalf("expected warning with skipped count, got %s", buf.String())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithInvoice("id-1", "INV-1", "c-1", decimal.NewFromInt(125), "unpaid").
		WithError(errors.New("boom")).
		WithError(nil)
	if f[FieldTotal] != "125.00" || f[FieldError] != "boom" || f[FieldInvoiceNumber] != "INV-1" {
		t.Fatalf("unexpected fields %v", f)
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Fatalf("ToSlice() len = %d", got)
	}
}
