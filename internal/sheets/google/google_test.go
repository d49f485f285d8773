package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"invoicer/internal/core"
)

// fakeSheet serves the two Values endpoints the client uses.
type fakeSheet struct {
	mu     sync.Mutex
	rows   map[int][]any
	reads  int
	writes []string
}

var rowRange = regexp.MustCompile(`!A(\d+):H\d+$`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := strings.Index(r.URL.Path, "/values/")
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	rng := r.URL.Path[i+len("/values/"):]
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		f.reads++
		last := 0
		for n := range f.rows {
			if n > last {
				last = n
			}
		}
		values := make([][]any, last)
		for n := 1; n <= last; n++ {
			row := f.rows[n]
			if strings.HasSuffix(rng, "!A:A") && len(row) > 0 {
				row = row[:1]
			}
			if row == nil {
				row = []any{}
			}
			values[n-1] = row
		}
		json.NewEncoder(w).Encode(gsheet.ValueRange{Range: rng, Values: values})
	case http.MethodPut:
		m := rowRange.FindStringSubmatch(rng)
		if m == nil {
			http.Error(w, "bad range "+rng, http.StatusBadRequest)
			return
		}
		n, _ := strconv.Atoi(m[1])
		var body gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&body)
		f.rows[n] = body.Values[0]
		f.writes = append(f.writes, rng)
		json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRange: rng})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func newFakeClient(t *testing.T, f *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewWithService(svc, "sheet-id", "")
}

func testInvoice(number string, status core.Status) core.Invoice {
	return core.Invoice{
		Number:       number,
		CustomerName: "BAKGATOR AB",
		Date:         "2024-02-20",
		DueDate:      "2024-03-21",
		Subtotal:     decimal.NewFromInt(8000),
		VATAmount:    decimal.NewFromInt(2000),
		Total:        decimal.NewFromInt(10000),
		Status:       status,
	}
}

func TestUpsertInvoiceEmptySheetWritesHeader(t *testing.T) {
	f := &fakeSheet{rows: map[int][]any{}}
	c := newFakeClient(t, f)

	ref, err := c.UpsertInvoice(context.Background(), testInvoice("INV-1", core.StatusUnpaid))
	if err != nil {
		t.Fatalf("UpsertInvoice() error = %v", err)
	}
	if ref != "Invoices!A2:H2" {
		t.Fatalf("ref = %q", ref)
	}
	if got := f.rows[1]; len(got) != len(Header) || got[0] != "Number" {
		t.Fatalf("header row = %v", got)
	}
	if got := f.rows[2]; got[0] != "INV-1" || got[6] != "10000.00" || got[7] != "unpaid" {
		t.Fatalf("invoice row = %v", got)
	}
}

func TestUpsertInvoiceUpdatesExistingRow(t *testing.T) {
	f := &fakeSheet{rows: map[int][]any{
		1: Header,
		2: {"INV-1", "A", "2024-01-01", "2024-01-31", "1", "0", "1", "unpaid"},
		3: {"INV-2", "B", "2024-01-02", "2024-02-01", "2", "0", "2", "unpaid"},
	}}
	c := newFakeClient(t, f)
	ctx := context.Background()

	ref, err := c.UpsertInvoice(ctx, testInvoice("INV-1", core.StatusPaid))
	if err != nil || ref != "Invoices!A2:H2" {
		t.Fatalf("UpsertInvoice(INV-1) = %q, %v", ref, err)
	}
	ref, err = c.UpsertInvoice(ctx, testInvoice("INV-3", core.StatusUnpaid))
	if err != nil || ref != "Invoices!A4:H4" {
		t.Fatalf("UpsertInvoice(INV-3) = %q, %v", ref, err)
	}
	if f.reads != 1 {
		t.Fatalf("row index should be cached, got %d reads", f.reads)
	}

	rows, err := c.ListRows(ctx)
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if len(rows) != 3 || rows[0].Status != core.StatusPaid || !rows[0].Total.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestRowCacheExpiration(t *testing.T) {
	f := &fakeSheet{rows: map[int][]any{1: Header}}
	c := newFakeClient(t, f)
	now := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := c.UpsertInvoice(ctx, testInvoice("INV-1", core.StatusUnpaid)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(c.cacheValidDuration + time.Second)
	if _, err := c.UpsertInvoice(ctx, testInvoice("INV-2", core.StatusUnpaid)); err != nil {
		t.Fatal(err)
	}
	if f.reads != 2 {
		t.Fatalf("expired cache should reload, got %d reads", f.reads)
	}

	c.InvalidateRowCache()
	if _, err := c.UpsertInvoice(ctx, testInvoice("INV-2", core.StatusPaid)); err != nil {
		t.Fatal(err)
	}
	if f.reads != 3 || f.writes[len(f.writes)-1] != "Invoices!A3:H3" {
		t.Fatalf("reads %d writes %v", f.reads, f.writes)
	}
}

func TestUpsertInvoiceRequiresServiceAndNumber(t *testing.T) {
	c := &Client{}
	if _, err := c.UpsertInvoice(context.Background(), testInvoice("INV-1", core.StatusPaid)); err == nil {
		t.Fatal("expected error without service")
	}
	c = newFakeClient(t, &fakeSheet{rows: map[int][]any{}})
	if _, err := c.UpsertInvoice(context.Background(), testInvoice(" ", core.StatusPaid)); err == nil {
		t.Fatal("expected error for blank number")
	}
}

func TestNewMissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		ok   bool
		want Row
	}{
		{"blank number", []string{"", "x"}, false, Row{}},
		{"hand edited", []string{"INV-9", "Acme", "2024-01-01", "2024-01-31", "1 000,50", "250,125", "1250,625", "PAID"}, true,
			Row{Number: "INV-9", Customer: "Acme", Date: "2024-01-01", DueDate: "2024-01-31",
				Subtotal: decimal.RequireFromString("1000.50"), VAT: decimal.RequireFromString("250.125"),
				Total: decimal.RequireFromString("1250.625"), Status: core.StatusPaid}},
		{"short row", []string{"INV-10"}, true, Row{Number: "INV-10", Status: core.StatusUnpaid}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRow(tt.cols)
			if ok != tt.ok {
				t.Fatalf("ok = %v", ok)
			}
			if !ok {
				return
			}
			if got.Number != tt.want.Number || got.Customer != tt.want.Customer || got.Status != tt.want.Status ||
				!got.Subtotal.Equal(tt.want.Subtotal) || !got.VAT.Equal(tt.want.VAT) || !got.Total.Equal(tt.want.Total) {
				t.Fatalf("parseRow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
