// Package google exports invoices to a Google Sheets tab, one row per
// invoice number.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"invoicer/internal/core"
)

const DefaultSheetName = "Invoices"

// Header is written to row 1 of an empty sheet.
var Header = []any{"Number", "Customer", "Date", "Due date", "Subtotal", "VAT", "Total", "Status"}

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	RowCacheTTL     time.Duration
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	// Row index cache: invoice number to sheet row.
	mu                 sync.Mutex
	rows               map[string]int
	nextRow            int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
	now                func() time.Time
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	c := NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName)
	if cfg.RowCacheTTL > 0 {
		c.cacheValidDuration = cfg.RowCacheTTL
	}
	return c, nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheetName
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheet:              sheet,
		cacheValidDuration: 5 * time.Minute,
		now:                time.Now,
	}
}

// newSheetsService uses inline JSON, a credentials file, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var data []byte
	switch {
	case credsJSON != "":
		data = []byte(credsJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		data = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service", "credentials_size", len(data))
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(data),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// UpsertInvoice writes inv into the row holding its number, or appends
// a new row. It returns the A1 range written.
func (c *Client) UpsertInvoice(ctx context.Context, inv core.Invoice) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(inv.Number) == "" {
		return "", errors.New("invoice number is required")
	}

	row, err := c.rowFor(ctx, inv.Number)
	if err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A%d:H%d", c.sheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{invoiceRow(inv)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		// Row numbers may be stale after a failed write.
		c.InvalidateRowCache()
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rng, nil
}

// ListRows reads every exported invoice row below the header.
func (c *Client) ListRows(ctx context.Context) ([]Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:H", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []Row
	for i, values := range resp.Values {
		if i == 0 {
			continue
		}
		if r, ok := parseRow(toStrings(values)); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) rowFor(ctx context.Context, number string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rows == nil || !c.now().Before(c.cacheExpiresAt) {
		if err := c.loadRowsLocked(ctx); err != nil {
			return 0, err
		}
	}
	if row, ok := c.rows[number]; ok {
		return row, nil
	}
	row := c.nextRow
	c.rows[number] = row
	c.nextRow++
	return row, nil
}

func (c *Client) loadRowsLocked(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	if len(resp.Values) == 0 {
		header := fmt.Sprintf("%s!A1:H1", c.sheet)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, header, &gsheet.ValueRange{Values: [][]any{Header}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		resp.Values = [][]any{{Header[0]}}
	}

	c.rows = make(map[string]int, len(resp.Values))
	for i, values := range resp.Values {
		if i == 0 || len(values) == 0 {
			continue
		}
		if n := strings.TrimSpace(fmt.Sprint(values[0])); n != "" {
			c.rows[n] = i + 1
		}
	}
	c.nextRow = len(resp.Values) + 1
	c.cacheExpiresAt = c.now().Add(c.cacheValidDuration)
	return nil
}

// InvalidateRowCache forces the next write to re-read the number column.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = nil
	c.cacheExpiresAt = time.Time{}
}
