package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

// Row is one exported invoice as read back from the sheet.
type Row struct {
	Number   string
	Customer string
	Date     string
	DueDate  string
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
	Status   core.Status
}

func invoiceRow(inv core.Invoice) []any {
	return []any{
		inv.Number,
		inv.CustomerName,
		inv.Date,
		inv.DueDate,
		inv.Subtotal.StringFixed(2),
		inv.VATAmount.StringFixed(2),
		inv.Total.StringFixed(2),
		string(inv.Status),
	}
}

// parseRow accepts rows edited by hand: amounts may use a decimal comma
// and status is case-insensitive. Rows without a number are skipped.
func parseRow(cols []string) (Row, bool) {
	if len(cols) == 0 || strings.TrimSpace(cols[0]) == "" {
		return Row{}, false
	}
	r := Row{
		Number:   strings.TrimSpace(cols[0]),
		Customer: safeGet(cols, 1),
		Date:     safeGet(cols, 2),
		DueDate:  safeGet(cols, 3),
		Subtotal: core.SanitizeAmount(safeGet(cols, 4)),
		VAT:      core.SanitizeAmount(safeGet(cols, 5)),
		Total:    core.SanitizeAmount(safeGet(cols, 6)),
		Status:   core.StatusUnpaid,
	}
	if s, err := core.ParseStatus(safeGet(cols, 7)); err == nil {
		r.Status = s
	}
	return r, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return strings.TrimSpace(arr[idx])
}
