package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAttentionWindow is how far ahead the dashboard looks for unpaid
// invoices that are about to fall due.
const DefaultAttentionWindow = 7 * 24 * time.Hour

// DueInvoice is an unpaid invoice together with its days until due.
// DaysLeft is negative once the invoice is overdue.
type DueInvoice struct {
	Invoice  Invoice
	DaysLeft int
}

// Summary is the dashboard overview of all invoices.
type Summary struct {
	Count       int
	PaidCount   int
	UnpaidCount int
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
	// Attention holds unpaid invoices due within the window, overdue
	// ones included, soonest first.
	Attention []DueInvoice
}

// Summarize counts invoices by status and collects those needing attention.
// Invoices with unparseable due dates are counted but never flagged.
func Summarize(invoices []Invoice, now time.Time, window time.Duration) Summary {
	s := Summary{Paid: decimal.Zero, Outstanding: decimal.Zero}
	today := startOfDay(now)
	horizon := today.Add(window)
	for _, inv := range invoices {
		s.Count++
		if inv.Status == StatusPaid {
			s.PaidCount++
			s.Paid = s.Paid.Add(inv.Total)
			continue
		}
		s.UnpaidCount++
		s.Outstanding = s.Outstanding.Add(inv.Total)

		due, err := ParseDateIn(inv.DueDate, now.Location())
		if err != nil || due.After(horizon) {
			continue
		}
		s.Attention = append(s.Attention, DueInvoice{
			Invoice:  inv,
			DaysLeft: daysBetween(today, due),
		})
	}
	sort.SliceStable(s.Attention, func(i, j int) bool {
		return s.Attention[i].DaysLeft < s.Attention[j].DaysLeft
	})
	return s
}

// DueWithin returns unpaid invoices due within window of now.
func DueWithin(invoices []Invoice, now time.Time, window time.Duration) []DueInvoice {
	return Summarize(invoices, now, window).Attention
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
