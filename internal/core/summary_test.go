package core

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	invoices := []Invoice{
		{Number: "A", Status: StatusPaid, DueDate: "2024-03-02", Total: dec("100")},
		{Number: "B", Status: StatusUnpaid, DueDate: "2024-03-05", Total: dec("200")},
		{Number: "C", Status: StatusUnpaid, DueDate: "2024-02-20", Total: dec("300")},
		{Number: "D", Status: StatusUnpaid, DueDate: "2024-04-01", Total: dec("400")},
		{Number: "E", Status: StatusUnpaid, DueDate: "garbage", Total: dec("1")},
		{Number: "F", Status: StatusUnpaid, DueDate: "2024-03-08", Total: dec("5")},
	}
	s := Summarize(invoices, now, DefaultAttentionWindow)

	if s.Count != 6 || s.PaidCount != 1 || s.UnpaidCount != 5 {
		t.Fatalf("counts = %d/%d/%d", s.Count, s.PaidCount, s.UnpaidCount)
	}
	if !s.Paid.Equal(dec("100")) || !s.Outstanding.Equal(dec("906")) {
		t.Fatalf("paid %s outstanding %s", s.Paid, s.Outstanding)
	}

	want := []struct {
		number string
		days   int
	}{{"C", -10}, {"B", 4}, {"F", 7}}
	if len(s.Attention) != len(want) {
		t.Fatalf("attention = %+v", s.Attention)
	}
	for i, w := range want {
		if s.Attention[i].Invoice.Number != w.number || s.Attention[i].DaysLeft != w.days {
			t.Fatalf("attention[%d] = %s/%d, want %s/%d", i, s.Attention[i].Invoice.Number, s.Attention[i].DaysLeft, w.number, w.days)
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, time.Now(), DefaultAttentionWindow)
	if s.Count != 0 || len(s.Attention) != 0 || !s.Outstanding.IsZero() {
		t.Fatalf("unexpected summary %+v", s)
	}
}
