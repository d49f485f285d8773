package core

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
	TimeframeAll   Timeframe = "all"
)

// Timeframe selects the window and granularity of a revenue series.
type Timeframe string

// Timeframes in the order the dashboard toggle shows them.
var Timeframes = []Timeframe{TimeframeDay, TimeframeWeek, TimeframeMonth, TimeframeYear, TimeframeAll}

// DefaultTimeframe is used when the caller does not pick one.
const DefaultTimeframe = TimeframeMonth

// allTimeFallbackYears is how far back the all-time series reaches when
// there is no dated invoice to anchor it.
const allTimeFallbackYears = 3

// maxAllTimeMonths bounds the all-time series against absurd dates.
const maxAllTimeMonths = 100 * 12

// ParseTimeframe maps a query value to a Timeframe. An empty value
// selects DefaultTimeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultTimeframe, nil
	}
	for _, tf := range Timeframes {
		if string(tf) == s {
			return tf, nil
		}
	}
	return "", ErrInvalidTimeframe
}

// RevenueBucket covers the half-open interval [Start, End).
type RevenueBucket struct {
	Label  string
	Start  time.Time
	End    time.Time
	Amount decimal.Decimal
}

type RevenueSeries struct {
	Timeframe Timeframe
	Buckets   []RevenueBucket
	Total     decimal.Decimal
	// Skipped counts invoices whose date could not be parsed.
	Skipped int
}

// Max returns the largest bucket amount. ok is false when there are no
// buckets, so callers never scale a chart axis by an undefined maximum.
func (s RevenueSeries) Max() (decimal.Decimal, bool) {
	if len(s.Buckets) == 0 {
		return decimal.Zero, false
	}
	top := s.Buckets[0].Amount
	for _, b := range s.Buckets[1:] {
		if b.Amount.GreaterThan(top) {
			top = b.Amount
		}
	}
	return top, true
}

// AggregateRevenue sums invoice totals into the buckets of tf relative to
// now. Bucket boundaries are computed in now's location and buckets are
// returned in chronological order. Invoices with unparseable dates are
// skipped and counted, never reported as errors. The input is not modified.
func AggregateRevenue(invoices []Invoice, tf Timeframe, now time.Time) RevenueSeries {
	loc := now.Location()

	dated := make([]time.Time, len(invoices))
	valid := make([]bool, len(invoices))
	skipped := 0
	for i, inv := range invoices {
		t, err := parseInstant(inv.Date, loc)
		if err != nil {
			skipped++
			continue
		}
		dated[i], valid[i] = t, true
	}

	var buckets []RevenueBucket
	switch tf {
	case TimeframeDay:
		buckets = dayBuckets(now)
	case TimeframeWeek:
		buckets = weekBuckets(now)
	case TimeframeYear:
		buckets = yearBuckets(now)
	case TimeframeAll:
		from, ok := earliest(dated, valid)
		buckets = allTimeBuckets(now, from, ok)
	default:
		tf = TimeframeMonth
		buckets = monthBuckets(now)
	}

	series := RevenueSeries{Timeframe: tf, Buckets: buckets, Total: decimal.Zero, Skipped: skipped}
	if len(buckets) == 0 {
		return series
	}
	first, last := buckets[0].Start, buckets[len(buckets)-1].End
	for i, inv := range invoices {
		if !valid[i] {
			continue
		}
		t := dated[i]
		if t.Before(first) || !t.Before(last) {
			continue
		}
		idx := sort.Search(len(buckets), func(j int) bool { return buckets[j].End.After(t) })
		buckets[idx].Amount = buckets[idx].Amount.Add(inv.Total)
		series.Total = series.Total.Add(inv.Total)
	}
	return series
}

// parseInstant keeps the time of day of full timestamps so the day
// timeframe can place them; plain dates land at midnight in loc.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, ErrInvalidDate
}

func earliest(dated []time.Time, valid []bool) (time.Time, bool) {
	var first time.Time
	found := false
	for i, t := range dated {
		if !valid[i] {
			continue
		}
		if !found || t.Before(first) {
			first, found = t, true
		}
	}
	return first, found
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func bucket(label string, start, end time.Time) RevenueBucket {
	return RevenueBucket{Label: label, Start: start, End: end, Amount: decimal.Zero}
}

// dayBuckets splits today into six four-hour slots.
func dayBuckets(now time.Time) []RevenueBucket {
	y, m, d := now.Date()
	loc := now.Location()
	out := make([]RevenueBucket, 0, 6)
	for i := 0; i < 6; i++ {
		start := time.Date(y, m, d, i*4, 0, 0, 0, loc)
		end := time.Date(y, m, d, (i+1)*4, 0, 0, 0, loc)
		out = append(out, bucket(start.Format("15:04"), start, end))
	}
	return out
}

// weekBuckets covers Monday through Sunday of the current week.
func weekBuckets(now time.Time) []RevenueBucket {
	today := startOfDay(now)
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)
	out := make([]RevenueBucket, 0, 7)
	for i := 0; i < 7; i++ {
		start := monday.AddDate(0, 0, i)
		out = append(out, bucket(start.Format("Mon"), start, start.AddDate(0, 0, 1)))
	}
	return out
}

// monthBuckets has one bucket per day from the 1st of the month to today.
func monthBuckets(now time.Time) []RevenueBucket {
	y, m, d := now.Date()
	loc := now.Location()
	out := make([]RevenueBucket, 0, d)
	for day := 1; day <= d; day++ {
		start := time.Date(y, m, day, 0, 0, 0, 0, loc)
		end := time.Date(y, m, day+1, 0, 0, 0, 0, loc)
		out = append(out, bucket(strconv.Itoa(day), start, end))
	}
	return out
}

func yearBuckets(now time.Time) []RevenueBucket {
	y := now.Year()
	loc := now.Location()
	out := make([]RevenueBucket, 0, 12)
	for m := time.January; m <= time.December; m++ {
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		out = append(out, bucket(start.Format("Jan"), start, start.AddDate(0, 1, 0)))
	}
	return out
}

// allTimeBuckets has one bucket per month from the earliest invoice month
// (or a fixed look-back when there is none) through the current month.
func allTimeBuckets(now time.Time, from time.Time, ok bool) []RevenueBucket {
	loc := now.Location()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	var first time.Time
	if ok {
		first = time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, loc)
	} else {
		first = current.AddDate(-allTimeFallbackYears, 0, 0)
	}
	if first.After(current) {
		first = current
	}
	if limit := current.AddDate(0, -(maxAllTimeMonths - 1), 0); first.Before(limit) {
		first = limit
	}
	var out []RevenueBucket
	for start := first; !start.After(current); start = start.AddDate(0, 1, 0) {
		out = append(out, bucket(start.Format("Jan 2006"), start, start.AddDate(0, 1, 0)))
	}
	return out
}
