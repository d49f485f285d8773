package http

import (
	"context"
	"encoding/csv"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
	"invoicer/internal/services"
)

type timeframeOption struct {
	Value    core.Timeframe
	Label    string
	Selected bool
}

var timeframeLabels = map[core.Timeframe]string{
	core.TimeframeDay:   "Today",
	core.TimeframeWeek:  "Week",
	core.TimeframeMonth: "Month",
	core.TimeframeYear:  "Year",
	core.TimeframeAll:   "All time",
}

func timeframeOptions(selected core.Timeframe) []timeframeOption {
	opts := make([]timeframeOption, 0, len(core.Timeframes))
	for _, tf := range core.Timeframes {
		opts = append(opts, timeframeOption{Value: tf, Label: timeframeLabels[tf], Selected: tf == selected})
	}
	return opts
}

type revenueBar struct {
	Label  string
	Amount decimal.Decimal
	// Height is the bar height in percent of the tallest bucket.
	Height int
}

type revenueChart struct {
	Timeframe  core.Timeframe
	Timeframes []timeframeOption
	Bars       []revenueBar
	Total      decimal.Decimal
	Skipped    int
}

// newRevenueChart scales bars by the series maximum. An all-zero series
// renders flat bars.
func newRevenueChart(s core.RevenueSeries) revenueChart {
	chart := revenueChart{
		Timeframe:  s.Timeframe,
		Timeframes: timeframeOptions(s.Timeframe),
		Bars:       make([]revenueBar, 0, len(s.Buckets)),
		Total:      s.Total,
		Skipped:    s.Skipped,
	}
	top, ok := s.Max()
	for _, b := range s.Buckets {
		bar := revenueBar{Label: b.Label, Amount: b.Amount}
		if ok && top.IsPositive() {
			bar.Height = int(b.Amount.Mul(decimal.NewFromInt(100)).Div(top).Round(0).IntPart())
		}
		chart.Bars = append(chart.Bars, bar)
	}
	return chart
}

type dashboardPage struct {
	Title         string
	Active        string
	Summary       core.Summary
	CustomerCount int
	Chart         revenueChart
	Recent        []core.Invoice
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tf := ParseTimeframeParam(r.URL.Query())
	overview, err := s.dashboard.Overview(ctx, tf)
	if err != nil {
		s.logger.ErrorContext(ctx, "Dashboard overview failed", "timeframe", tf, "error", err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "dashboard_page", newDashboardPage(overview))
}

func newDashboardPage(o services.Overview) dashboardPage {
	return dashboardPage{
		Title:         "Dashboard",
		Active:        "dashboard",
		Summary:       o.Summary,
		CustomerCount: o.CustomerCount,
		Chart:         newRevenueChart(o.Revenue),
		Recent:        o.Recent,
	}
}

// handleRevenueChart renders the chart partial swapped in by the timeframe toggle.
func (s *Server) handleRevenueChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tf := ParseTimeframeParam(r.URL.Query())
	series, err := s.dashboard.Revenue(ctx, tf)
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}
	s.render(w, r, "revenue_chart", newRevenueChart(series))
}

func (s *Server) handleAPIRevenue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tf, err := core.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	series, err := s.dashboard.Revenue(ctx, tf)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		s.writeRevenueCSV(w, r, series)
		return
	}
	writeJSON(w, http.StatusOK, toRevenueJSON(series))
}

func (s *Server) writeRevenueCSV(w http.ResponseWriter, r *http.Request, series core.RevenueSeries) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="revenue-`+string(series.Timeframe)+`.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"label", "start", "end", "amount"})
	for _, b := range series.Buckets {
		_ = cw.Write([]string{b.Label, b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339), money(b.Amount)})
	}
	_ = cw.Write([]string{"total", "", "", money(series.Total)})
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to write revenue CSV", "error", err)
	}
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := s.dashboard.Summary(ctx)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryJSON(summary))
}
