package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady pings every registered dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, "error", err)
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	cacheEntries := make(map[string]int, len(s.caches))
	for name, c := range s.caches {
		cacheEntries[name] = c.Size()
	}
	checks["cache"] = map[string]interface{}{
		"entries": cacheEntries,
		"status":  "ok",
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "Responses with a 4xx status", "counter", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("invoices_created_total", "Invoices created through the server", "counter", atomic.LoadInt64(&s.appMetrics.invoicesCreated))
	metric("customers_created_total", "Customers created through the server", "counter", atomic.LoadInt64(&s.appMetrics.customersCreated))
	metric("receipts_uploaded_total", "Purchase receipts uploaded", "counter", atomic.LoadInt64(&s.appMetrics.receiptsUploaded))

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "cache_entries{type=%q} %d\n", name, s.caches[name].Size())
	}
	fmt.Fprintln(w)

	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "Suspicious requests rejected", "counter", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}

// render executes a named template, logging failures.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed", "template", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
