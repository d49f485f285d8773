package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"invoicer/internal/core"
	"invoicer/internal/receipts"
)

// validationErrors are reported to the user as 422.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidStatus,
	core.ErrInvalidVATRate,
	core.ErrEmptyCompanyName,
	core.ErrEmptyDescription,
	core.ErrMissingCustomer,
	core.ErrNoItems,
	core.ErrDueBeforeDate,
	core.ErrInvalidTimeframe,
	core.ErrUnknownTerms,
	core.ErrDescriptionLength,
	receipts.ErrUnsupportedType,
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// userMessage is the text shown for err. Internal errors are not echoed.
func userMessage(err error) string {
	if errors.Is(err, core.ErrNotFound) {
		return "Not found"
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return capitalize(v.Error())
		}
	}
	return "Something went wrong, please try again"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeJSONError writes {"error": ...} with the status mapped from err.
func writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": userMessage(err)})
}

// writeHTMLError writes an HTMX error fragment with the status mapped from err.
func writeHTMLError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	ErrorResponse(status, userMessage(err)).
		TriggerErrorNotification(userMessage(err)).
		Write(w)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatDate renders a stored calendar date for display, passing
// unparseable values through unchanged.
func formatDate(s string) string {
	t, err := core.ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format("2 Jan 2006")
}
