// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// HTML forms and JSON bodies both end up as core form values, so handlers
// never see raw numbers before core sanitizes them.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"invoicer/internal/core"
)

// maxJSONBody bounds API request bodies.
const maxJSONBody = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(trimmed, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// InvoiceForm decodes the body as an invoice form, whichever encoding
// it arrived in.
func (p *RequestBodyParser) InvoiceForm() (core.InvoiceForm, error) {
	if err := p.Parse(); err != nil {
		return core.InvoiceForm{}, err
	}
	if p.jsonData != nil {
		var req invoiceRequest
		if err := json.Unmarshal(bytes.TrimSpace(p.body), &req); err != nil {
			return core.InvoiceForm{}, err
		}
		return req.form(), nil
	}
	return ParseInvoiceForm(p.formData), nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = looseString(n.String())
	return nil
}

type itemRequest struct {
	Description string      `json:"description"`
	Quantity    looseString `json:"quantity"`
	UnitPrice   looseString `json:"unit_price"`
}

type invoiceRequest struct {
	CustomerID   string        `json:"customer_id"`
	InvoiceDate  string        `json:"invoice_date"`
	DueDate      string        `json:"due_date"`
	Items        []itemRequest `json:"items"`
	VATRate      looseString   `json:"vat_rate"`
	PaymentTerms string        `json:"payment_terms"`
	Notes        string        `json:"notes"`
}

func (r invoiceRequest) form() core.InvoiceForm {
	f := core.InvoiceForm{
		CustomerID:   sanitizeInput(r.CustomerID),
		InvoiceDate:  sanitizeInput(r.InvoiceDate),
		DueDate:      sanitizeInput(r.DueDate),
		VATRate:      string(r.VATRate),
		PaymentTerms: sanitizeInput(r.PaymentTerms),
		Notes:        sanitizeInput(r.Notes),
	}
	for _, it := range r.Items {
		f.Items = append(f.Items, core.LineItemInput{
			Description: sanitizeInput(it.Description),
			Quantity:    string(it.Quantity),
			UnitPrice:   string(it.UnitPrice),
		})
	}
	return f
}

// ParseInvoiceForm reads the invoice form fields. Line items arrive as
// parallel item_description, item_quantity and item_unit_price lists.
func ParseInvoiceForm(form url.Values) core.InvoiceForm {
	f := core.InvoiceForm{
		CustomerID:   sanitizeInput(form.Get("customer_id")),
		InvoiceDate:  sanitizeInput(form.Get("invoice_date")),
		DueDate:      sanitizeInput(form.Get("due_date")),
		VATRate:      sanitizeInput(form.Get("vat_rate")),
		PaymentTerms: sanitizeInput(form.Get("payment_terms")),
		Notes:        sanitizeInput(form.Get("notes")),
	}
	desc := form["item_description"]
	qty := form["item_quantity"]
	price := form["item_unit_price"]
	n := max(len(desc), len(qty), len(price))
	for i := 0; i < n; i++ {
		f.Items = append(f.Items, core.LineItemInput{
			Description: sanitizeInput(at(desc, i)),
			Quantity:    sanitizeInput(at(qty, i)),
			UnitPrice:   sanitizeInput(at(price, i)),
		})
	}
	return f
}

type customerRequest struct {
	CompanyName       string `json:"company_name"`
	OrgNumber         string `json:"org_number"`
	VATNumber         string `json:"vat_number"`
	BillingAddress    string `json:"billing_address"`
	ShippingAddress   string `json:"shipping_address"`
	UseCustomShipping bool   `json:"use_custom_shipping"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	ContactPerson     struct {
		Name     string `json:"name"`
		Position string `json:"position"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	} `json:"contact_person"`
}

func (r customerRequest) form() core.CustomerForm {
	return core.CustomerForm{
		CompanyName:       sanitizeInput(r.CompanyName),
		OrgNumber:         sanitizeInput(r.OrgNumber),
		VATNumber:         sanitizeInput(r.VATNumber),
		BillingAddress:    sanitizeInput(r.BillingAddress),
		ShippingAddress:   sanitizeInput(r.ShippingAddress),
		UseCustomShipping: r.UseCustomShipping,
		Email:             sanitizeInput(r.Email),
		Phone:             sanitizeInput(r.Phone),
		ContactName:       sanitizeInput(r.ContactPerson.Name),
		ContactPosition:   sanitizeInput(r.ContactPerson.Position),
		ContactEmail:      sanitizeInput(r.ContactPerson.Email),
		ContactPhone:      sanitizeInput(r.ContactPerson.Phone),
	}
}

// ParseCustomerForm reads the customer form fields.
func ParseCustomerForm(form url.Values) core.CustomerForm {
	custom, _ := strconv.ParseBool(form.Get("use_custom_shipping"))
	if form.Get("use_custom_shipping") == "on" {
		custom = true
	}
	return core.CustomerForm{
		CompanyName:       sanitizeInput(form.Get("company_name")),
		OrgNumber:         sanitizeInput(form.Get("org_number")),
		VATNumber:         sanitizeInput(form.Get("vat_number")),
		BillingAddress:    sanitizeInput(form.Get("billing_address")),
		ShippingAddress:   sanitizeInput(form.Get("shipping_address")),
		UseCustomShipping: custom,
		Email:             sanitizeInput(form.Get("email")),
		Phone:             sanitizeInput(form.Get("phone")),
		ContactName:       sanitizeInput(form.Get("contact_name")),
		ContactPosition:   sanitizeInput(form.Get("contact_position")),
		ContactEmail:      sanitizeInput(form.Get("contact_email")),
		ContactPhone:      sanitizeInput(form.Get("contact_phone")),
	}
}

// ParseTimeframeParam reads the timeframe query parameter, falling back to
// the default timeframe for unknown values.
func ParseTimeframeParam(query url.Values) core.Timeframe {
	tf, err := core.ParseTimeframe(query.Get("timeframe"))
	if err != nil {
		return core.DefaultTimeframe
	}
	return tf
}

// decodeJSON decodes a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
