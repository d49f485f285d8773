package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
	"invoicer/internal/pdf"
)

type invoiceFormPage struct {
	Title        string
	Active       string
	Customers    []core.Customer
	CustomerID   string
	Today        string
	VATRate      string
	PaymentTerms []string
	DefaultTerms string
}

func (s *Server) handleInvoiceForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	customers, err := s.invoices.ListCustomers(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Customer list error", "error", err)
		http.Error(w, "Failed to load customers", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "invoice_form_page", invoiceFormPage{
		Title:        "New invoice",
		Active:       "invoices",
		Customers:    customers,
		CustomerID:   r.URL.Query().Get("customer_id"),
		Today:        core.FormatDate(time.Now()),
		VATRate:      s.vatRate.String(),
		PaymentTerms: core.PaymentTermNames(),
		DefaultTerms: core.DefaultPaymentTerms,
	})
}

// withDefaultVAT fills an empty VAT rate with the configured default.
func (s *Server) withDefaultVAT(f core.InvoiceForm) core.InvoiceForm {
	if strings.TrimSpace(f.VATRate) == "" {
		f.VATRate = s.vatRate.String()
	}
	return f
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	inv, err := s.invoices.CreateInvoice(ctx, s.withDefaultVAT(ParseInvoiceForm(r.PostForm)))
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}
	s.countInvoice()

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerInvoiceCreated(inv.ID, inv.Number).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Invoice %s created", inv.Number)).
		Header("HX-Redirect", "/").
		Write(w)
}

// handleSetStatus toggles an invoice between paid and unpaid and returns
// the refreshed table row.
func (s *Server) handleSetStatus(status core.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		inv, err := s.invoices.SetStatus(ctx, r.PathValue("id"), status)
		if err != nil {
			writeHTMLError(w, r, err)
			return
		}

		if !isHTMX(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		var buf bytes.Buffer
		if err := s.templates.ExecuteTemplate(&buf, "invoice_row", inv); err != nil {
			s.logger.ErrorContext(ctx, "Template execution failed", "template", "invoice_row", "error", err)
			InternalServerError("Failed to render invoice").Write(w)
			return
		}
		NewHTMXResponse().
			TriggerInvoiceUpdated(inv.ID, string(inv.Status)).
			TriggerSuccessNotification(fmt.Sprintf("Invoice %s marked as %s", inv.Number, inv.Status)).
			BodyHTML(buf.String()).
			Write(w)
	}
}

// invoiceText is the plain-text export of an invoice.
func (s *Server) invoiceText(inv core.Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice #%s\n", inv.Number)
	fmt.Fprintf(&b, "Customer: %s\n", inv.CustomerName)
	fmt.Fprintf(&b, "Date: %s\n", inv.Date)
	fmt.Fprintf(&b, "Due date: %s\n", inv.DueDate)
	for _, it := range inv.Items {
		fmt.Fprintf(&b, "  %s  %s x %s = %s\n", it.Description, it.Quantity, s.money.Format(it.UnitPrice), s.money.Format(it.Total))
	}
	fmt.Fprintf(&b, "Subtotal: %s\n", s.money.Format(inv.Subtotal))
	fmt.Fprintf(&b, "VAT (%s%%): %s\n", inv.VATRate.String(), s.money.Format(inv.VATAmount))
	fmt.Fprintf(&b, "Amount: %s\n", s.money.Format(inv.Total))
	fmt.Fprintf(&b, "Status: %s\n", inv.Status)
	return b.String()
}

func (s *Server) handleDownloadInvoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	inv, err := s.invoices.GetInvoice(ctx, r.PathValue("id"))
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.txt"`, inv.Number))
	_, _ = fmt.Fprint(w, s.invoiceText(inv))
}

func (s *Server) handlePrintInvoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	inv, err := s.invoices.GetInvoice(ctx, r.PathValue("id"))
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}
	s.render(w, r, "invoice_print", struct {
		Invoice core.Invoice
		Seller  pdf.Seller
	}{inv, s.seller})
}

func (s *Server) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	inv, err := s.invoices.GetInvoice(ctx, r.PathValue("id"))
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}
	// A deleted customer still prints from the name stored on the invoice.
	customer, err := s.invoices.GetCustomer(ctx, inv.CustomerID)
	if err != nil {
		s.logger.WarnContext(ctx, "Customer for invoice PDF not found", "invoice_id", inv.ID, "customer_id", inv.CustomerID, "error", err)
		customer = core.Customer{}
	}

	var buf bytes.Buffer
	if err := pdf.Render(&buf, s.seller, inv, customer, s.money); err != nil {
		s.logger.ErrorContext(ctx, "PDF render failed", "invoice_id", inv.ID, "error", err)
		http.Error(w, "Failed to render PDF", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="invoice-%s.pdf"`, inv.Number))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleAPIListInvoices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	invoices, err := s.invoices.ListInvoices(ctx)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}

	var filter core.Status
	if v := r.URL.Query().Get("status"); v != "" {
		if filter, err = core.ParseStatus(v); err != nil {
			writeJSONError(w, r, err)
			return
		}
	}
	out := make([]invoiceJSON, 0, len(invoices))
	for _, inv := range invoices {
		if filter != "" && inv.Status != filter {
			continue
		}
		out = append(out, toInvoiceJSON(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIGetInvoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	inv, err := s.invoices.GetInvoice(ctx, r.PathValue("id"))
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceJSON(inv))
}

func (s *Server) handleAPICreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	inv, err := s.invoices.CreateInvoice(ctx, s.withDefaultVAT(req.form()))
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	s.countInvoice()
	w.Header().Set("Location", "/api/invoices/"+inv.ID)
	writeJSON(w, http.StatusCreated, toInvoiceJSON(inv))
}

func (s *Server) handleAPIUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	inv, err := s.invoices.UpdateInvoice(ctx, r.PathValue("id"), s.withDefaultVAT(req.form()))
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceJSON(inv))
}

// handleTotalsPreview recomputes totals as the invoice form is edited.
// HTMX requests get the totals fragment, others JSON.
func (s *Server) handleTotalsPreview(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	form, err := parser.InvoiceForm()
	if err != nil {
		if isHTMX(r) {
			BadRequestError("Invalid request format").Write(w)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	form = s.withDefaultVAT(form)
	totals := form.Preview()

	rows := make([]decimal.Decimal, len(form.Items))
	for i, it := range form.Items {
		rows[i] = core.SanitizeAmount(it.Quantity).Mul(core.SanitizeAmount(it.UnitPrice))
	}

	if isHTMX(r) {
		s.render(w, r, "invoice_totals", struct {
			Rows   []decimal.Decimal
			Totals core.Totals
			Rate   decimal.Decimal
		}{rows, totals, form.Rate()})
		return
	}

	out := totalsJSON{
		Items:     make([]string, len(rows)),
		Subtotal:  money(totals.Subtotal),
		VATAmount: money(totals.VATAmount),
		Total:     money(totals.Total),
	}
	for i, row := range rows {
		out.Items[i] = money(row)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleQuote serves the price calculator: a discounted quote, or a
// production estimate when mode=production.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	vat := s.vatRate
	if v := parser.Get("vat_rate"); v != "" {
		vat = core.SanitizeAmount(v)
	}

	var q core.Quote
	if parser.Get("mode") == "production" {
		q = core.ProductionEstimate{
			BaseRate:           core.SanitizeAmount(parser.Get("base_rate")),
			Hours:              core.SanitizeAmount(parser.Get("hours")),
			EditingRate:        core.SanitizeAmount(parser.Get("editing_rate")),
			EditingHours:       core.SanitizeAmount(parser.Get("editing_hours")),
			AdditionalServices: core.SanitizeAmount(parser.Get("additional_services")),
			EquipmentCosts:     core.SanitizeAmount(parser.Get("equipment_costs")),
			TravelExpenses:     core.SanitizeAmount(parser.Get("travel_expenses")),
			VATRate:            vat,
		}.Calculate()
	} else {
		q = core.CalculateQuote(
			core.SanitizeAmount(parser.Get("amount")),
			core.SanitizeAmount(parser.Get("discount")),
			vat)
	}

	if isHTMX(r) {
		s.render(w, r, "quote_result", q)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteJSON(q))
}
