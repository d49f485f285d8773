package http

import (
	"context"
	"fmt"
	"net/http"

	"invoicer/internal/core"
)

type customersPage struct {
	Title     string
	Active    string
	Customers []core.Customer
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	customers, err := s.invoices.ListCustomers(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Customer list error", "error", err)
		http.Error(w, "Failed to load customers", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "customers_page", customersPage{
		Title:     "Customers",
		Active:    "customers",
		Customers: customers,
	})
}

func (s *Server) handleCustomerForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "customer_form_page", struct {
		Title  string
		Active string
	}{"New customer", "customers"})
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	c, err := s.invoices.CreateCustomer(ctx, ParseCustomerForm(r.PostForm))
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}
	s.countCustomer()

	if !isHTMX(r) {
		http.Redirect(w, r, "/customers", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerCustomerCreated(c.ID, c.CompanyName).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Customer %s created", c.CompanyName)).
		Header("HX-Redirect", "/customers").
		Write(w)
}

func (s *Server) handleAPIListCustomers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	customers, err := s.invoices.ListCustomers(ctx)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	out := make([]customerJSON, 0, len(customers))
	for _, c := range customers {
		out = append(out, toCustomerJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPICreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	c, err := s.invoices.CreateCustomer(ctx, req.form())
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	s.countCustomer()
	writeJSON(w, http.StatusCreated, toCustomerJSON(c))
}
