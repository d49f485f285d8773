package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

type bookkeepingPage struct {
	Title     string
	Active    string
	Purchases []core.Purchase
	Total     decimal.Decimal
	Today     string
	Uploads   bool
	MaxMB     int64
}

func (s *Server) handleBookkeeping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	purchases, err := s.invoices.ListPurchases(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Purchase list error", "error", err)
		http.Error(w, "Failed to load purchases", http.StatusInternalServerError)
		return
	}
	total := decimal.Zero
	for _, p := range purchases {
		total = total.Add(p.Amount)
	}
	s.render(w, r, "bookkeeping_page", bookkeepingPage{
		Title:     "Bookkeeping",
		Active:    "bookkeeping",
		Purchases: purchases,
		Total:     total,
		Today:     core.FormatDate(time.Now()),
		Uploads:   s.receipts != nil,
		MaxMB:     s.maxUpload >> 20,
	})
}

// handleUploadReceipt records a purchase with an optional receipt image.
// The purchase is validated before the receipt is stored.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	tooLarge := ErrorResponse(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Receipt is too large (max %d MB)", s.maxUpload>>20))
	if r.ContentLength > s.maxUpload {
		tooLarge.Write(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge.Write(w)
			return
		}
		BadRequestError("Invalid upload").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	amount, err := core.ParseAmount(r.FormValue("amount"))
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}
	p := core.Purchase{
		Date:        sanitizeInput(r.FormValue("date")),
		Description: sanitizeInput(r.FormValue("description")),
		Amount:      amount,
	}
	if err := p.Validate(); err != nil {
		writeHTMLError(w, r, err)
		return
	}

	file, header, err := r.FormFile("receipt")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		BadRequestError("Invalid receipt file").Write(w)
		return
	default:
		defer file.Close()
		if s.receipts == nil {
			UnprocessableEntityError("Receipt uploads are disabled").Write(w)
			return
		}
		url, err := s.receipts.Save(ctx, file)
		if err != nil {
			s.logger.WarnContext(ctx, "Receipt upload failed", "filename", header.Filename, "size", header.Size, "error", err)
			writeHTMLError(w, r, err)
			return
		}
		p.ImageURL = url
		s.countReceipt()
	}

	created, err := s.invoices.RecordPurchase(ctx, p)
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/bookkeeping", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerPurchaseRecorded(created.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Purchase recorded").
		Header("HX-Redirect", "/bookkeeping").
		Write(w)
}
