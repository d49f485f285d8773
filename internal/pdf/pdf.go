// Package pdf renders an invoice as an A4 PDF document.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"invoicer/internal/core"
	"invoicer/internal/currency"
)

// Seller is printed in the document header.
type Seller struct {
	Name    string
	Address string
	OrgNr   string
}

// Render writes inv as a PDF. The customer supplies the billing block;
// a zero Customer prints only the name stored on the invoice.
func Render(w io.Writer, seller Seller, inv core.Invoice, customer core.Customer, f currency.Formatter) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Invoice "+inv.Number), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(120, 10, tr(seller.Name))
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range lines(seller.Address, orgLine(seller.OrgNr)) {
		pdf.Cell(0, 5, tr(line))
		pdf.Ln(5)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(110, 6, "Bill to")
	pdf.Cell(0, 6, "Details")
	pdf.Ln(7)

	name := customer.CompanyName
	if name == "" {
		name = inv.CustomerName
	}
	billTo := lines(name, customer.BillingAddress, orgLine(customer.OrgNumber), vatLine(customer.VATNumber), customer.Email)
	details := []string{
		"Invoice no: " + inv.Number,
		"Invoice date: " + inv.Date,
		"Due date: " + inv.DueDate,
		"Payment terms: " + inv.PaymentTerms,
		"Status: " + string(inv.Status),
	}
	pdf.SetFont("Arial", "", 10)
	for i := 0; i < max(len(billTo), len(details)); i++ {
		pdf.Cell(110, 5, tr(at(billTo, i)))
		pdf.Cell(0, 5, tr(at(details, i)))
		pdf.Ln(5)
	}
	pdf.Ln(8)

	widths := []float64{90, 25, 35, 40}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Description", "Qty", "Unit price", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, it := range inv.Items {
		pdf.CellFormat(widths[0], 7, tr(it.Description), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, it.Quantity.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, tr(f.Format(it.UnitPrice)), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, tr(f.Format(it.Total)), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	totals := [][2]string{
		{"Subtotal", f.Format(inv.Subtotal)},
		{fmt.Sprintf("VAT (%s%%)", inv.VATRate.String()), f.Format(inv.VATAmount)},
		{"Total", f.Format(inv.Total)},
	}
	for i, row := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Arial", "B", 11)
		}
		pdf.CellFormat(150, 7, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, tr(row[1]), "", 1, "R", false, 0, "")
	}

	if strings.TrimSpace(inv.Notes) != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 5, tr(inv.Notes), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice pdf: %w", err)
	}
	return nil
}

func lines(in ...string) []string {
	var out []string
	for _, s := range in {
		for _, l := range strings.Split(s, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
	}
	return out
}

func orgLine(s string) string {
	if s == "" {
		return ""
	}
	return "Org.nr: " + s
}

func vatLine(s string) string {
	if s == "" {
		return ""
	}
	return "VAT no: " + s
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
