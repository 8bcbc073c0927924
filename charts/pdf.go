package charts

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// WritePDF renders the report as an A4 statement.
func WritePDF(w io.Writer, r Report, username string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BroFinance - Gastos")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Periodo: "+r.From.Format("2006-01-02")+" a "+r.To.Format("2006-01-02")+" ("+string(r.Period)+")")
	pdf.Ln(5)
	pdf.Cell(0, 6, tr("Usuario: "+username))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)
	sumW := []float64{60, 60, 62}
	pdf.CellFormat(sumW[0], 10, "Total", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Promedio", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Compras", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW[0], 10, formatMoney(r.Total), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, formatMoney(r.Average), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, fmt.Sprint(r.Count), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	table(pdf, tr, "Por tipo", r.ByCategory)
	table(pdf, tr, "Por acreedor", r.ByCreditor)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(60, 8, "DIA", "1", 0, "C", true, 0, "")
		pdf.CellFormat(61, 8, "TOTAL", "1", 0, "R", true, 0, "")
		pdf.CellFormat(61, 8, "ACUMULADO", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}
	section(pdf, "Por dia")
	header()
	for _, p := range r.Daily {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		pdf.CellFormat(60, 7, p.Day.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(61, 7, formatMoney(p.Total), "1", 0, "R", false, 0, "")
		pdf.CellFormat(61, 7, formatMoney(p.Cumulative), "1", 1, "R", false, 0, "")
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generado por BroFinance - "+time.Now().Format(time.RFC3339), "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(20, 20, 20)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
}

func table(pdf *gofpdf.Fpdf, tr func(string) string, title string, rows []Slice) {
	if len(rows) == 0 {
		return
	}
	section(pdf, title)
	pdf.SetFont("Helvetica", "", 9)
	for _, s := range rows {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		pdf.CellFormat(132, 7, tr(trimTo(s.Name, 70)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, formatMoney(s.Value), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "..."
}

// formatMoney prints an amount with thousands separators and two decimals,
// the way amounts read in pesos: 1.234,50.
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + "," + frac
}
