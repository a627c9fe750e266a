package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
)

const (
	pageWidth     = 277.0 // A4 landscape minus 10mm margins
	headerHeight  = 8.0
	rowHeight     = 7.0
	defaultPDFCol = 30.0
)

// PDF renders a titled table on A4 landscape pages, repeating the header on
// every page.
func PDF(title string, columns []Column, rows []Row) ([]byte, error) {
	if len(columns) == 0 {
		return nil, errors.New("pdf needs at least one column")
	}
	widths := pdfWidths(columns)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(40, 145, 108)
		pdf.SetTextColor(255, 255, 255)
		for i, col := range columns {
			pdf.CellFormat(widths[i], headerHeight, tr(col.Title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFillColor(245, 245, 245)
		pdf.SetFont("Arial", "", 9)
	}

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 5, "Generated "+time.Now().UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
		pdf.Ln(2)
		header()
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	for n, row := range rows {
		fill := n%2 == 1
		for i := range columns {
			var v interface{}
			if i < len(row) {
				v = row[i]
			}
			pdf.CellFormat(widths[i], rowHeight, tr(cellText(v)), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}

// pdfWidths scales the columns down when they would overflow the page.
func pdfWidths(columns []Column) []float64 {
	widths := make([]float64, len(columns))
	var total float64
	for i, col := range columns {
		w := col.Width
		if w <= 0 {
			w = defaultPDFCol
		}
		widths[i] = w
		total += w
	}
	if total > pageWidth {
		for i := range widths {
			widths[i] = widths[i] * pageWidth / total
		}
	}
	return widths
}

func cellText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.2f", t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}
