package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const printableWidth = 277.0

// PDFExporter renders a dataset as a landscape A4 table. The last column gets
// two width shares because free-text detail values run long.
type PDFExporter struct{}

// NewPDFExporter builds a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF with an optional title line above the table.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("dataset has no headers")
	}
	doc := gofpdf.New("L", "mm", "A4", "")
	doc.SetMargins(10, 15, 10)
	doc.AddPage()

	if title != "" {
		doc.SetFont("Arial", "B", 14)
		doc.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		doc.Ln(4)
	}

	widths := columnWidths(len(data.Headers))
	doc.SetFont("Arial", "B", 10)
	for i, header := range data.Headers {
		doc.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i := range data.Headers {
			var value string
			if i < len(row) {
				value = row[i]
			}
			doc.CellFormat(widths[i], 7, value, "1", 0, "", false, 0, "")
		}
		doc.Ln(-1)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(n int) []float64 {
	widths := make([]float64, n)
	if n == 1 {
		widths[0] = printableWidth
		return widths
	}
	unit := printableWidth / float64(n+1)
	for i := range widths {
		widths[i] = unit
	}
	widths[n-1] = printableWidth - unit*float64(n-1)
	return widths
}
