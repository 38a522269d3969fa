package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageHeight   = 297.0
	pdfBottomMargin = 15.0
	pdfRowHeight    = 7.0
)

// PDFExporter renders datasets into a tabular A4 PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title, the dataset notes and the table body.
// The header row is repeated on every page.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if err := data.check(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, pdfBottomMargin)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(2)
	}
	if len(data.Notes) > 0 {
		pdf.SetFont("Arial", "", 9)
		for _, note := range data.Notes {
			pdf.MultiCell(0, 5, note, "", "L", false)
		}
		pdf.Ln(3)
	}

	colWidth := 190.0 / float64(len(data.Headers))
	header := func() {
		pdf.SetFont("Arial", "B", 10)
		for _, h := range data.Headers {
			pdf.CellFormat(colWidth, 8, h, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()
	for _, row := range data.Rows {
		if pdf.GetY()+pdfRowHeight > pdfPageHeight-pdfBottomMargin {
			pdf.AddPage()
			header()
		}
		for _, cell := range row {
			pdf.CellFormat(colWidth, pdfRowHeight, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
