package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 277.0
	pdfEllipsis  = "..."
	// A landscape A4 cell never shows more than a few hundred characters.
	pdfMaxCellRunes = 512
)

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType is the MIME type of the rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension is the filename extension of the rendered output.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render creates a PDF document with an optional title and table body. Cells that do not
// fit their column are truncated.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	widths := columnWidths(data)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if title != "" && pdf.PageNo() == 1 {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
			pdf.Ln(3)
		}
		header()
	})
	pdf.AddPage()

	for _, row := range data.Rows {
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 6, fit(pdf, tr, row[h], widths[i]-2), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(data Dataset) []float64 {
	widths := make([]float64, len(data.Headers))
	if len(data.Widths) != len(data.Headers) {
		for i := range widths {
			widths[i] = pdfPageWidth / float64(len(widths))
		}
		return widths
	}
	var total float64
	for _, w := range data.Widths {
		if w > 0 {
			total += w
		}
	}
	for i, w := range data.Widths {
		if w <= 0 || total == 0 {
			widths[i] = pdfPageWidth / float64(len(widths))
			continue
		}
		widths[i] = pdfPageWidth * w / total
	}
	return widths
}

// fit collapses whitespace, translates text to the font's code page and truncates it with
// an ellipsis so it fits width. The translator emits one byte per rune, so the cut point is
// searched bytewise on the translated text.
func fit(pdf *gofpdf.Fpdf, tr func(string) string, text string, width float64) string {
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > pdfMaxCellRunes {
		text = string(runes[:pdfMaxCellRunes])
	}
	encoded := tr(text)
	if pdf.GetStringWidth(encoded) <= width {
		return encoded
	}
	// Largest prefix length n with prefix+ellipsis inside width.
	n := sort.Search(len(encoded)+1, func(n int) bool {
		return pdf.GetStringWidth(encoded[:n]+pdfEllipsis) > width
	}) - 1
	if n < 0 {
		n = 0
	}
	return encoded[:n] + pdfEllipsis
}
