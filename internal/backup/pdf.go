package backup

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/graycup/leads-admin/internal/core"
)

// PDF renders records into a landscape A4 table document with a title
// block and repeated column headers on every page. Returns (nil, nil)
// when the record count exceeds PDFMaxRecords; callers skip the PDF
// entry in that case rather than fail the export.
func (f *Formatter) PDF(t core.Table, recs []core.Record, title string) ([]byte, error) {
	if len(recs) == 0 || len(recs) > f.PDFMaxRecords {
		return nil, nil
	}

	headers := f.Headers(t)

	doc := fpdf.New("L", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, "Generated on "+f.now().Format(displayTime), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Total Records: %d", len(recs)), "", 1, "L", false, 0, "")
	doc.Ln(4)

	pageW, pageH := doc.GetPageSize()
	left, _, right, bottom := doc.GetMargins()
	colW := (pageW - left - right) / float64(len(headers))
	const rowH = 5.0

	// Roughly one character per 1.5mm at 7pt Helvetica.
	maxChars := int(colW / 1.5)
	if maxChars < 4 {
		maxChars = 4
	}

	writeHeader := func() {
		doc.SetFont("Helvetica", "B", 7)
		doc.SetFillColor(88, 101, 242)
		doc.SetTextColor(255, 255, 255)
		for _, h := range headers {
			doc.CellFormat(colW, rowH, truncateCell(h, maxChars), "1", 0, "L", true, 0, "")
		}
		doc.Ln(-1)
		doc.SetFont("Helvetica", "", 7)
		doc.SetTextColor(0, 0, 0)
	}
	writeHeader()

	for start := 0; start < len(recs); start += f.ChunkSize {
		end := min(start+f.ChunkSize, len(recs))
		for _, row := range f.FormatRecords(t, recs[start:end]) {
			if doc.GetY()+rowH > pageH-bottom {
				doc.AddPage()
				writeHeader()
			}
			for _, value := range row {
				doc.CellFormat(colW, rowH, truncateCell(value, maxChars), "1", 0, "L", false, 0, "")
			}
			doc.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncateCell bounds a cell value so it fits a fixed-width column.
func truncateCell(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(runes[:maxChars])
	}
	return string(runes[:maxChars-3]) + "..."
}
