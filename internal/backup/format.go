// Package backup implements the bulk export/import pipeline: multi-format
// table exports assembled into a ZIP archive, and the reverse path parsing
// uploaded CSV/JSON files back into de-duplicated batched inserts.
package backup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/graycup/leads-admin/internal/core"
)

// displayTime is the human-readable timestamp layout used across the
// CSV/PDF/TXT exports ("Jan 2, 2006 3:04 PM").
const displayTime = "Jan 2, 2006 3:04 PM"

// Formatter renders record lists into the export formats. All methods
// are pure with respect to their inputs: records are never mutated.
type Formatter struct {
	// ChunkSize bounds the number of records materialized per formatting
	// pass for the text-based formats. Affects peak working set only,
	// never output bytes.
	ChunkSize int

	// PDFMaxRecords is the cutoff above which PDF output is skipped;
	// a multi-thousand-page table PDF is not practical.
	PDFMaxRecords int

	now func() time.Time
}

// NewFormatter returns a Formatter with production defaults.
func NewFormatter() *Formatter {
	return &Formatter{
		ChunkSize:     1000,
		PDFMaxRecords: 10000,
		now:           time.Now,
	}
}

// Headers returns the formatted export headers for a table, in column order.
func (f *Formatter) Headers(t core.Table) []string {
	cols := t.AllColumns()
	headers := make([]string, len(cols))
	for i, col := range cols {
		headers[i] = core.HeaderFor(col)
	}
	return headers
}

// FormatRecords renders records into display rows aligned with Headers.
// A formatting failure in one record substitutes placeholders for that
// record instead of aborting the batch.
func (f *Formatter) FormatRecords(t core.Table, recs []core.Record) [][]string {
	cols := t.AllColumns()
	rows := make([][]string, len(recs))
	for i, rec := range recs {
		rows[i] = f.formatRow(cols, rec)
	}
	return rows
}

// formatRow renders one record. Recovers from value-level panics so a
// single malformed field cannot take down a whole export.
func (f *Formatter) formatRow(cols []string, rec core.Record) (row []string) {
	defer func() {
		if r := recover(); r != nil {
			row = make([]string, len(cols))
			for i := range row {
				row[i] = "[unreadable]"
			}
		}
	}()

	row = make([]string, len(cols))
	for i, col := range cols {
		row[i] = formatValue(col, rec[col])
	}
	return row
}

// formatValue applies the shared field-formatting rules:
// created_at -> locale timestamp, resolved -> Resolved/Pending,
// vaulted -> Yes/No, arrays joined with ", ", nested objects JSON,
// nil -> empty string.
func formatValue(col string, v any) string {
	switch col {
	case core.ColCreatedAt:
		return formatTimestamp(v)
	case core.ColResolved:
		if truthy(v) {
			return "Resolved"
		}
		return "Pending"
	case core.ColVaulted:
		if truthy(v) {
			return "Yes"
		}
		return "No"
	}

	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	case time.Time:
		return val.Format(displayTime)
	default:
		return fmt.Sprint(val)
	}
}

// formatTimestamp renders a created_at value, accepting either the
// native time.Time from the store or an RFC3339 string from an import
// round-trip.
func formatTimestamp(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(displayTime)
	case string:
		if ts, err := time.Parse(time.RFC3339, val); err == nil {
			return ts.Format(displayTime)
		}
		return val
	default:
		return fmt.Sprint(val)
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "Resolved" || val == "Yes"
	default:
		return false
	}
}

// CSV renders the human-readable CSV: formatted headers, every value
// wrapped in double quotes with internal quotes doubled.
func (f *Formatter) CSV(t core.Table, recs []core.Record) string {
	if len(recs) == 0 {
		return ""
	}

	headers := f.Headers(t)
	var b strings.Builder
	b.WriteString(strings.Join(headers, ","))

	for start := 0; start < len(recs); start += f.ChunkSize {
		end := min(start+f.ChunkSize, len(recs))
		for _, row := range f.FormatRecords(t, recs[start:end]) {
			b.WriteByte('\n')
			for i, value := range row {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(quoteCSV(value))
			}
		}
	}

	return b.String()
}

// RawCSV renders the lossless importable CSV: original column names and
// unformatted values. Empty values serialize as "" (two double quotes)
// to preserve column alignment; nested values are JSON-stringified.
func (f *Formatter) RawCSV(t core.Table, recs []core.Record) string {
	if len(recs) == 0 {
		return ""
	}

	cols := t.AllColumns()
	var b strings.Builder
	b.WriteString(strings.Join(cols, ","))

	for start := 0; start < len(recs); start += f.ChunkSize {
		end := min(start+f.ChunkSize, len(recs))
		for _, rec := range recs[start:end] {
			b.WriteByte('\n')
			for i, col := range cols {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(rawCSVValue(rec[col]))
			}
		}
	}

	return b.String()
}

// rawCSVValue serializes one raw value for the importable CSV.
func rawCSVValue(v any) string {
	switch val := v.(type) {
	case nil:
		return `""`
	case string:
		return quoteCSV(val)
	case time.Time:
		return quoteCSV(val.Format(time.RFC3339))
	case []string, []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return quoteCSV(fmt.Sprint(val))
		}
		return quoteCSV(string(b))
	default:
		return quoteCSV(fmt.Sprint(val))
	}
}

// quoteCSV wraps a value in double quotes, doubling internal quotes.
func quoteCSV(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// JSON renders the canonical re-importable form: raw records, 2-space
// indented, no field renaming.
func (f *Formatter) JSON(recs []core.Record) ([]byte, error) {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	return data, nil
}

// Text renders the record-by-record plain text report.
func (f *Formatter) Text(t core.Table, recs []core.Record, title string) string {
	if len(recs) == 0 {
		return ""
	}

	headers := f.Headers(t)
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')
	b.WriteString("Generated on " + f.now().Format(displayTime))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Total Records: %d\n", len(recs))
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")

	for start := 0; start < len(recs); start += f.ChunkSize {
		end := min(start+f.ChunkSize, len(recs))
		for i, row := range f.FormatRecords(t, recs[start:end]) {
			fmt.Fprintf(&b, "Record %d\n", start+i+1)
			b.WriteString(strings.Repeat("-", 30))
			b.WriteByte('\n')
			for j, header := range headers {
				fmt.Fprintf(&b, "%s: %s\n", header, row[j])
			}
			b.WriteByte('\n')
		}
	}

	return b.String()
}
