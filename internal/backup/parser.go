package backup

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/graycup/leads-admin/internal/core"
)

// Parsed is the outcome of decoding one uploaded file: either a
// consolidated manifest keyed by table, or a flat record list for a
// single table.
type Parsed struct {
	// Manifest holds per-table record lists when the file is a
	// consolidated import.json. Nil otherwise.
	Manifest map[string][]core.Record

	// Records holds the record list for single-table files.
	Records []core.Record
}

// DecodeFile parses an uploaded backup file by extension. CSV decoding
// needs the target table for header reconstruction; pass nil to decode
// JSON-only payloads.
func DecodeFile(name string, data []byte, t *core.Table) (*Parsed, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return decodeJSON(data)
	case ".csv":
		if t == nil {
			return nil, fmt.Errorf("cannot decode %s: target table unknown", name)
		}
		return &Parsed{Records: ParseCSV(string(data), *t)}, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q: only JSON and CSV files are supported", filepath.Ext(name))
	}
}

// decodeJSON accepts three shapes: an array of records, a consolidated
// manifest object keyed by table names, or a single record object.
// Manifest keys that are not known tables are ignored.
func decodeJSON(data []byte) (*Parsed, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}

	switch val := raw.(type) {
	case []any:
		return &Parsed{Records: toRecords(val)}, nil
	case map[string]any:
		manifest := map[string][]core.Record{}
		sawTableKey := false
		for key, tableVal := range val {
			if !core.ValidTable(key) {
				continue
			}
			sawTableKey = true
			items, ok := tableVal.([]any)
			if !ok || len(items) == 0 {
				// Empty or malformed table entries are skipped, not failed.
				continue
			}
			manifest[key] = toRecords(items)
		}
		if sawTableKey {
			return &Parsed{Manifest: manifest}, nil
		}
		// An object with no table keys is a single record.
		return &Parsed{Records: []core.Record{core.Record(val)}}, nil
	default:
		return nil, fmt.Errorf("parse JSON: expected object or array, got %T", raw)
	}
}

func toRecords(items []any) []core.Record {
	recs := make([]core.Record, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			recs = append(recs, core.Record(obj))
		}
	}
	return recs
}

// ParseCSV decodes exported CSV content back into records. Headers are
// mapped to storage columns through the table's header dictionary, with
// a generic snake_case reversal for unrecognized headers. Status,
// Vaulted, and Date headers get their export formatting reversed.
func ParseCSV(data string, t core.Table) []core.Record {
	lines := splitLines(data)
	if len(lines) < 2 {
		return nil
	}

	headers := splitCSVLine(lines[0])
	dict := t.HeaderIndex()

	var recs []core.Record
	for _, line := range lines[1:] {
		values := splitCSVLine(line)
		rec := core.Record{}
		for i, header := range headers {
			var value string
			if i < len(values) {
				value = values[i]
			}

			col, known := dict[header]
			if !known {
				col = headerToColumn(header)
			}

			switch col {
			case core.ColCreatedAt:
				// Export timestamps are display-formatted; dropped on
				// import so the store assigns a fresh created_at.
			case core.ColResolved:
				rec[col] = value == "Resolved" || value == "true"
			case core.ColVaulted:
				rec[col] = value == "Yes" || value == "true"
			default:
				rec[col] = value
			}
		}
		if len(rec) > 0 {
			recs = append(recs, rec)
		}
	}
	return recs
}

// splitLines breaks CSV content into non-blank trimmed lines.
func splitLines(data string) []string {
	var lines []string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitCSVLine splits one CSV line on commas outside quoted fields.
// Doubled quotes inside a quoted field decode to a literal quote.
func splitCSVLine(line string) []string {
	var values []string
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		switch c := line[i]; c {
		case '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ',':
			if inQuotes {
				cur.WriteByte(c)
			} else {
				values = append(values, strings.TrimSpace(cur.String()))
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	values = append(values, strings.TrimSpace(cur.String()))
	return values
}

// headerToColumn reverses the generic Title Case header formatting:
// "Company Size" -> company_size. Exact renames (ID, Date, Status,
// Vaulted) are handled by the table header dictionary before this
// fallback runs.
func headerToColumn(header string) string {
	words := strings.Fields(header)
	if len(words) == 0 {
		return ""
	}

	camel := strings.ToLower(words[0]) + strings.Join(words[1:], "")

	var b strings.Builder
	for _, r := range camel {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "_")
}
