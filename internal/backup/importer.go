package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graycup/leads-admin/internal/core"
)

// maxErrorSamples caps how many per-record errors a Result carries.
const maxErrorSamples = 10

// Result summarizes one import run.
type Result struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

func (r *Result) addError(msg string) {
	if len(r.Errors) < maxErrorSamples {
		r.Errors = append(r.Errors, msg)
	}
}

// merge folds another result into r, keeping the error cap.
func (r *Result) merge(other *Result) {
	r.Success += other.Success
	r.Failed += other.Failed
	r.Skipped += other.Skipped
	for _, e := range other.Errors {
		r.addError(e)
	}
}

// Importer writes cleaned records into storage in bounded batches with
// optional email de-duplication.
type Importer struct {
	store core.Store

	// InsertBatchSize bounds records per storage insert statement.
	InsertBatchSize int
}

// NewImporter creates an Importer with the default insert batch size.
func NewImporter(store core.Store) *Importer {
	return &Importer{store: store, InsertBatchSize: 50}
}

// Import cleans and inserts records into the named table. With
// skipDuplicates, records whose lowercased email already exists in the
// table (or earlier in this run) are skipped. A failed batch insert
// falls back to per-record inserts so one bad record cannot sink its
// batch.
func (im *Importer) Import(ctx context.Context, table string, recs []core.Record, skipDuplicates bool) (*Result, error) {
	def, ok := core.Lookup(table)
	if !ok {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	result := &Result{}

	seen := map[string]bool{}
	if skipDuplicates {
		emails, err := im.store.Emails(ctx, def.Key)
		if err != nil {
			return nil, fmt.Errorf("load existing emails: %w", err)
		}
		for e := range emails {
			seen[e] = true
		}
	}

	var pending []core.Record
	for i, rec := range recs {
		cleaned, err := cleanRecord(rec)
		if err != nil {
			result.Failed++
			result.addError(fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}

		if skipDuplicates {
			if email, ok := cleaned[core.ColEmail].(string); ok && email != "" {
				key := strings.ToLower(email)
				if seen[key] {
					result.Skipped++
					continue
				}
				seen[key] = true
			}
		}

		pending = append(pending, cleaned)
	}

	for start := 0; start < len(pending); start += im.InsertBatchSize {
		end := min(start+im.InsertBatchSize, len(pending))
		im.insertBatch(ctx, def.Key, pending[start:end], result)
	}

	return result, nil
}

// insertBatch tries one bulk insert, falling back to per-record inserts
// when the bulk statement fails.
func (im *Importer) insertBatch(ctx context.Context, table string, batch []core.Record, result *Result) {
	n, err := im.store.BulkInsert(ctx, table, batch)
	if err == nil {
		result.Success += n
		return
	}

	for _, rec := range batch {
		if err := im.store.Insert(ctx, table, rec); err != nil {
			result.Failed++
			result.addError(err.Error())
			continue
		}
		result.Success++
	}
}

// cleanRecord normalizes one incoming record for storage: keys are
// snake_cased, server-assigned fields (id, created_at and their export
// renames) are stripped, empty values dropped, export-formatted Status
// and Vaulted values decoded, and the resolved/vaulted flags defaulted
// to false.
func cleanRecord(rec core.Record) (out core.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("unreadable record: %v", r)
		}
	}()

	out = core.Record{}
	for key, value := range rec {
		if value == nil || value == "" {
			continue
		}

		col := key
		if !strings.Contains(key, "_") || strings.ContainsAny(key, " ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			col = headerToColumn(key)
		}

		switch col {
		case core.ColID, core.ColCreatedAt:
			// Server-assigned; the store generates fresh values.
		case core.ColResolved:
			out[col] = decodeResolved(value)
		case core.ColVaulted:
			out[col] = decodeVaulted(value)
		case "status":
			out[core.ColResolved] = decodeResolved(value)
		case "date":
			// Display-formatted created_at; dropped like created_at.
		default:
			out[col] = normalizeImportValue(col, value)
		}
	}

	if _, ok := out[core.ColResolved]; !ok {
		out[core.ColResolved] = false
	}
	if _, ok := out[core.ColVaulted]; !ok {
		out[core.ColVaulted] = false
	}
	return out, nil
}

func decodeResolved(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "Resolved" || val == "true"
	default:
		return false
	}
}

func decodeVaulted(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "Yes" || val == "true"
	default:
		return false
	}
}

// normalizeImportValue restores array columns that round-tripped
// through a text format: a JSON array string or a ", "-joined list
// becomes []string again. Other values pass through.
func normalizeImportValue(col string, v any) any {
	if !isArrayColumnAnywhere(col) {
		return v
	}

	switch val := v.(type) {
	case []string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return parts
	case string:
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "[") {
			if parsed := parseJSONStringArray(trimmed); parsed != nil {
				return parsed
			}
		}
		if strings.Contains(val, ", ") {
			return strings.Split(val, ", ")
		}
		return []string{val}
	default:
		return v
	}
}

// isArrayColumnAnywhere reports whether any table declares col as an
// array column. Cleaning runs before the target table is always known.
func isArrayColumnAnywhere(col string) bool {
	for _, t := range core.Tables {
		if t.IsArrayColumn(col) {
			return true
		}
	}
	return false
}

func parseJSONStringArray(s string) []string {
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprint(item))
	}
	return parts
}
