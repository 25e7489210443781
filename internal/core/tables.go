// Package core provides the domain model for the submissions back-office:
// the closed set of submission tables, the Record type, the Postgres-backed
// record store, and the cache/invalidation services. It has no HTTP
// dependencies and is shared by the web server and the CLI.
package core

import "strings"

// Table describes one of the six fixed submission tables.
type Table struct {
	Key     string   // Storage name: "contact_submissions"
	Label   string   // Display name: "Contact Submissions"
	Columns []string // Business columns, in display/export order

	// ArrayColumns lists columns stored as text[] rather than scalar text.
	ArrayColumns []string
}

// Common columns present on every submission table, in export order.
// Business columns are appended between created_at and resolved.
const (
	ColID        = "id"
	ColCreatedAt = "created_at"
	ColResolved  = "resolved"
	ColVaulted   = "vaulted"
	ColEmail     = "email"
)

// Tables is the closed, statically known set of submission tables.
// The back-office never creates or drops tables at runtime.
var Tables = []Table{
	{
		Key:     "contact_submissions",
		Label:   "Contact Submissions",
		Columns: []string{"name", "email", "company", "company_size", "message"},
	},
	{
		Key:     "quote_requests",
		Label:   "Quote Requests",
		Columns: []string{"company_name", "contact_name", "email", "phone", "product_id", "grade", "quantity", "details"},
	},
	{
		Key:          "sample_requests",
		Label:        "Sample Requests",
		Columns:      []string{"company_name", "category", "phone", "email", "gst", "payment_status", "selected_products"},
		ArrayColumns: []string{"selected_products"},
	},
	{
		Key:     "feedback_submissions",
		Label:   "Feedback",
		Columns: []string{"company", "name", "email", "feedback_type", "rating", "feedback"},
	},
	{
		Key:     "product_requests",
		Label:   "Product Requests",
		Columns: []string{"company", "name", "email", "phone", "category", "product_name", "quantity", "details"},
	},
	{
		Key:     "call_requests",
		Label:   "Call Requests",
		Columns: []string{"name", "phone", "company_name", "agenda"},
	},
}

var tablesByKey = func() map[string]Table {
	m := make(map[string]Table, len(Tables))
	for _, t := range Tables {
		m[t.Key] = t
	}
	return m
}()

// Lookup returns the table definition for a storage key.
func Lookup(key string) (Table, bool) {
	t, ok := tablesByKey[key]
	return t, ok
}

// ValidTable reports whether key names one of the six submission tables.
func ValidTable(key string) bool {
	_, ok := tablesByKey[key]
	return ok
}

// TableKeys returns the storage keys of all tables in declaration order.
func TableKeys() []string {
	keys := make([]string, len(Tables))
	for i, t := range Tables {
		keys[i] = t.Key
	}
	return keys
}

// AllColumns returns the full column list for a table in export order:
// id, created_at, business columns, resolved, vaulted.
func (t Table) AllColumns() []string {
	cols := make([]string, 0, len(t.Columns)+4)
	cols = append(cols, ColID, ColCreatedAt)
	cols = append(cols, t.Columns...)
	cols = append(cols, ColResolved, ColVaulted)
	return cols
}

// IsArrayColumn reports whether col is stored as text[].
func (t Table) IsArrayColumn(col string) bool {
	for _, c := range t.ArrayColumns {
		if c == col {
			return true
		}
	}
	return false
}

// HeaderFor returns the formatted export header for a storage column.
// id, created_at, resolved and vaulted have fixed renames; everything
// else is snake_case converted to Title Case.
func HeaderFor(col string) string {
	switch col {
	case ColID:
		return "ID"
	case ColCreatedAt:
		return "Date"
	case ColResolved:
		return "Status"
	case ColVaulted:
		return "Vaulted"
	default:
		return TitleCase(col)
	}
}

// TitleCase converts a snake_case column name to a Title Case header:
// "company_size" -> "Company Size".
func TitleCase(col string) string {
	words := strings.Split(col, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// HeaderIndex maps formatted export headers back to storage column names
// for one table. Built from the closed column set so multi-word headers
// resolve exactly instead of through a lossy string reversal.
func (t Table) HeaderIndex() map[string]string {
	idx := make(map[string]string, len(t.Columns)+4)
	for _, col := range t.AllColumns() {
		idx[HeaderFor(col)] = col
		idx[col] = col
	}
	return idx
}

// DetectTable finds the table whose key appears as a substring of the
// lowercased filename. First match in declaration order wins.
func DetectTable(filename string) (Table, bool) {
	lower := strings.ToLower(filename)
	for _, t := range Tables {
		if strings.Contains(lower, t.Key) {
			return t, true
		}
	}
	return Table{}, false
}
