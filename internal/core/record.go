package core

import "time"

// Record is one stored submission row as column name -> value.
// Values are scalars, string slices (text[] columns) or nested maps;
// rows loaded from Postgres always carry id, created_at, resolved and
// vaulted alongside the table's business columns.
type Record map[string]any

// Filter narrows a table read by the two independent handling flags.
// A nil field means "don't filter on this flag"; all four combinations
// of resolved/vaulted are valid states.
type Filter struct {
	Resolved *bool
	Vaulted  *bool
}

// Webhook is a configured Discord forwarding target.
type Webhook struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// TableCount is one dashboard tile: a table plus a flag-filtered count.
type TableCount struct {
	Table string `json:"table"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// BoolPtr returns a pointer to b. Convenience for building Filters.
func BoolPtr(b bool) *bool { return &b }
