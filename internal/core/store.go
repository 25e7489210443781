package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the record storage capability used by the web handlers, the
// backup pipeline and the CLI. Satisfied by *PGStore in production and by
// in-memory fakes in tests.
type Store interface {
	// List returns all records for a table, newest first, optionally
	// filtered by the resolved/vaulted flags.
	List(ctx context.Context, table string, f Filter) ([]Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, table string, f Filter) (int64, error)

	// UpdateFlags updates only the provided boolean flags on one record.
	UpdateFlags(ctx context.Context, table, id string, resolved, vaulted *bool) error

	// Delete removes one record by id.
	Delete(ctx context.Context, table, id string) error

	// Emails returns the set of existing lowercased email values for a
	// table. Tables without an email column yield an empty set.
	Emails(ctx context.Context, table string) (map[string]struct{}, error)

	// BulkInsert inserts all records in one statement and returns the
	// inserted count. An error means the whole statement was rejected.
	BulkInsert(ctx context.Context, table string, recs []Record) (int, error)

	// Insert inserts a single record.
	Insert(ctx context.Context, table string, rec Record) error
}

// WebhookStore manages Discord forwarding targets.
type WebhookStore interface {
	ListWebhooks(ctx context.Context) ([]Webhook, error)
	GetWebhook(ctx context.Context, id string) (*Webhook, error)
	CreateWebhook(ctx context.Context, name, url string) (*Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
}

// PGStore is the Postgres implementation of Store and WebhookStore.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a store backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Pool exposes the underlying pool for the realtime listener.
func (s *PGStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PGStore) List(ctx context.Context, table string, f Filter) ([]Record, error) {
	def, ok := Lookup(table)
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", table)
	}

	cols := def.AllColumns()
	where, args := buildFlagFilter(f)

	query := fmt.Sprintf(
		"SELECT %s FROM %s%s ORDER BY created_at DESC",
		strings.Join(quoteColumns(cols), ", "),
		quoteIdentifier(table),
		where,
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = normalizeValue(values[i])
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}

func (s *PGStore) Count(ctx context.Context, table string, f Filter) (int64, error) {
	if !ValidTable(table) {
		return 0, fmt.Errorf("unknown table: %s", table)
	}

	where, args := buildFlagFilter(f)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdentifier(table), where)

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

func (s *PGStore) UpdateFlags(ctx context.Context, table, id string, resolved, vaulted *bool) error {
	if !ValidTable(table) {
		return fmt.Errorf("unknown table: %s", table)
	}

	var sets []string
	var args []any
	argIdx := 1

	if resolved != nil {
		sets = append(sets, fmt.Sprintf("resolved = $%d", argIdx))
		args = append(args, *resolved)
		argIdx++
	}
	if vaulted != nil {
		sets = append(sets, fmt.Sprintf("vaulted = $%d", argIdx))
		args = append(args, *vaulted)
		argIdx++
	}
	if len(sets) == 0 {
		return fmt.Errorf("no fields to update")
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		quoteIdentifier(table), strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record not found: %s", id)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, table, id string) error {
	if !ValidTable(table) {
		return fmt.Errorf("unknown table: %s", table)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", quoteIdentifier(table))
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record not found: %s", id)
	}
	return nil
}

func (s *PGStore) Emails(ctx context.Context, table string) (map[string]struct{}, error) {
	def, ok := Lookup(table)
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", table)
	}

	emails := make(map[string]struct{})
	if !containsString(def.Columns, ColEmail) {
		return emails, nil
	}

	query := fmt.Sprintf("SELECT email FROM %s WHERE email IS NOT NULL AND email != ''",
		quoteIdentifier(table))
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load emails for %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		emails[strings.ToLower(email)] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return emails, nil
}

func (s *PGStore) BulkInsert(ctx context.Context, table string, recs []Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	def, ok := Lookup(table)
	if !ok {
		return 0, fmt.Errorf("unknown table: %s", table)
	}

	cols := insertColumns(def, recs)
	if len(cols) == 0 {
		return 0, fmt.Errorf("no insertable columns for %s", table)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ",
		quoteIdentifier(table), strings.Join(quoteColumns(cols), ", "))

	args := make([]any, 0, len(recs)*len(cols))
	argIdx := 1
	for i, rec := range recs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, col := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", argIdx)
			args = append(args, insertValue(def, col, rec[col]))
			argIdx++
		}
		b.WriteString(")")
	}

	if _, err := s.pool.Exec(ctx, b.String(), args...); err != nil {
		return 0, fmt.Errorf("bulk insert into %s: %w", table, err)
	}
	return len(recs), nil
}

func (s *PGStore) Insert(ctx context.Context, table string, rec Record) error {
	_, err := s.BulkInsert(ctx, table, []Record{rec})
	return err
}

// insertColumns returns the ordered set of table columns present in at
// least one record. Records in one batch may have uneven key sets (CSV
// rows with empty trailing fields); absent keys insert as NULL.
func insertColumns(def Table, recs []Record) []string {
	present := make(map[string]bool)
	for _, rec := range recs {
		for k := range rec {
			present[k] = true
		}
	}

	var cols []string
	for _, col := range def.Columns {
		if present[col] {
			cols = append(cols, col)
		}
	}
	// Flags always insert so defaults applied by the importer stick.
	cols = append(cols, ColResolved, ColVaulted)
	return cols
}

// insertValue adapts a record value for a column: text[] columns take a
// string slice, flags default to false, everything else passes through.
func insertValue(def Table, col string, v any) any {
	if col == ColResolved || col == ColVaulted {
		b, ok := v.(bool)
		if !ok {
			return false
		}
		return b
	}
	if def.IsArrayColumn(col) {
		return toStringSlice(v)
	}
	return v
}

// toStringSlice normalizes the shapes an array column can arrive in:
// a real slice (JSON import), or nil.
func toStringSlice(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = fmt.Sprint(item)
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}

func (s *PGStore) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, name, url, created_at FROM discord_webhooks ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []Webhook
	for rows.Next() {
		var h Webhook
		if err := rows.Scan(&h.ID, &h.Name, &h.URL, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}

func (s *PGStore) GetWebhook(ctx context.Context, id string) (*Webhook, error) {
	var h Webhook
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, url, created_at FROM discord_webhooks WHERE id = $1", id).
		Scan(&h.ID, &h.Name, &h.URL, &h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("webhook not found: %w", err)
	}
	return &h, nil
}

func (s *PGStore) CreateWebhook(ctx context.Context, name, url string) (*Webhook, error) {
	var h Webhook
	err := s.pool.QueryRow(ctx,
		"INSERT INTO discord_webhooks (name, url) VALUES ($1, $2) RETURNING id, name, url, created_at",
		name, url).
		Scan(&h.ID, &h.Name, &h.URL, &h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	return &h, nil
}

func (s *PGStore) DeleteWebhook(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM discord_webhooks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook not found: %s", id)
	}
	return nil
}

// buildFlagFilter generates the WHERE clause for the resolved/vaulted
// flags. Both flags are independent; either, both or neither may be set.
func buildFlagFilter(f Filter) (string, []any) {
	var conditions []string
	var args []any
	argIdx := 1

	if f.Resolved != nil {
		conditions = append(conditions, fmt.Sprintf("resolved = $%d", argIdx))
		args = append(args, *f.Resolved)
		argIdx++
	}
	if f.Vaulted != nil {
		conditions = append(conditions, fmt.Sprintf("vaulted = $%d", argIdx))
		args = append(args, *f.Vaulted)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// normalizeValue converts pgx row values to JSON-friendly Go types.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	default:
		return v
	}
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteColumns quotes each column name in the slice.
func quoteColumns(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdentifier(col)
	}
	return quoted
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
