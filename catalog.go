package datacat

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// sqliteTimeLayout is how SQLite's CURRENT_TIMESTAMP renders DATETIME text.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// Row is one catalog entry: a derived identifier plus the metadata it was
// derived from and the row timestamps.
type Row struct {
	ID        string            `json:"id"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// QueryOptions defines options for catalog queries
type QueryOptions struct {
	// Filters are field=value equality conditions, combined with AND.
	// Every key must be a declared schema field.
	Filters map[string]string `json:"filters,omitempty"`

	// Where is a raw SQL predicate ANDed with the filters. It is passed to
	// the engine verbatim and is caller-trusted: a power-user escape hatch,
	// never to be built from untrusted input.
	Where string `json:"where,omitempty"`

	// OrderBy is a raw ORDER BY clause body, e.g. "date DESC". Caller-trusted.
	OrderBy string `json:"orderBy,omitempty"`

	// Limit caps the number of rows returned; <= 0 means no limit.
	Limit int `json:"limit,omitempty"`
}

// ColumnStats summarizes one metadata column.
type ColumnStats struct {
	Distinct int64  `json:"distinct"`
	Min      string `json:"min"`
	Max      string `json:"max"`
}

// Stats provides statistics about the catalog. Computed by full-table
// aggregation; cost grows linearly with the catalog.
type Stats struct {
	Count   int64                  `json:"count"`
	Size    int64                  `json:"size"`
	Columns map[string]ColumnStats `json:"columns"`
}

// catalog owns the relational schema and all row-level SQL. Exactly one
// TEXT column per declared metadata field, plus identifier and timestamps.
type catalog struct {
	db     *sql.DB
	fields []string
}

// newCatalog opens the SQLite database and creates the objects table.
func newCatalog(ctx context.Context, path string, fields []string) (*catalog, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool with sensible defaults
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	c := &catalog{db: db, fields: fields}
	if err := c.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// quoteIdent quotes a column name for embedding in SQL text. Field names
// come from the instance config, not from callers, but quoting keeps
// reserved words like "order" usable as metadata fields.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// createTable creates the objects table and its indexes
func (c *catalog) createTable(ctx context.Context) error {
	var cols strings.Builder
	for _, f := range c.fields {
		cols.WriteString(quoteIdent(f))
		cols.WriteString(" TEXT NOT NULL, ")
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS objects (
		id TEXT PRIMARY KEY,
		%screated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_objects_updated_at ON objects(updated_at);
	`, cols.String())

	if _, err := c.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// upsert inserts or replaces a row by identifier. created_at is set on
// first insert and preserved on conflict; updated_at is always refreshed.
func (c *catalog) upsert(ctx context.Context, id string, metadata map[string]string) error {
	cols := make([]string, 0, len(c.fields))
	sets := make([]string, 0, len(c.fields))
	args := make([]any, 0, len(c.fields)+1)
	args = append(args, id)
	for _, f := range c.fields {
		q := quoteIdent(f)
		cols = append(cols, q)
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", q, q))
		args = append(args, metadata[f])
	}

	query := fmt.Sprintf(`
	INSERT INTO objects (id, %s, created_at, updated_at)
	VALUES (?%s, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET %s, updated_at = CURRENT_TIMESTAMP
	`, strings.Join(cols, ", "), strings.Repeat(", ?", len(c.fields)), strings.Join(sets, ", "))

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert row: %w", err)
	}
	return nil
}

// get returns the row for an identifier, or ErrNotFound.
func (c *catalog) get(ctx context.Context, id string) (Row, error) {
	query := fmt.Sprintf("SELECT %s FROM objects WHERE id = ?", c.selectList())
	rows, err := c.db.QueryContext(ctx, query, id)
	if err != nil {
		return Row{}, fmt.Errorf("failed to query row: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Row{}, fmt.Errorf("error iterating rows: %w", err)
		}
		return Row{}, ErrNotFound
	}
	return c.scanRow(rows)
}

// delete removes a row by identifier. ErrNotFound if no row matched.
func (c *catalog) delete(ctx context.Context, id string) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM objects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// query returns rows matching the options. Field filters and the raw
// predicate are conjunctive. One full pass per call; no cursor state.
func (c *catalog) query(ctx context.Context, opts QueryOptions) ([]Row, error) {
	querySQL := fmt.Sprintf("SELECT %s FROM objects", c.selectList())
	args := []any{}

	for k := range opts.Filters {
		if !c.hasField(k) {
			return nil, fmt.Errorf("%w: unknown filter field %q", ErrSchemaMismatch, k)
		}
	}

	// Schema order keeps generated SQL stable for identical option sets.
	var conditions []string
	for _, f := range c.fields {
		if v, ok := opts.Filters[f]; ok {
			conditions = append(conditions, quoteIdent(f)+" = ?")
			args = append(args, v)
		}
	}
	if opts.Where != "" {
		conditions = append(conditions, "("+opts.Where+")")
	}
	if len(conditions) > 0 {
		querySQL += " WHERE " + strings.Join(conditions, " AND ")
	}
	if opts.OrderBy != "" {
		querySQL += " ORDER BY " + opts.OrderBy
	}
	if opts.Limit > 0 {
		querySQL += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := c.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Row
	for rows.Next() {
		row, err := c.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// listIDs returns every identifier in the catalog.
func (c *catalog) listIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id FROM objects")
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// clear removes every row.
func (c *catalog) clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM objects"); err != nil {
		return fmt.Errorf("failed to clear rows: %w", err)
	}
	return nil
}

// stats aggregates over the whole table: row count, database size, and
// per-column distinct/min/max. Full-table scan per column.
func (c *catalog) stats(ctx context.Context) (Stats, error) {
	var count int64
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM objects").Scan(&count); err != nil {
		return Stats{}, fmt.Errorf("failed to get count: %w", err)
	}

	// Get database file size (approximate)
	var size int64
	err := c.db.QueryRowContext(ctx, "SELECT page_count * page_size as size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	if err != nil {
		size = 0 // Continue without size info
	}

	columns := make(map[string]ColumnStats, len(c.fields))
	for _, f := range c.fields {
		q := quoteIdent(f)
		var cs ColumnStats
		var minVal, maxVal sql.NullString
		query := fmt.Sprintf("SELECT COUNT(DISTINCT %s), MIN(%s), MAX(%s) FROM objects", q, q, q)
		if err := c.db.QueryRowContext(ctx, query).Scan(&cs.Distinct, &minVal, &maxVal); err != nil {
			return Stats{}, fmt.Errorf("failed to aggregate column %s: %w", f, err)
		}
		cs.Min = minVal.String
		cs.Max = maxVal.String
		columns[f] = cs
	}

	return Stats{Count: count, Size: size, Columns: columns}, nil
}

// close releases the database handle.
func (c *catalog) close() error {
	return c.db.Close()
}

func (c *catalog) hasField(name string) bool {
	for _, f := range c.fields {
		if f == name {
			return true
		}
	}
	return false
}

// selectList is the column list for row selects, in schema order.
func (c *catalog) selectList() string {
	parts := make([]string, 0, len(c.fields)+3)
	parts = append(parts, "id")
	for _, f := range c.fields {
		parts = append(parts, quoteIdent(f))
	}
	parts = append(parts, "created_at", "updated_at")
	return strings.Join(parts, ", ")
}

// scanRow scans the current result row into a Row.
func (c *catalog) scanRow(rows *sql.Rows) (Row, error) {
	dest := make([]any, 0, len(c.fields)+3)
	var id, createdAt, updatedAt string
	values := make([]string, len(c.fields))
	dest = append(dest, &id)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &createdAt, &updatedAt)

	if err := rows.Scan(dest...); err != nil {
		return Row{}, fmt.Errorf("failed to scan row: %w", err)
	}

	metadata := make(map[string]string, len(c.fields))
	for i, f := range c.fields {
		metadata[f] = values[i]
	}
	return Row{
		ID:        id,
		Metadata:  metadata,
		CreatedAt: parseSQLiteTime(createdAt),
		UpdatedAt: parseSQLiteTime(updatedAt),
	}, nil
}

// parseSQLiteTime parses CURRENT_TIMESTAMP text. Zero time on failure.
func parseSQLiteTime(s string) time.Time {
	t, err := time.ParseInLocation(sqliteTimeLayout, s, time.UTC)
	if err != nil {
		// Some engines render fractional seconds
		t, err = time.ParseInLocation(sqliteTimeLayout+".999999999", s, time.UTC)
		if err != nil {
			if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
				return t2
			}
			return time.Time{}
		}
	}
	return t
}
