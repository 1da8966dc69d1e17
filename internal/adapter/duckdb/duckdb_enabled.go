//go:build duckdb

package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/sadopc/smartvault/internal/adapter"
	"github.com/sadopc/smartvault/internal/schema"
)

func init() {
	adapter.Register(&duckdbAdapter{})
}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

type duckdbAdapter struct{}

func (a *duckdbAdapter) Name() string              { return "duckdb" }
func (a *duckdbAdapter) SidecarSuffixes() []string { return []string{".wal"} }

func (a *duckdbAdapter) Open(ctx context.Context, dsn string) (adapter.Connection, error) {
	// Strip the "duckdb://" prefix if present.
	dsn = strings.TrimPrefix(dsn, "duckdb://")

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: ping: %w", err)
	}

	name := ":memory:"
	if dsn != "" {
		path := dsn
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		name = filepath.Base(path)
	}

	return &duckdbConn{DB: db, dbName: name}, nil
}

// ---------------------------------------------------------------------------
// Connection
// ---------------------------------------------------------------------------

type duckdbConn struct {
	*sql.DB
	dbName string
}

func (c *duckdbConn) DatabaseName() string { return c.dbName }
func (c *duckdbConn) AdapterName() string  { return "duckdb" }

// DuckDB has no SAVEPOINT support; a failing statement aborts the whole
// transaction.
func (c *duckdbConn) SupportsSavepoints() bool { return false }

func (c *duckdbConn) Tables(ctx context.Context) ([]schema.Table, error) {
	rows, err := c.QueryContext(ctx, `SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("duckdb: tables: %w", err)
	}
	defer rows.Close()

	var tables []schema.Table
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("duckdb: tables scan: %w", err)
		}
		tables = append(tables, schema.Table{Name: name})
	}
	return tables, rows.Err()
}

func (c *duckdbConn) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	rows, err := c.QueryContext(ctx, `SELECT column_name,
			data_type,
			is_nullable = 'YES',
			COALESCE(column_default, '')
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: columns: %w", err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var col schema.Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.Default); err != nil {
			return nil, fmt.Errorf("duckdb: columns scan: %w", err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func (c *duckdbConn) Indexes(ctx context.Context, table string) ([]schema.Index, error) {
	rows, err := c.QueryContext(ctx, `SELECT index_name, is_unique, sql
		FROM duckdb_indexes()
		WHERE schema_name = current_schema() AND table_name = ?
		ORDER BY index_name`, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: indexes: %w", err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var (
			idx    = schema.Index{Table: table}
			sqlStr sql.NullString
		)
		if err := rows.Scan(&idx.Name, &idx.Unique, &sqlStr); err != nil {
			return nil, fmt.Errorf("duckdb: indexes scan: %w", err)
		}
		idx.Columns = parseIndexColumns(sqlStr.String)
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// parseIndexColumns extracts column names from a CREATE INDEX SQL statement.
// Example: "CREATE INDEX idx ON tbl (col1, col2)" -> ["col1", "col2"]
func parseIndexColumns(sqlStr string) []string {
	if sqlStr == "" {
		return nil
	}
	start := strings.LastIndex(sqlStr, "(")
	end := strings.LastIndex(sqlStr, ")")
	if start < 0 || end <= start {
		return nil
	}
	var cols []string
	for _, p := range strings.Split(sqlStr[start+1:end], ",") {
		if col := strings.Trim(strings.TrimSpace(p), `"`); col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}
