package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sadopc/smartvault/internal/schema"
)

var ErrUnknownAdapter = errors.New("unknown adapter")

// Adapter opens connections to one embedded store engine.
type Adapter interface {
	Open(ctx context.Context, dsn string) (Connection, error)
	Name() string
	// SidecarSuffixes lists files the engine keeps next to the main database
	// file (journals, WAL) that must be removed with it.
	SidecarSuffixes() []string
}

// Querier is the statement surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Connection represents an open store.
type Connection interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)

	// Introspection
	Tables(ctx context.Context) ([]schema.Table, error)
	Columns(ctx context.Context, table string) ([]schema.Column, error)
	Indexes(ctx context.Context, table string) ([]schema.Index, error)

	// SupportsSavepoints reports whether SAVEPOINT/ROLLBACK TO can isolate
	// a failing statement inside a transaction.
	SupportsSavepoints() bool

	// Lifecycle
	PingContext(ctx context.Context) error
	Close() error

	// Info
	DatabaseName() string
	AdapterName() string
}

// Registry holds registered adapters by name.
var Registry = map[string]Adapter{}

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	Registry[a.Name()] = a
}

// Lookup returns the adapter registered under name.
func Lookup(name string) (Adapter, error) {
	a, ok := Registry[name]
	if !ok {
		return nil, &UnknownError{Name: name, Available: Names()}
	}
	return a, nil
}

// Names returns the registered adapter names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownError is returned by Lookup for unregistered names.
type UnknownError struct {
	Name      string
	Available []string
}

func (e *UnknownError) Error() string {
	if len(e.Available) == 0 {
		return "unknown adapter: " + e.Name
	}
	return fmt.Sprintf("unknown adapter: %s (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownError) Unwrap() error { return ErrUnknownAdapter }
