//go:build !duckdb

package duckdb

import (
	"context"
	"errors"

	"github.com/sadopc/smartvault/internal/adapter"
)

var errDisabled = errors.New("DuckDB support not compiled in. Rebuild with -tags duckdb")

func init() {
	adapter.Register(&disabledAdapter{})
}

type disabledAdapter struct{}

func (d *disabledAdapter) Name() string              { return "duckdb" }
func (d *disabledAdapter) SidecarSuffixes() []string { return []string{".wal"} }

func (d *disabledAdapter) Open(_ context.Context, _ string) (adapter.Connection, error) {
	return nil, errDisabled
}
