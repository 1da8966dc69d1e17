// Package store manages the vault database file and the typed statements the
// generator and aggregation pipeline run against it.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sadopc/smartvault/internal/adapter"
	"github.com/sadopc/smartvault/internal/config"
)

// ErrUnavailable means the store file an operation needs does not exist.
var ErrUnavailable = errors.New("store unavailable")

// Store is an open vault database.
type Store struct {
	adapter.Connection
	Path string
}

// New wraps an already open connection.
func New(conn adapter.Connection, path string) *Store {
	return &Store{Connection: conn, Path: path}
}

// Recreate deletes the database file (and the engine's sidecar files) and
// opens a fresh, empty store in its place.
func Recreate(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	a, err := adapter.Lookup(cfg.Adapter)
	if err != nil {
		return nil, err
	}

	if !inMemory(cfg.File) {
		for _, p := range append([]string{cfg.File}, sidecars(a, cfg.File)...) {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("store recreate: remove %s: %w", p, err)
			}
		}
	}

	conn, err := a.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("store recreate: %w", err)
	}
	return New(conn, cfg.File), nil
}

// OpenExisting opens a store that a previous generation run created. A
// missing file yields ErrUnavailable instead of silently creating an empty
// database.
func OpenExisting(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	a, err := adapter.Lookup(cfg.Adapter)
	if err != nil {
		return nil, err
	}

	if !inMemory(cfg.File) {
		info, err := os.Stat(cfg.File)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &UnavailableError{Path: cfg.File}
			}
			return nil, fmt.Errorf("store open: %w", err)
		}
		if info.IsDir() {
			return nil, &UnavailableError{Path: cfg.File}
		}
	}

	conn, err := a.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	return New(conn, cfg.File), nil
}

// UnavailableError carries the missing path and the guidance shown to users.
type UnavailableError struct {
	Path string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("database file %s not found; run `smartvault generate` first", e.Path)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

func inMemory(path string) bool {
	return path == ":memory:" || path == ""
}

func sidecars(a adapter.Adapter, path string) []string {
	var out []string
	for _, s := range a.SidecarSuffixes() {
		out = append(out, path+s)
	}
	return out
}
