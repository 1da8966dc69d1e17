package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Adapter != "sqlite" {
		t.Errorf("Database.Adapter = %q, want %q", cfg.Database.Adapter, "sqlite")
	}
	if cfg.Generate.Accounts != 100 {
		t.Errorf("Generate.Accounts = %d, want %d", cfg.Generate.Accounts, 100)
	}
	if cfg.Generate.DocumentsPerAccount != 10000 {
		t.Errorf("Generate.DocumentsPerAccount = %d, want %d", cfg.Generate.DocumentsPerAccount, 10000)
	}
	if cfg.Generate.Commit != CommitRun {
		t.Errorf("Generate.Commit = %q, want %q", cfg.Generate.Commit, CommitRun)
	}
	if cfg.Aggregate.Offset != 2 || cfg.Aggregate.Stride != 3 {
		t.Errorf("Aggregate offset/stride = %d/%d, want 2/3", cfg.Aggregate.Offset, cfg.Aggregate.Stride)
	}
	if cfg.Aggregate.Phrase != "Smith Property" {
		t.Errorf("Aggregate.Phrase = %q, want %q", cfg.Aggregate.Phrase, "Smith Property")
	}
	if cfg.UI.Theme != "default" || !cfg.UI.Progress {
		t.Errorf("UI = %+v, want default theme with progress", cfg.UI)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `database:
  adapter: sqlite
  file: /tmp/vault.db
  connection: "file:{file}?_pragma=busy_timeout(5000)"
schema:
  dir: ./schemas
  strict: true
generate:
  accounts: 5
  documents_per_account: 20
  commit: account
  seed: 42
aggregate:
  output_dir: /tmp/out
  workers: 8
log:
  level: debug
  format: json
  run_log: /tmp/runs.jsonl
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.File != "/tmp/vault.db" {
		t.Errorf("Database.File = %q", cfg.Database.File)
	}
	if got, want := cfg.Database.DSN(), "file:/tmp/vault.db?_pragma=busy_timeout(5000)"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
	if cfg.Schema.Dir != "./schemas" || !cfg.Schema.Strict {
		t.Errorf("Schema = %+v", cfg.Schema)
	}
	if cfg.Generate.Accounts != 5 || cfg.Generate.DocumentsPerAccount != 20 {
		t.Errorf("Generate = %+v", cfg.Generate)
	}
	if cfg.Generate.Commit != CommitAccount || cfg.Generate.Seed != 42 {
		t.Errorf("Generate commit/seed = %q/%d", cfg.Generate.Commit, cfg.Generate.Seed)
	}
	// Untouched keys keep their defaults.
	if cfg.Generate.SampleFile != "TestDoc.txt" {
		t.Errorf("Generate.SampleFile = %q, want default", cfg.Generate.SampleFile)
	}
	if cfg.Aggregate.Workers != 8 || cfg.Aggregate.Stride != 3 {
		t.Errorf("Aggregate = %+v", cfg.Aggregate)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.Log.RunLog != "/tmp/runs.jsonl" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for missing file", err)
	}

	def := DefaultConfig()
	if !reflect.DeepEqual(cfg, def) {
		t.Errorf("Load(missing) = %+v, want DefaultConfig %+v", cfg, def)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	content := "database: [\ninvalid:\n  - {broken\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should return an error for invalid YAML")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Database.File = "other.db"
	cfg.Generate.Accounts = 7
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat saved config: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("saved config perm = %o, want 600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("reloaded = %+v, want %+v", got, cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing file", func(c *Config) { c.Database.File = "" }, ErrMissingValue},
		{"blank file", func(c *Config) { c.Database.File = "   " }, ErrMissingValue},
		{"missing connection", func(c *Config) { c.Database.Connection = "" }, ErrMissingValue},
		{"missing adapter", func(c *Config) { c.Database.Adapter = "" }, ErrMissingValue},
		{"negative accounts", func(c *Config) { c.Generate.Accounts = -1 }, ErrInvalidValue},
		{"negative documents", func(c *Config) { c.Generate.DocumentsPerAccount = -5 }, ErrInvalidValue},
		{"missing sample file", func(c *Config) { c.Generate.SampleFile = "" }, ErrMissingValue},
		{"unknown commit", func(c *Config) { c.Generate.Commit = "batch" }, ErrInvalidValue},
		{"missing phrase", func(c *Config) { c.Aggregate.Phrase = "" }, ErrMissingValue},
		{"zero stride", func(c *Config) { c.Aggregate.Stride = 0 }, ErrInvalidValue},
		{"negative offset", func(c *Config) { c.Aggregate.Offset = -1 }, ErrInvalidValue},
		{"bad epoch", func(c *Config) { c.Generate.BirthEpoch = "01/01/1985" }, ErrInvalidValue},
		{"zero accounts allowed", func(c *Config) { c.Generate.Accounts = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEpoch(t *testing.T) {
	g := GenerateConfig{BirthEpoch: "1985-01-01"}
	got, err := g.Epoch()
	if err != nil {
		t.Fatalf("Epoch() error = %v", err)
	}
	want := time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Epoch() = %v, want %v", got, want)
	}
}

func TestConfigDir(t *testing.T) {
	dir, err := ConfigDir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	if filepath.Base(dir) != "smartvault" {
		t.Errorf("ConfigDir() = %q, want suffix smartvault", dir)
	}
}
