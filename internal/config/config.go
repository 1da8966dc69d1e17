package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingValue = errors.New("required configuration value missing")
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Commit modes for the generator.
const (
	CommitRun     = "run"
	CommitAccount = "account"
)

// Placeholder replaced by the database file path in Database.Connection.
const FilePlaceholder = "{file}"

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Schema    SchemaConfig    `yaml:"schema"`
	Generate  GenerateConfig  `yaml:"generate"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Log       LogConfig       `yaml:"log"`
	UI        UIConfig        `yaml:"ui"`
}

// DatabaseConfig locates the store.
type DatabaseConfig struct {
	Adapter    string `yaml:"adapter"` // "sqlite" or "duckdb"
	File       string `yaml:"file"`
	Connection string `yaml:"connection"` // template, "{file}" is replaced with File
}

// SchemaConfig controls provisioning.
type SchemaConfig struct {
	// Dir holds the definition files. Empty means the embedded defaults.
	Dir    string `yaml:"dir,omitempty"`
	Strict bool   `yaml:"strict"`
}

// GenerateConfig holds synthetic dataset settings.
type GenerateConfig struct {
	Accounts            int    `yaml:"accounts"`
	DocumentsPerAccount int    `yaml:"documents_per_account"`
	SampleFile          string `yaml:"sample_file"`
	SampleLine          string `yaml:"sample_line"`
	SampleRepeat        int    `yaml:"sample_repeat"`
	BirthEpoch          string `yaml:"birth_epoch"` // YYYY-MM-DD
	Commit              string `yaml:"commit"`
	Seed                uint64 `yaml:"seed,omitempty"`
}

// AggregateConfig holds scan settings.
type AggregateConfig struct {
	OutputDir string `yaml:"output_dir"`
	Phrase    string `yaml:"phrase"`
	Offset    int    `yaml:"offset"`
	Stride    int    `yaml:"stride"`
	Workers   int    `yaml:"workers"`
}

// LogConfig holds diagnostics settings.
type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // "console" or "json"
	RunLog      string `yaml:"run_log,omitempty"`
	RunLogMaxMB int    `yaml:"run_log_max_mb"`
}

// UIConfig controls terminal output.
type UIConfig struct {
	Theme string `yaml:"theme"` // "default", "light" or "monokai"
	// Progress shows the interactive progress bar during generation when
	// stdout is a terminal.
	Progress bool `yaml:"progress"`
}

// DefaultConfig returns a Config populated with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Adapter:    "sqlite",
			File:       "testdb.sqlite",
			Connection: FilePlaceholder,
		},
		Generate: GenerateConfig{
			Accounts:            100,
			DocumentsPerAccount: 10000,
			SampleFile:          "TestDoc.txt",
			SampleLine:          "This is my test document",
			SampleRepeat:        100,
			BirthEpoch:          "1985-01-01",
			Commit:              CommitRun,
		},
		Aggregate: AggregateConfig{
			OutputDir: ".",
			Phrase:    "Smith Property",
			Offset:    2,
			Stride:    3,
			Workers:   4,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			RunLogMaxMB: 10,
		},
		UI: UIConfig{
			Theme:    "default",
			Progress: true,
		},
	}
}

// ConfigDir returns the smartvault configuration directory path,
// typically ~/.config/smartvault/.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "smartvault"), nil
}

// Load reads a Config from the YAML file at path. If the file does not exist,
// it returns DefaultConfig without error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// DefaultPath returns ConfigDir()/config.yaml.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadDefault loads configuration from DefaultPath.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the Config to the YAML file at path, creating any necessary
// parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports the first missing or malformed value. Callers treat any
// error as fatal before the store is touched.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Database.File) == "":
		return fmt.Errorf("database.file: %w", ErrMissingValue)
	case strings.TrimSpace(c.Database.Connection) == "":
		return fmt.Errorf("database.connection: %w", ErrMissingValue)
	case c.Database.Adapter == "":
		return fmt.Errorf("database.adapter: %w", ErrMissingValue)
	case c.Generate.Accounts < 0:
		return fmt.Errorf("generate.accounts %d: %w", c.Generate.Accounts, ErrInvalidValue)
	case c.Generate.DocumentsPerAccount < 0:
		return fmt.Errorf("generate.documents_per_account %d: %w", c.Generate.DocumentsPerAccount, ErrInvalidValue)
	case c.Generate.SampleFile == "":
		return fmt.Errorf("generate.sample_file: %w", ErrMissingValue)
	case c.Generate.Commit != CommitRun && c.Generate.Commit != CommitAccount:
		return fmt.Errorf("generate.commit %q: %w", c.Generate.Commit, ErrInvalidValue)
	case c.Aggregate.Phrase == "":
		return fmt.Errorf("aggregate.phrase: %w", ErrMissingValue)
	case c.Aggregate.Stride < 1:
		return fmt.Errorf("aggregate.stride %d: %w", c.Aggregate.Stride, ErrInvalidValue)
	case c.Aggregate.Offset < 0:
		return fmt.Errorf("aggregate.offset %d: %w", c.Aggregate.Offset, ErrInvalidValue)
	}
	if _, err := c.Generate.Epoch(); err != nil {
		return fmt.Errorf("generate.birth_epoch %q: %w", c.Generate.BirthEpoch, ErrInvalidValue)
	}
	return nil
}

// DSN expands the connection template with the database file path.
func (d DatabaseConfig) DSN() string {
	return strings.ReplaceAll(d.Connection, FilePlaceholder, d.File)
}

// Epoch parses BirthEpoch as a UTC date.
func (g GenerateConfig) Epoch() (time.Time, error) {
	return time.Parse(time.DateOnly, g.BirthEpoch)
}
