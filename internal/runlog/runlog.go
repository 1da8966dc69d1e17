// Package runlog appends one JSON line per CLI operation to a journal file.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is a single journal record. Counters that do not apply to an
// operation are left zero and omitted.
type Entry struct {
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Operation  string    `json:"operation"`
	Adapter    string    `json:"adapter"`
	Database   string    `json:"database"`
	DurationMS int64     `json:"duration_ms"`

	Tables    int    `json:"tables,omitempty"`
	Accounts  int64  `json:"accounts,omitempty"`
	Users     int64  `json:"users,omitempty"`
	Documents int64  `json:"documents,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Matches   int    `json:"matches,omitempty"`
	Missing   int    `json:"missing,omitempty"`
	Bytes     int64  `json:"bytes,omitempty"`

	IsError bool   `json:"is_error"`
	Error   string `json:"error,omitempty"`
}

// Journal writes JSON Lines entries to a file. All entries written through
// one Journal share its RunID.
type Journal struct {
	mu        sync.Mutex
	f         *os.File
	enc       *json.Encoder
	path      string
	maxSizeMB int
	runID     string
}

// Open creates a Journal. It creates parent directories (0o700) and opens
// the file in append mode (0o600). If maxSizeMB > 0, the file is rotated to
// path.1 once it exceeds that size.
func Open(path string, maxSizeMB int) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("runlog: create dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("runlog: open file: %w", err)
	}

	return &Journal{
		f:         f,
		enc:       json.NewEncoder(f),
		path:      path,
		maxSizeMB: maxSizeMB,
		runID:     uuid.NewString(),
	}, nil
}

// RunID identifies this process's entries. A nil Journal has none.
func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

// Record writes e as a JSON line, filling RunID and Timestamp when unset.
// It is safe for concurrent use. Calling Record on a nil Journal is a no-op.
func (j *Journal) Record(e Entry) {
	if j == nil {
		return
	}
	if e.RunID == "" {
		e.RunID = j.runID
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	_ = j.enc.Encode(e)

	if j.maxSizeMB > 0 {
		j.rotateIfNeeded()
	}
}

// Close closes the underlying file. Calling Close on a nil Journal is a no-op.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

func (j *Journal) rotateIfNeeded() {
	info, err := j.f.Stat()
	if err != nil {
		return
	}
	if info.Size() < int64(j.maxSizeMB)*1024*1024 {
		return
	}
	j.rotate()
}

func (j *Journal) rotate() {
	_ = j.f.Close()
	_ = os.Rename(j.path, j.path+".1")

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return
	}
	j.f = f
	j.enc = json.NewEncoder(f)
}

// Finish fills DurationMS from start and the error fields from err.
func (e *Entry) Finish(start time.Time, err error) {
	e.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		e.IsError = true
		e.Error = err.Error()
	}
}
