package generate

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// SampleFile is the fixture every generated document points at.
type SampleFile struct {
	Path string // absolute
	Size int64  // measured on disk after writing
}

// WriteSampleFile writes line plus a newline repeat times to path,
// replacing any existing file.
func WriteSampleFile(path, line string, repeat int) (SampleFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SampleFile{}, fmt.Errorf("sample file: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return SampleFile{}, fmt.Errorf("sample file: %w", err)
	}
	w := bufio.NewWriter(f)
	for range repeat {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return SampleFile{}, fmt.Errorf("sample file write: %w", err)
	}
	if err := f.Close(); err != nil {
		return SampleFile{}, fmt.Errorf("sample file close: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return SampleFile{}, fmt.Errorf("sample file stat: %w", err)
	}
	return SampleFile{Path: abs, Size: info.Size()}, nil
}

// Sequence hands out document IDs. Implementations must be safe for
// concurrent use and never return the same value twice.
type Sequence interface {
	Next() int64
}

type counter struct {
	next atomic.Int64
}

// NewSequence returns a Sequence whose first value is start.
func NewSequence(start int64) Sequence {
	c := &counter{}
	c.next.Store(start)
	return c
}

func (c *counter) Next() int64 {
	return c.next.Add(1) - 1
}

// RandomDate draws a day uniformly from [from, to). Both ends are truncated
// to whole UTC days; an empty range returns from.
func RandomDate(r *rand.Rand, from, to time.Time) time.Time {
	from, to = day(from), day(to)
	days := int(to.Sub(from).Hours() / 24)
	if days <= 0 {
		return from
	}
	return from.AddDate(0, 0, r.IntN(days))
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
