// Package report carries diagnostics from the provisioning, generation and
// aggregation components to whoever is listening. Components never print;
// they call Report on an injected Reporter.
package report

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the severity of a diagnostic.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Reporter receives diagnostics.
type Reporter interface {
	Report(level Level, msg string)
}

// Func adapts a plain function to Reporter.
type Func func(level Level, msg string)

func (f Func) Report(level Level, msg string) { f(level, msg) }

// Discard drops every diagnostic.
var Discard Reporter = Func(func(Level, string) {})

func Debugf(r Reporter, format string, args ...any) { r.Report(Debug, fmt.Sprintf(format, args...)) }
func Infof(r Reporter, format string, args ...any)  { r.Report(Info, fmt.Sprintf(format, args...)) }
func Warnf(r Reporter, format string, args ...any)  { r.Report(Warn, fmt.Sprintf(format, args...)) }
func Errorf(r Reporter, format string, args ...any) { r.Report(Error, fmt.Sprintf(format, args...)) }

// OrDiscard returns r, or Discard when r is nil.
func OrDiscard(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}

// ---------------------------------------------------------------------------
// zap
// ---------------------------------------------------------------------------

// NewLogger builds a zap logger. Format "json" selects the production
// encoder, anything else the development console encoder.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	var zc zap.Config
	if format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

type zapReporter struct {
	log *zap.SugaredLogger
}

// NewZap routes diagnostics to a sugared zap logger. The logged caller is
// the code that called Debugf, Infof, Warnf or Errorf.
func NewZap(log *zap.SugaredLogger) Reporter {
	return &zapReporter{log: log.WithOptions(zap.AddCallerSkip(2))}
}

func (z *zapReporter) Report(level Level, msg string) {
	switch level {
	case Debug:
		z.log.Debug(msg)
	case Info:
		z.log.Info(msg)
	case Warn:
		z.log.Warn(msg)
	default:
		z.log.Error(msg)
	}
}

// ---------------------------------------------------------------------------
// Recorder
// ---------------------------------------------------------------------------

// Entry is one recorded diagnostic.
type Entry struct {
	Level   Level
	Message string
}

// Recorder keeps every diagnostic in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Report(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg})
}

// Entries returns a copy of the recorded diagnostics.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns how many entries at level contain substr.
func (r *Recorder) Count(level Level, substr string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

// Has reports whether any entry at level contains substr.
func (r *Recorder) Has(level Level, substr string) bool {
	return r.Count(level, substr) > 0
}
