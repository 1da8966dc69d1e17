// Package aggregate scans the files that documents point at. It samples an
// account's documents and consolidates the ones containing a phrase into a
// single text file, and it totals the on-disk size of every document.
package aggregate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/smartvault/internal/config"
	"github.com/sadopc/smartvault/internal/report"
)

var ErrInvalidAccountID = errors.New("invalid account id")

// Source lists document file paths. *store.Store satisfies it.
type Source interface {
	DocumentPaths(ctx context.Context, accountID string) ([]string, error)
	EachDocumentPath(ctx context.Context, fn func(path string) error) error
}

// Status is the outcome of a consolidation scan.
type Status int

const (
	StatusConsolidated Status = iota
	StatusNoDocuments
	StatusNoMatches
)

func (s Status) String() string {
	switch s {
	case StatusConsolidated:
		return "consolidated"
	case StatusNoDocuments:
		return "no documents"
	case StatusNoMatches:
		return "no matches"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Options control scanning.
type Options struct {
	OutputDir string
	Phrase    string
	Offset    int
	Stride    int
	Workers   int
}

// OptionsFromConfig maps the aggregate section onto Options.
func OptionsFromConfig(cfg config.AggregateConfig) Options {
	return Options{
		OutputDir: cfg.OutputDir,
		Phrase:    cfg.Phrase,
		Offset:    cfg.Offset,
		Stride:    cfg.Stride,
		Workers:   cfg.Workers,
	}
}

// ScanResult describes one consolidation scan.
type ScanResult struct {
	AccountID string
	Status    Status
	// Output is the consolidated file, empty unless Status is
	// StatusConsolidated.
	Output     string
	Total      int
	Sampled    int
	Matches    int
	Missing    int
	Unreadable int
}

// SizeResult is the global size total.
type SizeResult struct {
	Total   int64
	Files   int
	Missing int
}

// Human formats Total for display.
func (r *SizeResult) Human() string {
	return humanize.Bytes(uint64(r.Total))
}

// Aggregator runs scans against one Source.
type Aggregator struct {
	src  Source
	rep  report.Reporter
	opts Options
}

// New creates an Aggregator. A nil reporter discards diagnostics.
func New(src Source, rep report.Reporter, opts Options) *Aggregator {
	if opts.Stride < 1 {
		opts.Stride = 1
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Aggregator{src: src, rep: report.OrDiscard(rep), opts: opts}
}

// Sample returns paths[offset], paths[offset+stride], ... in order.
func Sample(paths []string, offset, stride int) []string {
	if stride < 1 {
		stride = 1
	}
	if offset < 0 {
		offset = 0
	}
	var out []string
	for i := offset; i < len(paths); i += stride {
		out = append(out, paths[i])
	}
	return out
}

// OutputPath is where Consolidate writes the artifact for accountID.
func (a *Aggregator) OutputPath(accountID string) string {
	return filepath.Join(a.opts.OutputDir, "Consolidated_"+accountID+".txt")
}

// fileResult is the outcome of reading one sampled file.
type fileResult struct {
	content    []byte
	match      bool
	missing    bool
	unreadable error
}

// Consolidate samples the account's documents in Id order, searches each
// sampled file for the phrase ignoring case, and writes every matching
// file to OutputPath. Missing and unreadable files are reported and
// skipped. When nothing matches no artifact is left behind.
func (a *Aggregator) Consolidate(ctx context.Context, accountID string) (*ScanResult, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}

	paths, err := a.src.DocumentPaths(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}
	res := &ScanResult{AccountID: accountID, Total: len(paths)}
	out := a.OutputPath(accountID)

	if len(paths) == 0 {
		res.Status = StatusNoDocuments
		report.Infof(a.rep, "no documents found for account %s", accountID)
		return res, removeStale(out)
	}

	sampled := Sample(paths, a.opts.Offset, a.opts.Stride)
	res.Sampled = len(sampled)

	results, err := a.readAll(ctx, sampled)
	if err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}

	for i, r := range results {
		switch {
		case r.missing:
			res.Missing++
			report.Warnf(a.rep, "file not found: %s", sampled[i])
		case r.unreadable != nil:
			res.Unreadable++
			report.Warnf(a.rep, "read %s: %v", sampled[i], r.unreadable)
		case r.match:
			res.Matches++
			report.Debugf(a.rep, "match found in %s", sampled[i])
		}
	}

	if res.Matches == 0 {
		res.Status = StatusNoMatches
		report.Infof(a.rep, "no sampled files for account %s contain %q", accountID, a.opts.Phrase)
		return res, removeStale(out)
	}

	if err := writeConsolidated(out, sampled, results); err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}
	res.Status = StatusConsolidated
	res.Output = out
	report.Infof(a.rep, "consolidated %d of %d sampled files into %s", res.Matches, res.Sampled, out)
	return res, nil
}

// readAll reads the sampled files on a bounded pool. Results keep the
// sampled order regardless of completion order.
func (a *Aggregator) readAll(ctx context.Context, paths []string) ([]fileResult, error) {
	phrase := strings.ToLower(a.opts.Phrase)
	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = readOne(p, phrase)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func readOne(path, phrase string) fileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileResult{missing: true}
		}
		return fileResult{unreadable: err}
	}
	if !strings.Contains(strings.ToLower(string(data)), phrase) {
		return fileResult{}
	}
	return fileResult{content: data, match: true}
}

// writeConsolidated writes the matching files to a temporary file next to
// out and renames it into place.
func writeConsolidated(out string, paths []string, results []fileResult) error {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".consolidated-*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for i, r := range results {
		if !r.match {
			continue
		}
		fmt.Fprintf(w, "--- File: %s ---\n", filepath.Base(paths[i]))
		w.Write(r.content)
		w.WriteString("\n\n")
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

func removeStale(out string) error {
	if err := os.Remove(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale output: %w", err)
	}
	return nil
}

// validateAccountID rejects identifiers that would place the output file
// outside OutputDir.
func validateAccountID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidAccountID)
	case strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, os.PathSeparator):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidAccountID, id)
	case strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidAccountID, id)
	}
	return nil
}

// AllFileSizes stats the file of every document and sums the sizes of
// those that exist. Each row counts on its own, so a file shared by many
// documents is counted once per document. The stored Length column is not
// consulted.
func (a *Aggregator) AllFileSizes(ctx context.Context) (*SizeResult, error) {
	res := &SizeResult{}
	err := a.src.EachDocumentPath(ctx, func(p string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Files++
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			res.Missing++
			return nil
		}
		res.Total += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("file sizes: %w", err)
	}

	if res.Files == 0 {
		report.Infof(a.rep, "no documents in store; total size 0 B")
		return res, nil
	}
	if res.Missing > 0 {
		report.Warnf(a.rep, "%d of %d document files not found", res.Missing, res.Files)
	}
	report.Infof(a.rep, "total size of all files: %s (%d bytes)", res.Human(), res.Total)
	return res, nil
}
