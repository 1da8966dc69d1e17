package aggregate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/sadopc/smartvault/internal/report"
)

// fakeSource serves fixed path lists without a database.
type fakeSource struct {
	byAccount map[string][]string
	err       error
}

func (f *fakeSource) DocumentPaths(_ context.Context, accountID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byAccount[accountID], nil
}

func (f *fakeSource) EachDocumentPath(_ context.Context, fn func(string) error) error {
	if f.err != nil {
		return f.err
	}
	for _, id := range []string{"1", "2", "3"} {
		for _, p := range f.byAccount[id] {
			if err := fn(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func options(outDir string) Options {
	return Options{OutputDir: outDir, Phrase: "Smith Property", Offset: 2, Stride: 3, Workers: 4}
}

func TestSample(t *testing.T) {
	paths := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6"}
	tests := []struct {
		name           string
		paths          []string
		offset, stride int
		want           string
	}{
		{"seven paths", paths, 2, 3, "p2,p5"},
		{"too few", paths[:2], 2, 3, ""},
		{"exactly three", paths[:3], 2, 3, "p2"},
		{"empty", nil, 2, 3, ""},
		{"every path", paths[:3], 0, 1, "p0,p1,p2"},
		{"zero stride treated as one", paths[:2], 0, 0, "p0,p1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(Sample(tt.paths, tt.offset, tt.stride), ","); got != tt.want {
				t.Errorf("Sample() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProperty_SamplePositions(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("selected positions are 2 mod 3 and number n/3", prop.ForAll(
		func(n int) bool {
			paths := make([]string, n)
			for i := range paths {
				paths[i] = strconv.Itoa(i)
			}
			got := Sample(paths, 2, 3)
			if len(got) != n/3 {
				return false
			}
			prev := -1
			for _, p := range got {
				i, _ := strconv.Atoi(p)
				if i%3 != 2 || i <= prev {
					return false
				}
				prev = i
			}
			return true
		},
		gen.IntRange(0, 2000),
	))

	properties.TestingRun(t)
}

func TestConsolidateWritesMatchesInOrder(t *testing.T) {
	docs, out := t.TempDir(), t.TempDir()
	var paths []string
	for i := range 9 {
		content := fmt.Sprintf("plain file %d", i)
		switch i {
		case 2:
			content = "lease for the smith property, lower case"
		case 3:
			content = "Smith Property but never sampled"
		case 8:
			content = "SMITH PROPERTY deed"
		}
		paths = append(paths, writeFile(t, docs, fmt.Sprintf("doc%d.txt", i), content))
	}

	rec := &report.Recorder{}
	a := New(&fakeSource{byAccount: map[string][]string{"1": paths}}, rec, options(out))
	res, err := a.Consolidate(context.Background(), "1")
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if res.Status != StatusConsolidated || res.Total != 9 || res.Sampled != 3 || res.Matches != 2 {
		t.Errorf("ScanResult = %+v", res)
	}
	if res.Output != filepath.Join(out, "Consolidated_1.txt") {
		t.Errorf("Output = %q", res.Output)
	}

	data, err := os.ReadFile(res.Output)
	if err != nil {
		t.Fatal(err)
	}
	want := "--- File: doc2.txt ---\nlease for the smith property, lower case\n\n" +
		"--- File: doc8.txt ---\nSMITH PROPERTY deed\n\n"
	if string(data) != want {
		t.Errorf("artifact =\n%q\nwant\n%q", data, want)
	}

	entries, _ := os.ReadDir(out)
	if len(entries) != 1 {
		t.Errorf("output dir holds %d entries, want only the artifact", len(entries))
	}
}

func TestConsolidateOrderWithManyWorkers(t *testing.T) {
	docs, out := t.TempDir(), t.TempDir()
	var paths []string
	var want strings.Builder
	for i := range 300 {
		name := fmt.Sprintf("doc%03d.txt", i)
		paths = append(paths, writeFile(t, docs, name, "Smith Property "+name))
		if i%3 == 2 {
			fmt.Fprintf(&want, "--- File: %s ---\nSmith Property %s\n\n", name, name)
		}
	}

	opts := options(out)
	opts.Workers = 16
	res, err := New(&fakeSource{byAccount: map[string][]string{"2": paths}}, nil, opts).
		Consolidate(context.Background(), "2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Matches != 100 {
		t.Errorf("Matches = %d, want 100", res.Matches)
	}
	data, err := os.ReadFile(res.Output)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want.String() {
		t.Error("artifact order does not follow sampled order")
	}
}

func TestConsolidateMissingAndUnreadable(t *testing.T) {
	docs, out := t.TempDir(), t.TempDir()
	paths := []string{
		writeFile(t, docs, "a.txt", "x"),
		writeFile(t, docs, "b.txt", "x"),
		filepath.Join(docs, "gone.txt"),
		writeFile(t, docs, "c.txt", "x"),
		writeFile(t, docs, "d.txt", "x"),
		docs, // a directory cannot be read as a file
		writeFile(t, docs, "e.txt", "x"),
		writeFile(t, docs, "f.txt", "x"),
		writeFile(t, docs, "g.txt", "Smith Property"),
	}

	rec := &report.Recorder{}
	res, err := New(&fakeSource{byAccount: map[string][]string{"3": paths}}, rec, options(out)).
		Consolidate(context.Background(), "3")
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if res.Missing != 1 || res.Unreadable != 1 || res.Matches != 1 {
		t.Errorf("ScanResult = %+v", res)
	}
	if !rec.Has(report.Warn, "file not found: "+paths[2]) {
		t.Errorf("missing-file warning not reported: %+v", rec.Entries())
	}
	if rec.Count(report.Warn, "") != 2 {
		t.Errorf("want 2 warnings, got %+v", rec.Entries())
	}
	if res.Status != StatusConsolidated {
		t.Errorf("Status = %v", res.Status)
	}
}

func TestConsolidateNoDocuments(t *testing.T) {
	out := t.TempDir()
	stale := writeFile(t, out, "Consolidated_42.txt", "from an earlier run")

	rec := &report.Recorder{}
	res, err := New(&fakeSource{}, rec, options(out)).Consolidate(context.Background(), "42")
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if res.Status != StatusNoDocuments || res.Output != "" {
		t.Errorf("ScanResult = %+v", res)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale artifact was not removed")
	}
	if !rec.Has(report.Info, "no documents found for account 42") {
		t.Errorf("missing notice: %+v", rec.Entries())
	}
}

func TestConsolidateNoMatches(t *testing.T) {
	docs, out := t.TempDir(), t.TempDir()
	var paths []string
	for i := range 6 {
		paths = append(paths, writeFile(t, docs, fmt.Sprintf("d%d.txt", i), "This is my test document\n"))
	}

	res, err := New(&fakeSource{byAccount: map[string][]string{"1": paths}}, nil, options(out)).
		Consolidate(context.Background(), "1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusNoMatches || res.Sampled != 2 {
		t.Errorf("ScanResult = %+v", res)
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Errorf("output dir should stay empty, has %d entries", len(entries))
	}
}

func TestConsolidateInvalidAccountID(t *testing.T) {
	a := New(&fakeSource{}, nil, options(t.TempDir()))
	for _, id := range []string{"", "  ", "../etc", "a/b", `a\b`, ".."} {
		if _, err := a.Consolidate(context.Background(), id); !errors.Is(err, ErrInvalidAccountID) {
			t.Errorf("Consolidate(%q) error = %v, want ErrInvalidAccountID", id, err)
		}
	}
}

func TestConsolidateSourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&fakeSource{err: boom}, nil, options(t.TempDir())).Consolidate(context.Background(), "1")
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
}

func TestAllFileSizes(t *testing.T) {
	docs := t.TempDir()
	hundred := writeFile(t, docs, "hundred.txt", strings.Repeat("x", 100))
	small := writeFile(t, docs, "small.txt", "abc")

	rec := &report.Recorder{}
	src := &fakeSource{byAccount: map[string][]string{
		"1": {hundred, hundred},
		"2": {filepath.Join(docs, "missing.txt")},
		"3": {small},
	}}
	res, err := New(src, rec, Options{}).AllFileSizes(context.Background())
	if err != nil {
		t.Fatalf("AllFileSizes() error = %v", err)
	}
	if res.Total != 203 || res.Files != 4 || res.Missing != 1 {
		t.Errorf("SizeResult = %+v, want total 203, 4 files, 1 missing", res)
	}
	if !rec.Has(report.Warn, "1 of 4 document files not found") {
		t.Errorf("missing warning not reported: %+v", rec.Entries())
	}
	if res.Human() != "203 B" {
		t.Errorf("Human() = %q", res.Human())
	}
}

func TestAllFileSizesSingleFile(t *testing.T) {
	docs := t.TempDir()
	p := writeFile(t, docs, "doc.txt", strings.Repeat("y", 100))

	res, err := New(&fakeSource{byAccount: map[string][]string{"1": {p}}}, nil, Options{}).
		AllFileSizes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 100 || res.Missing != 0 {
		t.Errorf("SizeResult = %+v, want 100 bytes", res)
	}
}

func TestAllFileSizesEmpty(t *testing.T) {
	rec := &report.Recorder{}
	res, err := New(&fakeSource{}, rec, Options{}).AllFileSizes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 || res.Files != 0 {
		t.Errorf("SizeResult = %+v", res)
	}
	if !rec.Has(report.Info, "no documents in store") {
		t.Errorf("missing notice: %+v", rec.Entries())
	}
}

func TestStatusString(t *testing.T) {
	if StatusNoMatches.String() != "no matches" || Status(9).String() != "status(9)" {
		t.Error("unexpected Status strings")
	}
}
