// Package app runs one smartvault operation end to end: it opens the store,
// drives the provisioning, generation or aggregation component, records the
// run in the journal and prints a summary.
package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/sadopc/smartvault/internal/aggregate"
	"github.com/sadopc/smartvault/internal/config"
	"github.com/sadopc/smartvault/internal/generate"
	"github.com/sadopc/smartvault/internal/provision"
	"github.com/sadopc/smartvault/internal/report"
	"github.com/sadopc/smartvault/internal/runlog"
	"github.com/sadopc/smartvault/internal/schema"
	"github.com/sadopc/smartvault/internal/store"
	"github.com/sadopc/smartvault/internal/theme"
	"github.com/sadopc/smartvault/internal/ui/genprogress"
	"github.com/sadopc/smartvault/schemas"
)

// Options control presentation.
type Options struct {
	// Out receives summaries. Nil means os.Stdout.
	Out io.Writer
	// Interactive enables the generation progress view.
	Interactive bool
}

// App runs operations for one configuration.
type App struct {
	cfg         *config.Config
	rep         report.Reporter
	journal     *runlog.Journal
	out         io.Writer
	th          *theme.Theme
	interactive bool
}

// New validates cfg and creates an App. A nil journal records nothing.
func New(cfg *config.Config, rep report.Reporter, journal *runlog.Journal, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &App{
		cfg:         cfg,
		rep:         report.OrDiscard(rep),
		journal:     journal,
		out:         out,
		th:          theme.Get(cfg.UI.Theme),
		interactive: opts.Interactive && cfg.UI.Progress,
	}, nil
}

// Definitions returns the configured definition directory, or the embedded
// defaults when none is set.
func (a *App) Definitions() fs.FS {
	if a.cfg.Schema.Dir == "" {
		return schemas.FS
	}
	return os.DirFS(a.cfg.Schema.Dir)
}

func (a *App) entry(op string) runlog.Entry {
	return runlog.Entry{
		Operation: op,
		Adapter:   a.cfg.Database.Adapter,
		Database:  a.cfg.Database.File,
	}
}

// recreate rebuilds the store and provisions it. The caller closes the
// returned store.
func (a *App) recreate(ctx context.Context) (*store.Store, *provision.Result, error) {
	s, err := store.Recreate(ctx, a.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	report.Infof(a.rep, "recreated %s store at %s", s.AdapterName(), s.Path)

	p := provision.New(s, a.rep, provision.Options{Strict: a.cfg.Schema.Strict})
	res, err := p.ProvisionFS(ctx, a.Definitions())
	if err != nil {
		s.Close()
		return nil, res, err
	}
	return s, res, nil
}

// Provision rebuilds the store and creates its tables and indexes without
// generating data.
func (a *App) Provision(ctx context.Context) (res *provision.Result, err error) {
	start := time.Now()
	e := a.entry("provision")
	defer func() {
		if res != nil {
			e.Tables = len(res.Tables)
		}
		e.Finish(start, err)
		a.journal.Record(e)
	}()

	s, res, err := a.recreate(ctx)
	if err != nil {
		return res, err
	}
	defer s.Close()

	a.printProvision(res)
	return res, nil
}

// GenerateResult is the outcome of a full generation run.
type GenerateResult struct {
	Provision *provision.Result
	Generate  *generate.Result
	Counts    store.Counts
}

// Generate rebuilds and provisions the store, fills it with the synthetic
// dataset and prints the row counts.
func (a *App) Generate(ctx context.Context) (res *GenerateResult, err error) {
	start := time.Now()
	e := a.entry("generate")
	defer func() {
		if res != nil {
			e.Accounts, e.Users, e.Documents = res.Counts.Accounts, res.Counts.Users, res.Counts.Documents
			if res.Provision != nil {
				e.Tables = len(res.Provision.Tables)
			}
		}
		e.Finish(start, err)
		a.journal.Record(e)
	}()

	opts, err := generate.OptionsFromConfig(a.cfg.Generate)
	if err != nil {
		return nil, err
	}

	s, pres, err := a.recreate(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	res = &GenerateResult{Provision: pres}

	work := func(ctx context.Context, onAccount func(done, total int)) error {
		o := opts
		o.OnAccount = onAccount
		gres, err := generate.New(s, a.rep, o).Run(ctx)
		res.Generate = gres
		return err
	}
	if a.interactive {
		err = genprogress.Run(ctx, a.out, a.th, "Generating dataset", opts.Accounts, work)
	} else {
		err = work(ctx, nil)
	}
	if err != nil {
		return res, err
	}

	res.Counts, err = s.Counts(ctx)
	if err != nil {
		return res, err
	}
	a.printGenerate(res, s.Path)
	return res, nil
}

// QueryResult is the outcome of a query run.
type QueryResult struct {
	Scan *aggregate.ScanResult
	Size *aggregate.SizeResult
}

// Query consolidates the sampled matching files of one account and then
// totals the size of every document's file.
func (a *App) Query(ctx context.Context, accountID string) (res *QueryResult, err error) {
	start := time.Now()
	e := a.entry("query")
	e.AccountID = accountID
	defer func() {
		if res != nil && res.Scan != nil {
			e.Status = res.Scan.Status.String()
			e.Matches = res.Scan.Matches
			e.Missing = res.Scan.Missing
		}
		if res != nil && res.Size != nil {
			e.Bytes = res.Size.Total
		}
		e.Finish(start, err)
		a.journal.Record(e)
	}()

	s, err := store.OpenExisting(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	agg := aggregate.New(s, a.rep, aggregate.OptionsFromConfig(a.cfg.Aggregate))
	res = &QueryResult{}
	if res.Scan, err = agg.Consolidate(ctx, accountID); err != nil {
		return res, err
	}
	a.printScan(res.Scan)

	if res.Size, err = agg.AllFileSizes(ctx); err != nil {
		return res, err
	}
	a.printSize(res.Size)
	return res, nil
}

// Size totals the size of every document's file.
func (a *App) Size(ctx context.Context) (res *aggregate.SizeResult, err error) {
	start := time.Now()
	e := a.entry("size")
	defer func() {
		if res != nil {
			e.Bytes = res.Total
			e.Missing = res.Missing
		}
		e.Finish(start, err)
		a.journal.Record(e)
	}()

	s, err := store.OpenExisting(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	res, err = aggregate.New(s, a.rep, aggregate.OptionsFromConfig(a.cfg.Aggregate)).AllFileSizes(ctx)
	if err != nil {
		return nil, err
	}
	a.printSize(res)
	return res, nil
}

// Schema lists the definitions that provisioning would apply, with their
// scripts highlighted. Files the loader rejects are reported as warnings.
func (a *App) Schema() ([]schema.Definition, error) {
	defs, errs := schema.Load(a.Definitions())
	for _, err := range errs {
		report.Warnf(a.rep, "%v; skipped", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("schema: %w", provision.ErrNoDefinitions)
	}
	a.printSchema(defs)
	return defs, nil
}

// Inspect reads the tables, columns and indexes of the existing store.
func (a *App) Inspect(ctx context.Context) (tables []schema.Table, err error) {
	start := time.Now()
	e := a.entry("inspect")
	defer func() {
		e.Tables = len(tables)
		e.Finish(start, err)
		a.journal.Record(e)
	}()

	s, err := store.OpenExisting(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	tables, err = s.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	for i := range tables {
		t := &tables[i]
		if t.Columns, err = s.Columns(ctx, t.Name); err != nil {
			return nil, fmt.Errorf("inspect %s: %w", t.Name, err)
		}
		if t.Indexes, err = s.Indexes(ctx, t.Name); err != nil {
			return nil, fmt.Errorf("inspect %s: %w", t.Name, err)
		}
	}
	report.Debugf(a.rep, "inspected tables %s", strings.Join(schema.TableNames(tables), ", "))
	a.printTables(tables)
	return tables, nil
}
