// Package provision creates the vault tables from schema definitions and adds
// the secondary indexes the aggregation queries rely on.
package provision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/multierr"

	"github.com/sadopc/smartvault/internal/adapter"
	"github.com/sadopc/smartvault/internal/report"
	"github.com/sadopc/smartvault/internal/schema"
)

var (
	ErrNoDefinitions = errors.New("no schema definitions found")
	ErrRequiredTable = errors.New("required table missing")
)

// Index is a secondary index created after every definition has run.
type Index struct {
	Name   string
	Table  string
	Column string
}

// SQL returns the CREATE INDEX statement. Table names are quoted so "User"
// is accepted by every engine.
func (ix Index) SQL() string {
	return fmt.Sprintf(`CREATE INDEX %s ON "%s"(%s)`, ix.Name, ix.Table, ix.Column)
}

// RequiredIndexes are created unconditionally, in this order.
var RequiredIndexes = []Index{
	{Name: "idx_document_account", Table: "Document", Column: "AccountId"},
	{Name: "idx_user_account", Table: "User", Column: "AccountId"},
}

// Options control provisioning.
type Options struct {
	// Strict aborts the whole batch on the first failing definition
	// instead of skipping it.
	Strict bool
}

// Skipped is a definition whose script failed and was left out.
type Skipped struct {
	Definition schema.Definition
	Err        error
}

func (s Skipped) Error() string {
	return fmt.Sprintf("definition %s (%s): %v", s.Definition.Table, s.Definition.Source, s.Err)
}

func (s Skipped) Unwrap() []error {
	return []error{schema.ErrInvalidDefinition, s.Err}
}

// Result describes one provisioning run. When Provision returns an error
// nothing was committed, and Tables lists only what ran before the failure.
type Result struct {
	Tables     []string
	Skipped    []Skipped
	Indexes    []string
	LoadErrors []error

	noDefinitions bool
}

// Err combines every non-fatal problem of the run, or returns nil.
func (r *Result) Err() error {
	var err error
	if r.noDefinitions {
		err = multierr.Append(err, ErrNoDefinitions)
	}
	for _, le := range r.LoadErrors {
		err = multierr.Append(err, le)
	}
	for _, s := range r.Skipped {
		err = multierr.Append(err, s)
	}
	return err
}

// Provisioner applies definitions to one connection.
type Provisioner struct {
	conn adapter.Connection
	rep  report.Reporter
	opts Options
}

// New creates a Provisioner. A nil reporter discards diagnostics.
func New(conn adapter.Connection, rep report.Reporter, opts Options) *Provisioner {
	return &Provisioner{conn: conn, rep: report.OrDiscard(rep), opts: opts}
}

// ProvisionFS loads the definitions in fsys and provisions them. Loader
// problems are reported as warnings and the offending files skipped; in
// strict mode the first one aborts before the store is touched.
func (p *Provisioner) ProvisionFS(ctx context.Context, fsys fs.FS) (*Result, error) {
	defs, loadErrs := schema.Load(fsys)
	if p.opts.Strict && len(loadErrs) > 0 {
		return &Result{LoadErrors: loadErrs}, fmt.Errorf("provision: %w", loadErrs[0])
	}
	for _, err := range loadErrs {
		report.Warnf(p.rep, "%v; skipped", err)
	}

	res, err := p.Provision(ctx, defs)
	if res != nil {
		res.LoadErrors = loadErrs
	}
	return res, err
}

// Provision runs every definition's script in one transaction and then
// creates RequiredIndexes. In lenient mode each script runs under its own
// savepoint so a failure is rolled back alone and the batch continues.
// Engines without savepoints cannot isolate a failing script, so there a
// failure aborts the batch in either mode.
func (p *Provisioner) Provision(ctx context.Context, defs []schema.Definition) (*Result, error) {
	res := &Result{}
	if len(defs) == 0 {
		res.noDefinitions = true
		report.Warnf(p.rep, "%v; 0 tables created", ErrNoDefinitions)
	}

	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("provision begin: %w", err)
	}
	defer tx.Rollback()

	isolate := !p.opts.Strict && p.conn.SupportsSavepoints()
	for i, d := range defs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		scriptErr, err := apply(ctx, tx, i, d, isolate)
		if err != nil {
			return res, fmt.Errorf("provision %s: %w", d.Table, err)
		}
		if scriptErr != nil {
			sk := Skipped{Definition: d, Err: scriptErr}
			if !isolate {
				return res, fmt.Errorf("provision: %w", sk)
			}
			res.Skipped = append(res.Skipped, sk)
			report.Warnf(p.rep, "%v; skipped", sk)
			continue
		}
		res.Tables = append(res.Tables, d.Table)
		report.Debugf(p.rep, "created table %s from %s", d.Table, d.Source)
	}
	if len(defs) > 0 {
		report.Infof(p.rep, "%d of %d schema definitions applied", len(res.Tables), len(defs))
	}

	for _, ix := range RequiredIndexes {
		if !hasTable(res.Tables, ix.Table) {
			return res, missingTable(ix, res.Tables)
		}
		if _, err := tx.ExecContext(ctx, ix.SQL()); err != nil {
			return res, fmt.Errorf("provision index %s: %w", ix.Name, err)
		}
		res.Indexes = append(res.Indexes, ix.Name)
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("provision commit: %w", err)
	}
	report.Infof(p.rep, "provisioned %d tables and %d indexes", len(res.Tables), len(res.Indexes))
	return res, nil
}

// apply runs one definition. scriptErr is the script's own failure; err is
// a failure that leaves the transaction unusable.
func apply(ctx context.Context, tx *sql.Tx, i int, d schema.Definition, isolate bool) (scriptErr, err error) {
	if !isolate {
		_, scriptErr = tx.ExecContext(ctx, d.Script)
		return scriptErr, nil
	}

	sp := fmt.Sprintf("provision_%d", i)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return nil, err
	}
	if _, scriptErr = tx.ExecContext(ctx, d.Script); scriptErr != nil {
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO "+sp); err != nil {
			return scriptErr, err
		}
	}
	if _, err := tx.ExecContext(ctx, "RELEASE "+sp); err != nil {
		return scriptErr, err
	}
	return scriptErr, nil
}

func hasTable(tables []string, name string) bool {
	for _, t := range tables {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// missingTable builds the index-step error, suggesting the closest
// provisioned table name when there is one.
func missingTable(ix Index, tables []string) error {
	err := fmt.Errorf("provision index %s: %w: %s", ix.Name, ErrRequiredTable, ix.Table)
	if s := suggest(ix.Table, tables); s != "" {
		err = fmt.Errorf("%w (did you mean %s?)", err, s)
	}
	return err
}

func suggest(name string, tables []string) string {
	if len(tables) == 0 {
		return ""
	}
	lower := make([]string, len(tables))
	for i, t := range tables {
		lower[i] = strings.ToLower(t)
	}
	if matches := fuzzy.Find(strings.ToLower(name), lower); len(matches) > 0 {
		return tables[matches[0].Index]
	}
	// The provisioned name may be the shorter one, e.g. "Doc" for "Document".
	target := []string{strings.ToLower(name)}
	for i, t := range lower {
		if len(fuzzy.Find(t, target)) > 0 {
			return tables[i]
		}
	}
	return ""
}
