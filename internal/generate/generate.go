// Package generate fills a provisioned store with synthetic accounts, users
// and documents that all point at one sample file on disk.
package generate

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sadopc/smartvault/internal/adapter"
	"github.com/sadopc/smartvault/internal/config"
	"github.com/sadopc/smartvault/internal/report"
	"github.com/sadopc/smartvault/internal/store"
)

// Password is the MD5 digest of "123456". It is fixture data for a test
// dataset and must never be mistaken for real credential storage.
const Password = "e10adc3949ba59abbe56e057f20f883e"

// Options control one generation run.
type Options struct {
	Accounts            int
	DocumentsPerAccount int

	SampleFile   string
	SampleLine   string
	SampleRepeat int

	// Epoch is the earliest birth date; the latest is Now.
	Epoch time.Time
	// Commit is config.CommitRun or config.CommitAccount.
	Commit string
	// Seed makes birth dates reproducible. Zero seeds from the clock.
	Seed uint64

	Now       func() time.Time
	Sequence  Sequence
	OnAccount func(done, total int)
}

// OptionsFromConfig maps the generate section onto Options.
func OptionsFromConfig(cfg config.GenerateConfig) (Options, error) {
	epoch, err := cfg.Epoch()
	if err != nil {
		return Options{}, fmt.Errorf("generate: birth epoch: %w", err)
	}
	return Options{
		Accounts:            cfg.Accounts,
		DocumentsPerAccount: cfg.DocumentsPerAccount,
		SampleFile:          cfg.SampleFile,
		SampleLine:          cfg.SampleLine,
		SampleRepeat:        cfg.SampleRepeat,
		Epoch:               epoch,
		Commit:              cfg.Commit,
		Seed:                cfg.Seed,
	}, nil
}

// Result counts committed rows.
type Result struct {
	Accounts   int64
	Users      int64
	Documents  int64
	SampleFile SampleFile
	Commits    int
}

// Generator writes the synthetic dataset through one connection.
type Generator struct {
	conn adapter.Connection
	rep  report.Reporter
	opts Options
	rng  *rand.Rand
}

// New creates a Generator. A nil reporter discards diagnostics.
func New(conn adapter.Connection, rep report.Reporter, opts Options) *Generator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sequence == nil {
		opts.Sequence = NewSequence(0)
	}
	if opts.Commit == "" {
		opts.Commit = config.CommitRun
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		conn: conn,
		rep:  report.OrDiscard(rep),
		opts: opts,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// batch is the set of rows one transaction adds.
type batch struct {
	accounts, users, documents int64
}

// Run writes the sample file and then every account with its user and
// documents. In CommitRun mode the whole dataset is one transaction; in
// CommitAccount mode each account commits on its own, so a failure keeps
// every earlier account and no part of the failing one.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	if g.opts.Commit != config.CommitRun && g.opts.Commit != config.CommitAccount {
		return nil, fmt.Errorf("generate: commit mode %q: %w", g.opts.Commit, config.ErrInvalidValue)
	}

	sample, err := WriteSampleFile(g.opts.SampleFile, g.opts.SampleLine, g.opts.SampleRepeat)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	report.Infof(g.rep, "sample file %s (%d bytes)", sample.Path, sample.Size)

	res := &Result{SampleFile: sample}
	today := g.opts.Now()

	if g.opts.Commit == config.CommitAccount {
		for i := range g.opts.Accounts {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			var b batch
			if err := g.inTx(ctx, func(tx *sql.Tx) error {
				return g.writeAccount(ctx, tx, int64(i), sample, today, &b)
			}); err != nil {
				report.Errorf(g.rep, "account %d rolled back; %d earlier accounts stay committed", i, res.Accounts)
				return res, fmt.Errorf("generate account %d: %w", i, err)
			}
			res.add(b)
			res.Commits++
			g.progress(i + 1)
		}
		g.done(res)
		return res, nil
	}

	var b batch
	err = g.inTx(ctx, func(tx *sql.Tx) error {
		for i := range g.opts.Accounts {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := g.writeAccount(ctx, tx, int64(i), sample, today, &b); err != nil {
				return fmt.Errorf("account %d: %w", i, err)
			}
			g.progress(i + 1)
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("generate: %w", err)
	}
	res.add(b)
	res.Commits = 1
	g.done(res)
	return res, nil
}

func (g *Generator) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := g.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// writeAccount inserts account i, then its user, then its documents.
func (g *Generator) writeAccount(ctx context.Context, tx *sql.Tx, i int64, sample SampleFile, today time.Time, b *batch) error {
	if err := store.InsertAccount(ctx, tx, store.Account{
		ID:   i,
		Name: fmt.Sprintf("Account%d", i),
	}); err != nil {
		return err
	}
	b.accounts++

	if err := store.InsertUser(ctx, tx, store.User{
		ID:          i,
		FirstName:   fmt.Sprintf("FName%d", i),
		LastName:    fmt.Sprintf("LName%d", i),
		DateOfBirth: RandomDate(g.rng, g.opts.Epoch, today),
		AccountID:   i,
		Username:    fmt.Sprintf("UserName-%d", i),
		Password:    Password,
	}); err != nil {
		return err
	}
	b.users++

	w, err := store.PrepareDocuments(ctx, tx)
	if err != nil {
		return err
	}
	defer w.Close()

	for d := range g.opts.DocumentsPerAccount {
		if err := w.Insert(ctx, store.Document{
			ID:        g.opts.Sequence.Next(),
			Name:      fmt.Sprintf("Document%d-%d.txt", i, d),
			FilePath:  sample.Path,
			Length:    sample.Size,
			AccountID: i,
		}); err != nil {
			return err
		}
		b.documents++
	}
	return nil
}

func (g *Generator) progress(done int) {
	if g.opts.OnAccount != nil {
		g.opts.OnAccount(done, g.opts.Accounts)
	}
	report.Debugf(g.rep, "account %d/%d written", done, g.opts.Accounts)
}

func (g *Generator) done(res *Result) {
	report.Infof(g.rep, "generated %d accounts, %d users, %d documents in %d commit(s)",
		res.Accounts, res.Users, res.Documents, res.Commits)
}

func (r *Result) add(b batch) {
	r.Accounts += b.accounts
	r.Users += b.users
	r.Documents += b.documents
}
