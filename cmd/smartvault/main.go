package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/smartvault/internal/adapter"
	"github.com/sadopc/smartvault/internal/app"
	"github.com/sadopc/smartvault/internal/config"
	"github.com/sadopc/smartvault/internal/report"
	"github.com/sadopc/smartvault/internal/runlog"
	"github.com/sadopc/smartvault/internal/ui/genprogress"

	// Register database adapters
	_ "github.com/sadopc/smartvault/internal/adapter/duckdb"
	_ "github.com/sadopc/smartvault/internal/adapter/sqlite"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// flags shared by every subcommand.
type flags struct {
	config   string
	logLevel string
	db       string
	adapter  string
	strict   bool
	noTUI    bool
}

// session is one loaded configuration with its logger and journal.
type session struct {
	app     *app.App
	logger  *zap.Logger
	journal *runlog.Journal
}

func (s *session) close() {
	s.journal.Close()
	_ = s.logger.Sync()
}

func (f *flags) load() (*config.Config, error) {
	if f.config != "" {
		return config.Load(f.config)
	}
	return config.LoadDefault()
}

func (f *flags) open(cmd *cobra.Command, mutate func(*config.Config)) (*session, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}

	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.db != "" {
		cfg.Database.File = f.db
	}
	if f.adapter != "" {
		cfg.Database.Adapter = f.adapter
	}
	if f.strict {
		cfg.Schema.Strict = true
	}
	if f.noTUI {
		cfg.UI.Progress = false
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger, err := report.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	journal := openJournal(cfg, logger)

	a, err := app.New(cfg, report.NewZap(logger.Sugar()), journal, app.Options{
		Out:         cmd.OutOrStdout(),
		Interactive: genprogress.Interactive(os.Stdout),
	})
	if err != nil {
		journal.Close()
		_ = logger.Sync()
		return nil, err
	}
	return &session{app: a, logger: logger, journal: journal}, nil
}

// openJournal opens the run log. A journal that cannot be opened is
// reported and skipped.
func openJournal(cfg *config.Config, logger *zap.Logger) *runlog.Journal {
	path := cfg.Log.RunLog
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			logger.Warn("run log disabled", zap.Error(err))
			return nil
		}
		path = filepath.Join(dir, "runs.jsonl")
	}
	j, err := runlog.Open(path, cfg.Log.RunLogMaxMB)
	if err != nil {
		logger.Warn("could not open run log", zap.String("path", path), zap.Error(err))
		return nil
	}
	logger.Debug("run log opened", zap.String("path", path), zap.String("run_id", j.RunID()))
	return j
}

// runWith builds an operation command body. Usage is printed for argument
// and flag errors only, not for failures of the operation itself.
func (f *flags) runWith(mutate func(*cobra.Command, *config.Config), op func(context.Context, *app.App, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		var m func(*config.Config)
		if mutate != nil {
			m = func(cfg *config.Config) { mutate(cmd, cfg) }
		}
		s, err := f.open(cmd, m)
		if err != nil {
			return err
		}
		defer s.close()
		return op(cmd.Context(), s.app, args)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "smartvault",
		Short: "Synthetic document store benchmark",
		Long: `smartvault provisions a relational document store, fills it with a
synthetic dataset and scans the files its documents reference.

Examples:
  smartvault generate                       # Rebuild the store and fill it
  smartvault query 1                        # Consolidate account 1, then total sizes
  smartvault size                           # Total the size of every document file
  smartvault generate --accounts 5 --docs 20 --db ./small.sqlite`,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&f.config, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&f.db, "db", "f", "", "Database file")
	rootCmd.PersistentFlags().StringVarP(&f.adapter, "adapter", "a", "", "Database adapter")

	var (
		accounts int
		docs     int
		commitBy string
		seed     uint64
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Rebuild the store and fill it with the synthetic dataset",
		Args:  cobra.NoArgs,
		RunE: f.runWith(func(cmd *cobra.Command, cfg *config.Config) {
			fs := cmd.Flags()
			if fs.Changed("accounts") {
				cfg.Generate.Accounts = accounts
			}
			if fs.Changed("docs") {
				cfg.Generate.DocumentsPerAccount = docs
			}
			if fs.Changed("commit") {
				cfg.Generate.Commit = commitBy
			}
			if fs.Changed("seed") {
				cfg.Generate.Seed = seed
			}
		}, func(ctx context.Context, a *app.App, _ []string) error {
			_, err := a.Generate(ctx)
			return err
		}),
	}
	generateCmd.Flags().IntVar(&accounts, "accounts", 0, "Number of accounts")
	generateCmd.Flags().IntVar(&docs, "docs", 0, "Documents per account")
	generateCmd.Flags().StringVar(&commitBy, "commit", "", "Commit granularity (run, account)")
	generateCmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for birth dates")
	generateCmd.Flags().BoolVar(&f.strict, "strict", false, "Abort on the first bad schema definition")
	generateCmd.Flags().BoolVar(&f.noTUI, "no-progress", false, "Disable the progress bar")

	provisionCmd := &cobra.Command{
		Use:   "provision",
		Short: "Rebuild the store and create its tables without data",
		Args:  cobra.NoArgs,
		RunE: f.runWith(nil, func(ctx context.Context, a *app.App, _ []string) error {
			_, err := a.Provision(ctx)
			return err
		}),
	}
	provisionCmd.Flags().BoolVar(&f.strict, "strict", false, "Abort on the first bad schema definition")

	var outDir string
	queryCmd := &cobra.Command{
		Use:   "query <accountId>",
		Short: "Consolidate an account's matching files, then total all file sizes",
		Args:  cobra.ExactArgs(1),
		RunE: f.runWith(func(_ *cobra.Command, cfg *config.Config) {
			if outDir != "" {
				cfg.Aggregate.OutputDir = outDir
			}
		}, func(ctx context.Context, a *app.App, args []string) error {
			_, err := a.Query(ctx, args[0])
			return err
		}),
	}
	queryCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for the consolidated file")

	sizeCmd := &cobra.Command{
		Use:   "size",
		Short: "Total the on-disk size of every document file",
		Args:  cobra.NoArgs,
		RunE: f.runWith(nil, func(ctx context.Context, a *app.App, _ []string) error {
			_, err := a.Size(ctx)
			return err
		}),
	}

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "List the table definitions provisioning would apply",
		Args:  cobra.NoArgs,
		RunE: f.runWith(nil, func(_ context.Context, a *app.App, _ []string) error {
			_, err := a.Schema()
			return err
		}),
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the tables, columns and indexes of the existing store",
		Args:  cobra.NoArgs,
		RunE: f.runWith(nil, func(ctx context.Context, a *app.App, _ []string) error {
			_, err := a.Inspect(ctx)
			return err
		}),
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "smartvault %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nSupported adapters:")
			for _, name := range adapter.Names() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
		},
	}

	rootCmd.AddCommand(generateCmd, provisionCmd, queryCmd, sizeCmd, schemaCmd, inspectCmd, newConfigCmd(&f), versionCmd)
	return rootCmd
}

func newConfigCmd(f *flags) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			path := f.config
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			return writeDefaultConfig(cmd.OutOrStdout(), path, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(initCmd)
	return configCmd
}

func writeDefaultConfig(out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
