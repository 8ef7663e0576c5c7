package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nar-st/motortest/internal/config"
	"github.com/nar-st/motortest/internal/db"
	"github.com/nar-st/motortest/internal/fsutil"
	"github.com/nar-st/motortest/internal/logging"
	"github.com/nar-st/motortest/internal/motortest"
	"github.com/nar-st/motortest/internal/timeutil"
	"github.com/nar-st/motortest/internal/version"
)

// annotationTask marks commands that run a task against a target.
const annotationTask = "task"

// app holds the flags and the dependencies built from them.
type app struct {
	debug      bool
	silent     bool
	nolog      bool
	configPath string
	dbPath     string
	outDir     string
	logDir     string

	stdout io.Writer
	stderr io.Writer
	fs     fsutil.FileSystem
	clock  timeutil.Clock

	cfg    *config.ReductionConfig
	log    *logging.Logger
	ledger *db.DB
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		fs:     fsutil.OSFileSystem{},
		clock:  timeutil.RealClock{},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "motortest",
		Short: "Process rocket motor test data",
		Long: `motortest verifies and analyzes motor test data files.

Tasks:
  process   reduce motor data, creating text summaries, plots and charts
  report    create PDF reports of the results
  bundle    bundle all related files into ZIP archives

Targets:
  motor     a single motor data file
  session   all motor data files within a directory`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&a.debug, "debug", false, "force all console messaging to level debug")
	pf.BoolVar(&a.silent, "silent", false, "force no console messaging (including --debug)")
	pf.BoolVar(&a.nolog, "nolog", false, "force no log file creation")
	pf.StringVar(&a.configPath, "config", "", "reduction config JSON (default "+config.DefaultConfigPath+" when present)")
	pf.StringVar(&a.dbPath, "db", "", "results ledger path (overrides config database_path)")
	pf.StringVar(&a.outDir, "out", "", "output directory (overrides config output_dir)")

	for _, task := range []*cobra.Command{processCmd(a), reportCmd(a), bundleCmd(a)} {
		root.AddCommand(task)
	}
	root.AddCommand(migrateCmd(a), versionCmd(a))
	return root
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(a.stdout, "motortest "+version.String())
			return err
		},
	}
}

// loadConfig reads --config, or the canonical defaults file when it exists,
// and applies the flag overrides.
func (a *app) loadConfig() (*config.ReductionConfig, error) {
	cfg := config.DefaultReductionConfig()
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		}
	}
	if path != "" {
		loaded, err := config.LoadReductionConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if a.dbPath != "" {
		cfg.SetDatabasePath(a.dbPath)
	}
	if a.outDir != "" {
		cfg.SetOutputDir(a.outDir)
	}
	return cfg, nil
}

// setup loads the config and builds the logger. Task commands log to a file
// named after the task and target; other commands only log to the console.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := logging.Options{
		Debug:   a.debug,
		Silent:  a.silent,
		NoLog:   true,
		Dir:     a.logDir,
		Console: a.stderr,
		Now:     a.clock.Now(),
	}
	if task, ok := cmd.Annotations[annotationTask]; ok {
		opts.Task = task
		opts.TargetType = cmd.Name()
		opts.Target = args[0]
		opts.NoLog = a.nolog
	}
	l, err := logging.New(opts)
	if err != nil {
		return err
	}
	a.log = l
	a.log.Info("motortest started.", zap.String("version", version.String()))
	a.log.Debug("arguments", zap.String("command", cmd.CommandPath()), zap.Strings("args", args))
	return nil
}

// close releases the ledger and the logger. It is safe to call twice.
func (a *app) close() error {
	var errs []error
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
		a.ledger = nil
	}
	if a.log != nil {
		a.log.Info("motortest complete.")
		errs = append(errs, a.log.Close())
		a.log = nil
	}
	return errors.Join(errs...)
}

// openLedger opens the results database unless it is disabled.
func (a *app) openLedger() (*db.DB, error) {
	path := a.cfg.GetDatabasePath()
	if path == "" {
		return nil, nil
	}
	if a.ledger == nil {
		d, err := db.Open(path, a.log.Logger)
		if err != nil {
			return nil, fmt.Errorf("open ledger %s: %w", path, err)
		}
		a.ledger = d
	}
	return a.ledger, nil
}

func (a *app) processor() *motortest.Processor {
	return motortest.NewProcessor(a.fs, a.cfg, a.log.Logger, a.clock)
}

// motorOutputDir is where a motor's artifacts go: the configured output
// directory, or the directory holding the motor file.
func (a *app) motorOutputDir(path string) string {
	if dir := a.cfg.GetOutputDir(); dir != "" {
		return dir
	}
	return filepath.Dir(path)
}

// migrations is the schema source used by the migrate command.
var migrations fs.FS = db.Migrations()
