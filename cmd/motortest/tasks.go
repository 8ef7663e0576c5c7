package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nar-st/motortest/internal/bundle"
	"github.com/nar-st/motortest/internal/db"
	"github.com/nar-st/motortest/internal/motortest"
	"github.com/nar-st/motortest/internal/report"
	"github.com/nar-st/motortest/internal/session"
)

// taskCmd builds a task command with its motor and session targets.
func taskCmd(a *app, name, short string, motor, sess func(ctx context.Context, target string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " {motor|session} target",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return fmt.Errorf("unknown target type %q: want motor or session", args[0])
		},
	}
	run := func(fn func(context.Context, string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error { return fn(cmd.Context(), args[0]) }
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:         "motor file",
			Short:       short + " for a single motor data file",
			Args:        cobra.ExactArgs(1),
			Annotations: map[string]string{annotationTask: name},
			RunE:        run(motor),
		},
		&cobra.Command{
			Use:         "session dir",
			Short:       short + " for every motor data file in a directory",
			Args:        cobra.ExactArgs(1),
			Annotations: map[string]string{annotationTask: name},
			RunE:        run(sess),
		},
	)
	return cmd
}

func processCmd(a *app) *cobra.Command {
	return taskCmd(a, "process", "Reduce motor data", a.processMotor, a.processSession)
}

func reportCmd(a *app) *cobra.Command {
	return taskCmd(a, "report", "Create PDF reports", a.reportMotor, a.reportSession)
}

func bundleCmd(a *app) *cobra.Command {
	return taskCmd(a, "bundle", "Bundle related files into ZIP archives", a.bundleMotor, a.bundleSession)
}

// console is where result blocks are printed; nothing with --silent.
func (a *app) console() io.Writer {
	if a.silent {
		return io.Discard
	}
	return a.stdout
}

func (a *app) processMotor(ctx context.Context, path string) error {
	ledger, err := a.openLedger()
	if err != nil {
		return err
	}
	rec, perr := a.processor().ProcessFile(ctx, path)

	var artifacts []report.Artifact
	if perr == nil {
		w := report.NewWriter(a.fs, a.motorOutputDir(path), a.cfg, a.log.Logger)
		if artifacts, err = w.WriteProcessed(rec); err != nil {
			return err
		}
	}
	if ledger != nil {
		if err := ledger.RecordReduction(ctx, db.ReductionFromRecord(rec)); err != nil {
			return err
		}
	}
	return errors.Join(perr, report.WriteConsoleSummary(a.console(), rec, artifacts...))
}

func (a *app) reportMotor(ctx context.Context, path string) error {
	ledger, err := a.openLedger()
	if err != nil {
		return err
	}
	rec, err := a.processor().ProcessFile(ctx, path)
	if err != nil {
		return errors.Join(err, report.WriteConsoleSummary(a.console(), rec))
	}
	var history []db.Reduction
	if ledger != nil {
		if history, err = ledger.ListReductionsByFile(ctx, rec.BaseName()); err != nil {
			return err
		}
	}
	w := report.NewWriter(a.fs, a.motorOutputDir(path), a.cfg, a.log.Logger)
	pdf, err := w.WriteMotorReport(rec, history)
	if err != nil {
		return err
	}
	return report.WriteConsoleSummary(a.console(), rec, pdf)
}

func (a *app) bundleMotor(ctx context.Context, path string) error {
	rec, err := a.processor().ProcessFile(ctx, path)
	if err != nil {
		return errors.Join(err, report.WriteConsoleSummary(a.console(), rec))
	}
	res, err := bundle.New(a.fs, a.log.Logger, a.clock).Motor(a.motorOutputDir(path), rec.BaseName())
	if err != nil {
		return err
	}
	return writeBundle(a.console(), res)
}

func (a *app) runner() (*session.Runner, error) {
	d, err := a.openLedger()
	if err != nil {
		return nil, err
	}
	// A nil *db.DB must not become a non-nil Ledger.
	var ledger session.Ledger
	if d != nil {
		ledger = d
	}
	r := session.NewRunner(a.processor(), ledger)
	r.OutputDir = a.cfg.GetOutputDir()
	return r, nil
}

func (a *app) processSession(ctx context.Context, dir string) error {
	r, err := a.runner()
	if err != nil {
		return err
	}
	res, err := r.Process(ctx, dir)
	if err != nil {
		return err
	}
	return a.writeSession(res)
}

func (a *app) reportSession(ctx context.Context, dir string) error {
	r, err := a.runner()
	if err != nil {
		return err
	}
	res, err := r.Report(ctx, dir)
	if err != nil {
		return err
	}
	if err := a.writeSession(res); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.console(), "%-18s%s\n", report.KindPDF.Label()+":", filepath.Join(res.OutputDir, "session.pdf"))
	return err
}

func (a *app) bundleSession(ctx context.Context, dir string) error {
	r, err := a.runner()
	if err != nil {
		return err
	}
	res, archive, err := r.Bundle(ctx, dir)
	if err != nil {
		return err
	}
	a.logSession(res)
	return writeBundle(a.console(), archive)
}

// writeSession prints every motor's result block.
func (a *app) writeSession(res *session.Result) error {
	a.logSession(res)
	for _, m := range res.Motors {
		if err := report.WriteConsoleSummary(a.console(), m.Record, m.Artifacts...); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) logSession(res *session.Result) {
	failed := 0
	for _, m := range res.Motors {
		if m.Record.Verdict() == motortest.Fail {
			failed++
		}
	}
	a.log.Info("Session processed: "+res.Dir,
		zap.String("session_id", res.ID),
		zap.Int("motors", len(res.Motors)),
		zap.Int("failed", failed))
}

func writeBundle(w io.Writer, res *bundle.Result) error {
	if _, err := fmt.Fprintf(w, "%-18s%s\n", "Bundle:", res.Archive); err != nil {
		return err
	}
	for _, f := range res.Files {
		if _, err := fmt.Fprintf(w, "  %s\n", f); err != nil {
			return err
		}
	}
	return nil
}
