// Package session processes every motor file of a test session directory.
//
// Files are reduced concurrently, at most config session_workers at a time.
// Output goes under <dir>/session/<motor type>/; output names are claimed in
// file order before anything is written, so two motors never share a path.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nar-st/motortest/internal/bundle"
	"github.com/nar-st/motortest/internal/config"
	"github.com/nar-st/motortest/internal/db"
	"github.com/nar-st/motortest/internal/fsutil"
	"github.com/nar-st/motortest/internal/motortest"
	"github.com/nar-st/motortest/internal/report"
)

// OutputDirName is the directory created inside a session directory.
const OutputDirName = "session"

// UnknownMotorType names the output folder of motors without a motor type.
const UnknownMotorType = "unknown"

// ErrNoMotorFiles is returned when a session directory holds no motor files.
var ErrNoMotorFiles = errors.New("no motor files found")

// Ledger is the part of the results database a session uses.
type Ledger interface {
	RecordReduction(ctx context.Context, r db.Reduction) error
	ListReductionsByFile(ctx context.Context, fileName string) ([]db.Reduction, error)
}

// Motor is one file of a session.
type Motor struct {
	Record    *motortest.TestRecord
	OutputDir string
	// Err is the structural error that stopped processing, if any.
	Err error
	// Duplicate is set when another motor already claimed the output name.
	Duplicate bool
	Artifacts []report.Artifact
}

// Writable reports whether the motor gets artifacts of its own.
func (m *Motor) Writable() bool { return m.Err == nil && !m.Duplicate }

// Result is a reduced session.
type Result struct {
	ID        string
	Dir       string
	OutputDir string
	Motors    []*Motor
}

// Reductions returns the ledger rows of the session ordered by motor type
// and file name.
func (r *Result) Reductions() []db.Reduction {
	rows := make([]db.Reduction, len(r.Motors))
	for i, m := range r.Motors {
		rows[i] = db.ReductionFromRecord(m.Record)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].MotorType != rows[j].MotorType {
			return rows[i].MotorType < rows[j].MotorType
		}
		return rows[i].FileName < rows[j].FileName
	})
	return rows
}

// Runner runs session tasks.
type Runner struct {
	Processor *motortest.Processor
	FS        fsutil.FileSystem
	Config    *config.ReductionConfig
	Logger    *zap.Logger
	// Ledger is optional; nil disables recording and history.
	Ledger Ledger
	// OutputDir replaces <dir>/session as the output root when set.
	OutputDir string
}

// NewRunner returns a Runner sharing the processor's filesystem, config and logger.
func NewRunner(p *motortest.Processor, ledger Ledger) *Runner {
	return &Runner{Processor: p, FS: p.FS, Config: p.Config, Logger: p.Logger, Ledger: ledger}
}

// FindMotorFiles lists the regular files directly inside dir whose extension
// is one of exts, compared case-insensitively. The result is sorted.
func FindMotorFiles(fsys fsutil.FileSystem, dir string, exts []string) ([]string, error) {
	all, err := fsys.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var files []string
	for _, path := range all {
		ext := filepath.Ext(path)
		for _, want := range exts {
			if strings.EqualFold(ext, want) {
				files = append(files, path)
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *Runner) outputRoot(dir string) string {
	if r.OutputDir != "" {
		return r.OutputDir
	}
	return filepath.Join(dir, OutputDirName)
}

// MotorTypeDir returns the folder name for a motor type.
func MotorTypeDir(motorType string) string {
	name := filepath.Base(strings.TrimSpace(motorType))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return UnknownMotorType
	}
	return name
}

// Reduce processes every motor file in dir without writing anything.
// Per-file structural failures are kept on the motor; only cancellation and
// listing errors fail the session.
func (r *Runner) Reduce(ctx context.Context, dir string) (*Result, error) {
	files, err := FindMotorFiles(r.FS, dir, r.Config.GetMotorFileExtensions())
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMotorFiles, dir)
	}

	res := &Result{
		ID:        uuid.NewString(),
		Dir:       dir,
		OutputDir: r.outputRoot(dir),
		Motors:    make([]*Motor, len(files)),
	}
	log := r.Logger.With(zap.String("session_id", res.ID))
	log.Info("Processing session", zap.String("dir", dir), zap.Int("motor_files", len(files)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Config.GetSessionWorkers())
	for i, path := range files {
		g.Go(func() error {
			rec, err := r.Processor.ProcessFile(gctx, path)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			rec.SessionID = res.ID
			res.Motors[i] = &Motor{Record: rec, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("session %s: %w", dir, err)
	}

	claimed := make(map[string]string, len(files))
	for _, m := range res.Motors {
		if m.Err != nil {
			continue
		}
		m.OutputDir = filepath.Join(res.OutputDir, MotorTypeDir(m.Record.Header.MotorType.Or("")))
		key := filepath.Join(m.OutputDir, m.Record.BaseName())
		if owner, taken := claimed[key]; taken {
			m.Duplicate = true
			m.Record.Trail.Fail(fmt.Sprintf("Duplicate output name %s.", m.Record.BaseName()),
				zap.String("claimed_by", owner))
			continue
		}
		claimed[key] = m.Record.SourcePath
	}
	return res, nil
}

// Process reduces the session, writes every motor's artifacts and the
// session summary, and records each motor in the ledger.
func (r *Runner) Process(ctx context.Context, dir string) (*Result, error) {
	res, err := r.Reduce(ctx, dir)
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(r.Config.GetSessionWorkers())
	for _, m := range res.Motors {
		if !m.Writable() {
			continue
		}
		g.Go(func() error {
			w := report.NewWriter(r.FS, m.OutputDir, r.Config, r.Logger)
			artifacts, err := w.WriteProcessed(m.Record)
			m.Artifacts = artifacts
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	if err := r.writeSummary(res); err != nil {
		return res, err
	}
	if r.Ledger != nil {
		for _, m := range res.Motors {
			if err := r.Ledger.RecordReduction(ctx, db.ReductionFromRecord(m.Record)); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// Report reduces the session and writes a PDF per motor plus session.pdf.
func (r *Runner) Report(ctx context.Context, dir string) (*Result, error) {
	res, err := r.Reduce(ctx, dir)
	if err != nil {
		return nil, err
	}
	for _, m := range res.Motors {
		if !m.Writable() {
			continue
		}
		var history []db.Reduction
		if r.Ledger != nil {
			if history, err = r.Ledger.ListReductionsByFile(ctx, m.Record.BaseName()); err != nil {
				return res, err
			}
		}
		a, err := report.NewWriter(r.FS, m.OutputDir, r.Config, r.Logger).WriteMotorReport(m.Record, history)
		if err != nil {
			return res, err
		}
		m.Artifacts = append(m.Artifacts, a)
	}

	_, err = report.NewWriter(r.FS, res.OutputDir, r.Config, r.Logger).WriteSessionReport(report.SessionReport{
		SessionID:   res.ID,
		Directory:   dir,
		ProcessedAt: r.Processor.Clock.Now(),
		Motors:      res.Reductions(),
	})
	return res, err
}

// Bundle archives each motor's artifacts, then the whole session output tree.
func (r *Runner) Bundle(ctx context.Context, dir string) (*Result, *bundle.Result, error) {
	res, err := r.Reduce(ctx, dir)
	if err != nil {
		return nil, nil, err
	}
	b := bundle.New(r.FS, r.Logger, r.Processor.Clock)
	for _, m := range res.Motors {
		if !m.Writable() {
			continue
		}
		if _, err := b.Motor(m.OutputDir, m.Record.BaseName()); err != nil {
			if errors.Is(err, bundle.ErrNoTargets) {
				r.Logger.Warn("motor has no artifacts to bundle", zap.String("file", m.Record.SourcePath))
				continue
			}
			return res, nil, err
		}
	}
	archive, err := b.Tree(res.OutputDir, bundle.SessionArchive)
	if err != nil {
		return res, nil, err
	}
	return res, archive, nil
}
