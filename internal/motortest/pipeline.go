package motortest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nar-st/motortest/internal/config"
	"github.com/nar-st/motortest/internal/fsutil"
	"github.com/nar-st/motortest/internal/timeutil"
	"github.com/nar-st/motortest/internal/version"
)

// Processor runs the Parse → Check → Reduce pipeline for motor files.
// A Processor holds no per-file state and may be shared by goroutines.
type Processor struct {
	FS     fsutil.FileSystem
	Config *config.ReductionConfig
	Logger *zap.Logger
	Clock  timeutil.Clock
}

// NewProcessor returns a Processor; nil dependencies get production defaults.
func NewProcessor(fsys fsutil.FileSystem, cfg *config.ReductionConfig, log *zap.Logger, clock timeutil.Clock) *Processor {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if cfg == nil {
		cfg = config.DefaultReductionConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Processor{FS: fsys, Config: cfg, Logger: log, Clock: clock}
}

// ProcessFile reads and reduces the motor file at path.
//
// The returned record is never nil. When the file is unreadable or
// malformed the record carries verdict FAIL with the reason in its comments,
// no reduction is attempted, and the error is a *MalformedRecordError.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*TestRecord, error) {
	rec := p.newRecord(path)
	if err := ctx.Err(); err != nil {
		rec.Trail.Fail("Processing cancelled.", zap.Error(err))
		return rec, err
	}

	raw, err := ReadMotorFile(p.FS, path)
	if err != nil {
		reason := err.Error()
		var merr *MalformedRecordError
		if errors.As(err, &merr) {
			reason = merr.Reason
		}
		rec.Trail.Fail(reason, zap.Error(err))
		return rec, err
	}
	rec.ContentSHA256 = raw.SHA256

	return p.run(rec, raw.Lines)
}

// ProcessLines reduces already-split file content; name stands in for the path.
func (p *Processor) ProcessLines(name string, lines []string) (*TestRecord, error) {
	return p.run(p.newRecord(name), lines)
}

func (p *Processor) newRecord(path string) *TestRecord {
	rec := NewTestRecord(path, p.Logger)
	rec.RunID = uuid.NewString()
	rec.ToolVersion = version.Version
	rec.ProcessedAt = p.Clock.Now()
	return rec
}

func (p *Processor) run(rec *TestRecord, lines []string) (*TestRecord, error) {
	start := p.Clock.Now()
	log := rec.Trail.Logger()

	if err := Parse(rec, lines, p.Config); err != nil {
		return rec, err
	}
	if err := Check(rec, p.Config); err != nil {
		return rec, err
	}
	if _, err := Reduce(rec, p.Config); err != nil {
		return rec, err
	}
	rec.Trail.Finalize()

	log.Info("processed motor file",
		zap.String("run_id", rec.RunID),
		zap.String("verdict", rec.Verdict().String()),
		zap.Float64("total_impulse", rec.Result.TotalImpulse),
		zap.Duration("elapsed", p.Clock.Since(start)))
	return rec, nil
}
