package motortest

import (
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TestRecord is one motor test file: its typed header, the raw samples in
// acquisition order, the diagnostic trail and, once reduced, the derived metrics.
type TestRecord struct {
	SourcePath string
	Header     Header
	Samples    []float64
	LineCount  int

	Trail  *Trail
	Result *ReductionResult

	// Provenance, filled in by the Processor.
	RunID         string
	SessionID     string
	ContentSHA256 string
	ToolVersion   string
	ProcessedAt   time.Time
}

// NewTestRecord returns an empty record for path with a fresh trail.
func NewTestRecord(path string, log *zap.Logger) *TestRecord {
	if log == nil {
		log = zap.NewNop()
	}
	return &TestRecord{
		SourcePath: path,
		Trail:      NewTrail(log.With(zap.String("file", path))),
	}
}

// Verdict returns the record's current verdict.
func (r *TestRecord) Verdict() Verdict { return r.Trail.Verdict() }

// Comments returns the record's comment trail, or NoComments.
func (r *TestRecord) Comments() string { return r.Trail.Comments() }

// BaseName is the name derived artifacts are written under: the header's
// file_name when present, otherwise the source file name without extension.
func (r *TestRecord) BaseName() string {
	if name, ok := r.Header.FileName.Get(); ok {
		if base := filepath.Base(strings.TrimSpace(name)); base != "." && base != string(filepath.Separator) && base != "" {
			return base
		}
	}
	base := filepath.Base(r.SourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReductionResult holds the quantities derived by Reduce.
type ReductionResult struct {
	MaxImpulse        float64 // peak raw sample, 2 decimals
	MinTrackedImpulse float64 // noise floor threshold
	NoiseLevel        float64 // half-range of the leading window, 3 decimals
	BaselineShift     float64 // mean of the leading window

	IgnitionIndex   int
	LeadingSkipped  int
	TrailingSkipped int
	PointsKept      int

	// TrimmedSamples is the baseline-corrected burn curve padded with a
	// leading and trailing zero; Times holds its timestamps.
	TrimmedSamples []float64
	Times          []float64
	TrailingPoints []float64

	TimeInterval            float64
	TotalImpulse            float64
	BurnTime                float64
	AverageImpulse          float64
	CalculatedEjectionDelay float64
}
