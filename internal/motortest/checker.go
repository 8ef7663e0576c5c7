package motortest

import (
	"errors"

	"go.uber.org/zap"

	"github.com/nar-st/motortest/internal/config"
)

// Consistency comments, as they appear in reports.
const (
	CommentTooFewPoints       = "Too few Data Points."
	CommentPointCountMismatch = "Found Graph Points != Number Data Points."
	CommentDataRateMismatch   = "Data rate mismatch (scan / averaging != graph)."
	CommentExceedsTestLength  = "Found Graph Points exceed maximum test length."
	CommentZeroAveraging      = "Data Point Averaging is zero."
)

// Check cross-validates the declared acquisition parameters against the
// parsed samples. Every check runs regardless of earlier escalations; data
// quality problems only annotate the trail. An error is returned only for a
// nil record.
//
// Unset header values take part in the checks as their -1 sentinel.
func Check(rec *TestRecord, cfg *config.ReductionConfig) error {
	if rec == nil || rec.Trail == nil {
		return errors.New("motortest: Check called with nil record")
	}
	t := rec.Trail
	h := rec.Header

	found := len(rec.Samples)
	declared := h.NumberDataPoints.Or(UnsetInt)
	graph := h.GraphPointsPerSec.Or(UnsetInt)
	scan := h.ScanRatePerSec.Or(UnsetInt)
	averaging := h.DataPointAveraging.Or(UnsetInt)
	maxLength := h.MaxTestLength.Or(UnsetInt)

	if found < cfg.GetMinSamplePoints() {
		t.Fail(CommentTooFewPoints, zap.Int("found", found), zap.Int("minimum", cfg.GetMinSamplePoints()))
	}

	if found != declared {
		t.Warn(CommentPointCountMismatch, zap.Int("found", found), zap.Int("declared", declared))
	}

	if averaging == 0 {
		t.Fail(CommentZeroAveraging, zap.Int("scan_rate_per_sec", scan))
	} else if float64(scan)/float64(averaging) != float64(graph) {
		t.Warn(CommentDataRateMismatch,
			zap.Int("scan_rate_per_sec", scan),
			zap.Int("data_point_averaging", averaging),
			zap.Int("graph_points_per_sec", graph))
	}

	if graph*maxLength < declared {
		t.Warn(CommentExceedsTestLength,
			zap.Int("graph_points_per_sec", graph),
			zap.Int("max_test_length", maxLength),
			zap.Int("declared", declared))
	}

	return nil
}
