package motortest

import (
	"errors"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/nar-st/motortest/internal/config"
)

// Degenerate-signal comments.
const (
	CommentNoPreIgnition   = "No pre-ignition samples; noise and baseline not estimated."
	CommentNoSignal        = "Degenerate signal: no samples above noise floor."
	CommentNeverDecays     = "Signal never decays below noise floor; burn may be truncated."
	CommentEmptyBurn       = "Degenerate signal: burn interval is empty."
	CommentNoTimebase      = "Graph Points Per Second not provided; timebase unknown."
	CommentTimebaseTooFine = "Graph Points Per Second too high; time interval rounds to zero."
)

// Reduce locates the burn inside rec's samples and derives the certification
// metrics. It always produces a result; degenerate input yields zeroed
// metrics and a FAIL or WARN on the trail instead of an error. The result is
// also stored on rec.
func Reduce(rec *TestRecord, cfg *config.ReductionConfig) (*ReductionResult, error) {
	if rec == nil || rec.Trail == nil {
		return nil, errors.New("motortest: Reduce called with nil record")
	}
	t := rec.Trail
	log := t.Logger()
	samples := rec.Samples
	res := &ReductionResult{}
	rec.Result = res

	res.TimeInterval = timeInterval(rec.Header.GraphPointsPerSec.Or(UnsetInt), t)

	if len(samples) == 0 {
		t.Fail(CommentNoSignal)
		res.finishDegenerate()
		return res, nil
	}

	// Peak and noise floor.
	res.MaxImpulse = roundTo(floats.Max(samples), 2)
	res.MinTrackedImpulse = res.MaxImpulse * cfg.GetIgnoreBelow()
	log.Debug("peak and floor",
		zap.Float64("max_impulse", res.MaxImpulse),
		zap.Float64("min_tracked_impulse", res.MinTrackedImpulse))

	ignition := firstIndex(samples, func(v float64) bool { return v >= res.MinTrackedImpulse })
	res.IgnitionIndex = ignition
	res.LeadingSkipped = ignition
	// A non-positive peak puts the floor at or below every sample.
	if res.MaxImpulse <= 0 || ignition == len(samples) {
		t.Fail(CommentNoSignal, zap.Float64("max_impulse", res.MaxImpulse))
		res.finishDegenerate()
		return res, nil
	}

	// Leading window: the pre-ignition span, backed off from the ignition
	// transient. Falls back to the whole span when the back-off empties it.
	window := samples[:int(math.Floor((1-cfg.GetIgnitionBackoff())*float64(ignition)))]
	if len(window) == 0 {
		window = samples[:ignition]
	}
	if len(window) == 0 {
		t.Warn(CommentNoPreIgnition)
	} else {
		res.NoiseLevel = roundTo((floats.Max(window)-floats.Min(window))/2, 3)
		res.BaselineShift = stat.Mean(window, nil)
	}
	log.Debug("leading trim",
		zap.Int("leading_skipped", res.LeadingSkipped),
		zap.Int("leading_window", len(window)),
		zap.Float64("noise_level", res.NoiseLevel),
		zap.Float64("baseline_shift", res.BaselineShift))

	working := make([]float64, len(samples)-ignition)
	for i, v := range samples[ignition:] {
		working[i] = v - res.BaselineShift
	}

	// Burn end: first corrected sample back under the floor.
	end := firstIndex(working, func(v float64) bool { return v < res.MinTrackedImpulse })
	if end == len(working) {
		t.Warn(CommentNeverDecays)
	}
	res.TrailingPoints = working[end:]
	res.TrailingSkipped = len(working) - end

	kept := working[:max(end-1, 0)]
	curve := make([]float64, 0, len(kept)+2)
	curve = append(curve, 0)
	curve = append(curve, kept...)
	curve = append(curve, 0)
	res.TrimmedSamples = curve
	res.PointsKept = len(curve) - 1
	log.Debug("trailing trim",
		zap.Int("trailing_skipped", res.TrailingSkipped),
		zap.Int("points_remaining", len(curve)))

	res.Times = make([]float64, len(curve))
	for k := range res.Times {
		res.Times[k] = float64(k) * res.TimeInterval
	}

	if len(kept) == 0 {
		t.Fail(CommentEmptyBurn, zap.Int("ignition_index", ignition))
		return res, nil
	}

	res.TotalImpulse = roundTo(integrateCurve(res.Times, curve, res.TimeInterval), 3)
	res.BurnTime = roundTo(res.Times[len(res.Times)-1], 2)
	res.AverageImpulse = roundTo(stat.Mean(curve, nil), 2)
	res.CalculatedEjectionDelay = ejectionDelay(res.TrailingPoints,
		cfg.GetEjectIndicatorMultiplier()*res.MinTrackedImpulse, res.TimeInterval)

	log.Debug("reduction complete",
		zap.Float64("total_impulse", res.TotalImpulse),
		zap.Float64("burn_time", res.BurnTime),
		zap.Float64("average_impulse", res.AverageImpulse),
		zap.Float64("calculated_ejection_delay", res.CalculatedEjectionDelay))
	return res, nil
}

// timeInterval returns 1/graphPointsPerSec rounded to 3 decimals, or 0 with a
// FAIL when no usable timebase was declared.
func timeInterval(graphPointsPerSec int, t *Trail) float64 {
	if graphPointsPerSec <= 0 {
		t.Fail(CommentNoTimebase, zap.Int("graph_points_per_sec", graphPointsPerSec))
		return 0
	}
	dt := roundTo(1.0/float64(graphPointsPerSec), 3)
	if dt == 0 {
		t.Fail(CommentTimebaseTooFine, zap.Int("graph_points_per_sec", graphPointsPerSec))
	}
	return dt
}

// finishDegenerate leaves a flat zero curve so reports can still be drawn.
func (r *ReductionResult) finishDegenerate() {
	r.TrimmedSamples = []float64{0, 0}
	r.Times = []float64{0, r.TimeInterval}
	r.PointsKept = 1
}

// integrateCurve applies composite Simpson's rule over uniformly spaced
// samples. Curves too short for Simpson's rule use the trapezoid rule.
func integrateCurve(times, curve []float64, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if len(curve) < 3 {
		return integrate.Trapezoidal(times, curve)
	}
	return integrate.Simpsons(times, curve)
}

// ejectionDelay returns the time from burn end to the first trailing sample
// whose magnitude exceeds level, or 0 when the trailing region never reaches it.
func ejectionDelay(trailing []float64, level, dt float64) float64 {
	if len(trailing) == 0 {
		return 0
	}
	peak := 0.0
	for _, v := range trailing {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak < level {
		return 0
	}
	m := firstIndex(trailing, func(v float64) bool { return math.Abs(v) > level })
	if m == len(trailing) {
		return 0
	}
	return roundTo(float64(m)*dt, 2)
}

// firstIndex returns the index of the first element satisfying pred, or len(xs).
func firstIndex(xs []float64, pred func(float64) bool) int {
	for i, v := range xs {
		if pred(v) {
			return i
		}
	}
	return len(xs)
}

// roundTo rounds half away from zero to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
