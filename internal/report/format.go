// Package report renders processed motor records: the fixed-layout text
// summary, the thrust curve as PNG and HTML, and PDF reports.
package report

import (
	"math"
	"strconv"

	"github.com/nar-st/motortest/internal/motortest"
)

// FormatFloat prints v in shortest round-trip form, always with a decimal
// point for integral values ("50.0", "0.62", "-1.0"), switching to exponent
// form for very small or very large magnitudes ("1e-05").
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	abs := math.Abs(v)
	if v != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optString(o motortest.Optional[string]) string { return o.Or("") }

func optInt(o motortest.Optional[int]) string {
	return strconv.Itoa(o.Or(motortest.UnsetInt))
}

func optFloat(o motortest.Optional[float64]) string {
	return FormatFloat(o.Or(motortest.UnsetFloat))
}

// formatDelay prints an undetected ejection delay as a bare 0.
func formatDelay(v float64) string {
	if v == 0 {
		return "0"
	}
	return FormatFloat(v)
}
