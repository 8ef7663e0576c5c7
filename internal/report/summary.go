package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nar-st/motortest/internal/motortest"
	"github.com/nar-st/motortest/internal/timeutil"
)

// SentinelNote is the footnote closing every summary.
const SentinelNote = "Note: -1 indicates no value provided or available."

// labelWidth is the column at which summary values start.
const labelWidth = 21

// SummaryOptions carries the values that do not come from the record.
type SummaryOptions struct {
	ProcessedAt       time.Time
	CertificationType string
}

// metrics returns the record's result, or zeros for records that were never reduced.
func metrics(rec *motortest.TestRecord) motortest.ReductionResult {
	if rec.Result == nil {
		return motortest.ReductionResult{}
	}
	return *rec.Result
}

// field is one labelled summary value.
type field [2]string

// summaryGroups returns the summary fields of rec in report order, grouped
// as they are separated by blank lines.
func summaryGroups(rec *motortest.TestRecord, opts SummaryOptions) [][]field {
	h := rec.Header
	m := metrics(rec)

	return [][]field{
		{
			{"Motor Type:", optString(h.MotorType)},
			{"Manufacturer:", optString(h.Manufacturer)},
			{"Delays:", optInt(h.EjectionDelay)},
		},
		{
			{"Propellant Type:", optString(h.PropellantType)},
			{"Propellant Mass:", optFloat(h.PropellantMass)},
			{"Mass After Firing:", optFloat(h.BurnedOutMass)},
		},
		{
			{"Casing Diameter:", optInt(h.CasingDiameter)},
			{"Casing Length:", optInt(h.CasingLength)},
			{"Casing Code:", optString(h.CasingCode)},
		},
		{
			{"File Name:", optString(h.FileName)},
			{"Date Tested:", optString(h.TestDate) + " " + optString(h.TestTime)},
		},
		{
			{"Total Impulse:", FormatFloat(m.TotalImpulse)},
			{"Peak Thrust:", FormatFloat(m.MaxImpulse)},
			{"Burn Time:", FormatFloat(m.BurnTime)},
			{"Average Thrust:", FormatFloat(m.AverageImpulse)},
			{"Ejection Delay:", formatDelay(m.CalculatedEjectionDelay)},
		},
		{
			{"Data Noise (+/-):", FormatFloat(m.NoiseLevel)},
		},
		{
			{"Processing Date:", opts.ProcessedAt.Format(timeutil.ProcessingDateLayout)},
			{"Certification Type:", opts.CertificationType},
			{"Processing Result:", rec.Verdict().String()},
		},
		{
			{"Comments:", rec.Comments()},
		},
	}
}

// WriteSummary writes the fixed-label text summary of rec. Blank lines
// separate the groups; unset header values print as their sentinel.
func WriteSummary(w io.Writer, rec *motortest.TestRecord, opts SummaryOptions) error {
	var b strings.Builder
	for i, g := range summaryGroups(rec, opts) {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, kv := range g {
			fmt.Fprintf(&b, "\n%-*s%s", labelWidth, kv[0], kv[1])
		}
	}
	b.WriteString("\n\n" + SentinelNote + "\n\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteConsoleSummary prints the short result block shown after processing
// a motor. Artifact names are listed in the order given.
func WriteConsoleSummary(w io.Writer, rec *motortest.TestRecord, artifacts ...Artifact) error {
	m := metrics(rec)
	lines := []string{
		"------------------------------",
		"Processed File:   " + rec.SourcePath,
	}
	if rec.Result != nil {
		lines = append(lines,
			"Total Impulse:    "+FormatFloat(m.TotalImpulse),
			"Peak Thrust:      "+FormatFloat(m.MaxImpulse),
			"Burn Time:        "+FormatFloat(m.BurnTime),
			"Ejection Delay:   "+formatDelay(m.CalculatedEjectionDelay),
			"Average Thrust:   "+FormatFloat(m.AverageImpulse),
		)
	}
	lines = append(lines,
		"Result:           "+rec.Verdict().String(),
		"Comments:         "+rec.Comments(),
	)
	for _, a := range artifacts {
		lines = append(lines, fmt.Sprintf("%-18s%s", a.Kind.Label()+":", a.Name))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
