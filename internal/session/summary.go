package session

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nar-st/motortest/internal/report"
	"github.com/nar-st/motortest/internal/timeutil"
)

// SummaryFile is the session summary written in the output directory.
const SummaryFile = "summary.txt"

// Summary renders the session summary: every motor grouped by motor type
// with its verdict, headline metrics and comments.
func Summary(res *Result, processed string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session:             %s\n", res.ID)
	fmt.Fprintf(&b, "Directory:           %s\n", res.Dir)
	fmt.Fprintf(&b, "Processing Date:     %s\n", processed)
	fmt.Fprintf(&b, "Motors:              %d\n", len(res.Motors))

	counts := map[string]int{}
	for _, m := range res.Motors {
		counts[m.Record.Verdict().String()]++
	}
	fmt.Fprintf(&b, "Results:             OK %d  WARN %d  FAIL %d\n", counts["OK"], counts["WARN"], counts["FAIL"])

	sources := make(map[string]string, len(res.Motors))
	for _, m := range res.Motors {
		sources[m.Record.RunID] = filepath.Base(m.Record.SourcePath)
	}

	for _, g := range report.GroupByMotorType(res.Reductions()) {
		name := g.MotorType
		if name == "" {
			name = UnknownMotorType
		}
		fmt.Fprintf(&b, "\n%s\n", name)
		for _, r := range g.Reductions {
			fmt.Fprintf(&b, "  %-20s %-20s %-5s  Total Impulse: %-8s Peak Thrust: %-7s Burn Time: %s\n",
				r.FileName, sources[r.RunID], r.Verdict,
				report.FormatFloat(r.TotalImpulse), report.FormatFloat(r.MaxImpulse), report.FormatFloat(r.BurnTime))
			fmt.Fprintf(&b, "  %-20s Comments: %s\n", "", r.Comments)
		}
	}
	return b.String()
}

func (r *Runner) writeSummary(res *Result) error {
	if err := r.FS.MkdirAll(res.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", res.OutputDir, err)
	}
	path := filepath.Join(res.OutputDir, SummaryFile)
	f, err := r.FS.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	processed := r.Processor.Clock.Now().Format(timeutil.ProcessingDateLayout)
	if _, err := f.Write([]byte(Summary(res, processed))); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	r.Logger.Info("Session summary: " + path)
	return nil
}
