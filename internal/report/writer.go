package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nar-st/motortest/internal/config"
	"github.com/nar-st/motortest/internal/db"
	"github.com/nar-st/motortest/internal/fsutil"
	"github.com/nar-st/motortest/internal/motortest"
)

// Kind identifies a derived artifact.
type Kind int

const (
	KindSummary Kind = iota
	KindPlot
	KindChart
	KindPDF
)

// Ext returns the file extension of the artifact kind.
func (k Kind) Ext() string {
	switch k {
	case KindSummary:
		return ".txt"
	case KindPlot:
		return ".png"
	case KindChart:
		return ".html"
	case KindPDF:
		return ".pdf"
	}
	return ""
}

// Label is the name the console summary gives the artifact.
func (k Kind) Label() string {
	switch k {
	case KindSummary:
		return "Report"
	case KindPlot:
		return "Thrustcurve"
	case KindChart:
		return "Chart"
	case KindPDF:
		return "PDF Report"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Artifact is a file written for a record.
type Artifact struct {
	Kind Kind
	Name string // path of the written file
}

// Writer renders record artifacts into Dir on FS.
type Writer struct {
	FS     fsutil.FileSystem
	Dir    string
	Config *config.ReductionConfig
	Logger *zap.Logger
}

// NewWriter returns a Writer for dir; nil dependencies get defaults.
func NewWriter(fsys fsutil.FileSystem, dir string, cfg *config.ReductionConfig, log *zap.Logger) *Writer {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if cfg == nil {
		cfg = config.DefaultReductionConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{FS: fsys, Dir: dir, Config: cfg, Logger: log}
}

// Path returns where the artifact of kind k for base is written.
func (w *Writer) Path(base string, k Kind) string {
	return filepath.Join(w.Dir, base+k.Ext())
}

func (w *Writer) plotOptions() PlotOptions {
	return PlotOptions{YMax: w.Config.GetPlotYMax(), YStep: w.Config.GetPlotYStep()}
}

func (w *Writer) summaryOptions(rec *motortest.TestRecord) SummaryOptions {
	return SummaryOptions{ProcessedAt: rec.ProcessedAt, CertificationType: w.Config.GetCertificationType()}
}

// WriteProcessed writes the text summary, PNG plot and HTML chart of rec.
func (w *Writer) WriteProcessed(rec *motortest.TestRecord) ([]Artifact, error) {
	base := rec.BaseName()
	po := w.plotOptions()
	steps := []struct {
		kind   Kind
		render func(io.Writer) error
	}{
		{KindPlot, func(out io.Writer) error { return WritePNG(out, rec, po) }},
		{KindChart, func(out io.Writer) error { return WriteHTML(out, rec, po) }},
		{KindSummary, func(out io.Writer) error { return WriteSummary(out, rec, w.summaryOptions(rec)) }},
	}

	var written []Artifact
	for _, s := range steps {
		a, err := w.write(base, s.kind, s.render)
		if err != nil {
			return written, err
		}
		written = append(written, a)
	}
	return written, nil
}

// WriteMotorReport writes the PDF report of rec with its ledger history.
func (w *Writer) WriteMotorReport(rec *motortest.TestRecord, history []db.Reduction) (Artifact, error) {
	var png bytes.Buffer
	if err := WritePNG(&png, rec, w.plotOptions()); err != nil {
		return Artifact{}, err
	}
	return w.write(rec.BaseName(), KindPDF, func(out io.Writer) error {
		return WriteMotorPDF(out, MotorReport{
			Record:  rec,
			Summary: w.summaryOptions(rec),
			PNG:     png.Bytes(),
			History: history,
		})
	})
}

// WriteSessionReport writes <Dir>/session.pdf.
func (w *Writer) WriteSessionReport(r SessionReport) (Artifact, error) {
	return w.write("session", KindPDF, func(out io.Writer) error { return WriteSessionPDF(out, r) })
}

func (w *Writer) write(base string, k Kind, render func(io.Writer) error) (Artifact, error) {
	path := w.Path(base, k)
	if w.Dir != "" {
		if err := w.FS.MkdirAll(w.Dir, 0o755); err != nil {
			return Artifact{}, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := w.FS.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return Artifact{}, fmt.Errorf("render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close %s: %w", path, err)
	}
	w.Logger.Debug("wrote artifact", zap.String("kind", k.Label()), zap.String("path", path))
	return Artifact{Kind: k, Name: path}, nil
}
