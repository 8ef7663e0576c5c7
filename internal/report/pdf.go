package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/nar-st/motortest/internal/db"
	"github.com/nar-st/motortest/internal/motortest"
	"github.com/nar-st/motortest/internal/timeutil"
	"github.com/nar-st/motortest/internal/version"
)

const (
	pdfFont       = "Helvetica"
	pdfLineHeight = 6.0
	pdfLabelWidth = 50.0
	plotImageName = "thrustcurve"
)

func newPDF(title string, created time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetCreator("motortest "+version.String(), false)
	if !created.IsZero() {
		pdf.SetCreationDate(created)
		pdf.SetModificationDate(created)
	}
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	return pdf
}

func pdfHeading(pdf *fpdf.Fpdf, text string, size float64) {
	pdf.SetFont(pdfFont, "B", size)
	pdf.CellFormat(0, size/2+2, text, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

// pdfTable writes a header row and rows; widths are in mm.
func pdfTable(pdf *fpdf.Fpdf, widths []float64, header []string, rows [][]string) {
	pdf.SetFont(pdfFont, "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(widths[i], pdfLineHeight, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont(pdfFont, "", 9)
	for _, row := range rows {
		for i, v := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], pdfLineHeight, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// MotorReport is the input to WriteMotorPDF.
type MotorReport struct {
	Record  *motortest.TestRecord
	Summary SummaryOptions
	// PNG is the rendered thrust plot; omitted from the page when empty.
	PNG []byte
	// History lists earlier reductions of the same file name, oldest first.
	History []db.Reduction
}

// WriteMotorPDF writes the certification report of one motor: the summary
// fields, the thrust plot and the ledger history of the file.
func WriteMotorPDF(w io.Writer, r MotorReport) error {
	rec := r.Record
	pdf := newPDF("Motor Test Report "+rec.BaseName(), r.Summary.ProcessedAt)

	pdfHeading(pdf, "Motor Test Report: "+rec.BaseName(), 16)

	pdf.SetFont(pdfFont, "", 10)
	for _, g := range summaryGroups(rec, r.Summary) {
		for _, f := range g {
			if f[0] == "Comments:" {
				continue
			}
			pdf.SetFont(pdfFont, "B", 10)
			pdf.CellFormat(pdfLabelWidth, pdfLineHeight-1, f[0], "", 0, "L", false, 0, "")
			pdf.SetFont(pdfFont, "", 10)
			pdf.CellFormat(0, pdfLineHeight-1, f[1], "", 1, "L", false, 0, "")
		}
		pdf.Ln(1.5)
	}

	if len(r.PNG) > 0 {
		imgOpts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader(plotImageName, imgOpts, bytes.NewReader(r.PNG))
		pdf.ImageOptions(plotImageName, 0, 0, 170, 0, true, imgOpts, 0, "")
		pdf.Ln(2)
	}

	pdfHeading(pdf, "Comments", 12)
	pdf.SetFont(pdfFont, "", 10)
	pdf.MultiCell(0, pdfLineHeight-1, strings.Join(commentLines(rec), "\n"), "", "L", false)
	pdf.Ln(3)

	if len(r.History) > 0 {
		pdfHeading(pdf, "Reduction History", 12)
		rows := make([][]string, len(r.History))
		for i, h := range r.History {
			rows[i] = []string{
				shortID(h.RunID),
				h.ProcessedAt.Format(timeutil.ProcessingDateLayout),
				FormatFloat(h.TotalImpulse),
				FormatFloat(h.MaxImpulse),
				FormatFloat(h.BurnTime),
				h.Verdict.String(),
			}
		}
		pdfTable(pdf, []float64{25, 40, 30, 28, 25, 22},
			[]string{"Run", "Processed", "Total Impulse", "Peak Thrust", "Burn Time", "Result"}, rows)
	}

	pdf.Ln(4)
	pdf.SetFont(pdfFont, "I", 8)
	pdf.CellFormat(0, 4, SentinelNote, "", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write motor pdf: %w", err)
	}
	return nil
}

// SessionReport is the input to WriteSessionPDF.
type SessionReport struct {
	SessionID   string
	Directory   string
	ProcessedAt time.Time
	// Motors are the session's reductions, ordered by motor type then file name.
	Motors []db.Reduction
}

// WriteSessionPDF writes the session summary: one table per motor type.
func WriteSessionPDF(w io.Writer, r SessionReport) error {
	pdf := newPDF("Session Report", r.ProcessedAt)
	pdfHeading(pdf, "Session Report", 16)

	pdf.SetFont(pdfFont, "", 10)
	pdf.CellFormat(0, pdfLineHeight, "Directory: "+r.Directory, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, pdfLineHeight, "Session: "+r.SessionID, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, pdfLineHeight, "Processing Date: "+r.ProcessedAt.Format(timeutil.ProcessingDateLayout), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, pdfLineHeight, fmt.Sprintf("Motors: %d", len(r.Motors)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, group := range GroupByMotorType(r.Motors) {
		pdfHeading(pdf, displayMotorType(group.MotorType), 12)
		rows := make([][]string, len(group.Reductions))
		for i, m := range group.Reductions {
			rows[i] = []string{
				m.FileName,
				FormatFloat(m.TotalImpulse),
				FormatFloat(m.MaxImpulse),
				FormatFloat(m.BurnTime),
				FormatFloat(m.AverageImpulse),
				formatDelay(m.CalculatedEjectionDelay),
				m.Verdict.String(),
			}
		}
		pdfTable(pdf, []float64{40, 26, 24, 22, 26, 22, 20},
			[]string{"File", "Total Impulse", "Peak Thrust", "Burn Time", "Avg Thrust", "Delay", "Result"}, rows)
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write session pdf: %w", err)
	}
	return nil
}

// MotorTypeGroup is the reductions sharing one motor type.
type MotorTypeGroup struct {
	MotorType  string
	Reductions []db.Reduction
}

// GroupByMotorType groups reductions by motor type in first-seen order.
func GroupByMotorType(rs []db.Reduction) []MotorTypeGroup {
	var groups []MotorTypeGroup
	index := make(map[string]int)
	for _, r := range rs {
		i, ok := index[r.MotorType]
		if !ok {
			i = len(groups)
			index[r.MotorType] = i
			groups = append(groups, MotorTypeGroup{MotorType: r.MotorType})
		}
		groups[i].Reductions = append(groups[i].Reductions, r)
	}
	return groups
}

func displayMotorType(t string) string {
	if t == "" {
		return "Unknown motor type"
	}
	return t
}

func commentLines(rec *motortest.TestRecord) []string {
	if c := rec.Trail.CommentList(); len(c) > 0 {
		return c
	}
	return []string{motortest.NoComments}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
