package motortest

import (
	"strings"

	"go.uber.org/zap"
)

// NoComments is the marker reported when a record accumulated no comments.
const NoComments = "None"

// Trail is the diagnostic context threaded through Parse, Check and Reduce.
// It owns the record's verdict, which may only escalate, and the ordered
// comment trail that makes the final report readable without the logs.
type Trail struct {
	verdict  Verdict
	comments []string
	log      *zap.Logger
}

// NewTrail starts a trail at UNKNOWN. A nil logger is replaced by a no-op logger.
func NewTrail(log *zap.Logger) *Trail {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trail{verdict: Unknown, log: log}
}

// Logger returns the logger diagnostics are written to.
func (t *Trail) Logger() *zap.Logger { return t.log }

// Verdict returns the current verdict.
func (t *Trail) Verdict() Verdict { return t.verdict }

// Escalate raises the verdict to v if v is more severe. Invalid values are
// logged and ignored.
func (t *Trail) Escalate(v Verdict) {
	if !v.Valid() {
		t.log.Warn("ignoring invalid verdict", zap.Int("verdict", int(v)))
		return
	}
	t.verdict = t.verdict.Worse(v)
}

// Fail escalates to FAIL and records comment.
func (t *Trail) Fail(comment string, fields ...zap.Field) {
	t.log.Error(comment, fields...)
	t.add(Fail, comment)
}

// Warn escalates to WARN and records comment.
func (t *Trail) Warn(comment string, fields ...zap.Field) {
	t.log.Warn(comment, fields...)
	t.add(Warn, comment)
}

func (t *Trail) add(v Verdict, comment string) {
	t.Escalate(v)
	if comment != "" {
		t.comments = append(t.comments, comment)
	}
}

// CommentList returns a copy of the accumulated comments in order.
func (t *Trail) CommentList() []string {
	return append([]string(nil), t.comments...)
}

// Comments returns the comments joined by single spaces, or NoComments.
func (t *Trail) Comments() string {
	if len(t.comments) == 0 {
		return NoComments
	}
	return strings.Join(t.comments, " ")
}

// Finalize resolves a verdict still at UNKNOWN to OK. It is called once,
// after the last stage of the pipeline.
func (t *Trail) Finalize() Verdict {
	if t.verdict == Unknown {
		t.verdict = OK
	}
	return t.verdict
}
