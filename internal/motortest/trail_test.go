package motortest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTrailStartsUnknownAndFinalizesToOK(t *testing.T) {
	trail := NewTrail(nil)
	assert.Equal(t, Unknown, trail.Verdict())
	assert.Equal(t, NoComments, trail.Comments())

	assert.Equal(t, OK, trail.Finalize())
	assert.Equal(t, OK, trail.Verdict())
}

func TestTrailFinalizeKeepsEscalation(t *testing.T) {
	trail := NewTrail(nil)
	trail.Warn(CommentDataRateMismatch)
	assert.Equal(t, Warn, trail.Finalize())
}

func TestTrailCommentsAccumulateRegardlessOfVerdict(t *testing.T) {
	trail := NewTrail(nil)
	trail.Fail(CommentTooFewPoints)
	trail.Warn(CommentPointCountMismatch)
	trail.Warn(CommentExceedsTestLength)

	assert.Equal(t, Fail, trail.Verdict())
	assert.Equal(t,
		"Too few Data Points. Found Graph Points != Number Data Points. Found Graph Points exceed maximum test length.",
		trail.Comments())
	assert.Len(t, trail.CommentList(), 3)
}

func TestTrailLogsAtSeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	trail := NewTrail(zap.New(core))

	trail.Warn("warned", zap.Int("n", 1))
	trail.Fail("failed")
	trail.Escalate(Verdict(7))

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "warned", entries[0].Message)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
		assert.Equal(t, "ignoring invalid verdict", entries[2].Message)
	}
	assert.Equal(t, Fail, trail.Verdict())
}
