package motortest

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is matched by every structural failure of a motor file:
// unreadable, too short, or carrying values that cannot be parsed.
var ErrMalformedRecord = errors.New("malformed motor record")

// MalformedRecordError describes why a motor file could not be parsed.
// Line is the 1-based line number, or 0 when the problem is file-wide.
type MalformedRecordError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrMalformedRecord) succeed.
func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

func (e *MalformedRecordError) Unwrap() error { return e.Err }
