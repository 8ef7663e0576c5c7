package motortest

import (
	"fmt"
	"strings"
)

// Verdict is the certification outcome of a motor test. Values are ordered by
// severity so that a larger value is always the more dire outcome.
type Verdict int

const (
	OK Verdict = iota
	Unknown
	Warn
	Fail
)

var verdictNames = [...]string{
	OK:      "OK",
	Unknown: "UNKNOWN",
	Warn:    "WARN",
	Fail:    "FAIL",
}

// Valid reports whether v is one of the defined verdicts.
func (v Verdict) Valid() bool {
	return v >= OK && v <= Fail
}

func (v Verdict) String() string {
	if !v.Valid() {
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
	return verdictNames[v]
}

// Worse returns the more severe of v and other. Invalid verdicts never win.
func (v Verdict) Worse(other Verdict) Verdict {
	if other.Valid() && other > v {
		return other
	}
	return v
}

// ParseVerdict maps a verdict name (case-insensitive) back to its value.
func ParseVerdict(s string) (Verdict, error) {
	for i, name := range verdictNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Verdict(i), nil
		}
	}
	return Unknown, fmt.Errorf("invalid verdict %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid verdict %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
