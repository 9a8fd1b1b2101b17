package tree

import (
	"fmt"
	"strings"
	"time"
)

// layoutWithFrac is the emitted form: ISO-8601, UTC-naive (no trailing
// "Z" or offset), microsecond precision, per spec.md §3 and §6.
const layoutWithFrac = "2006-01-02T15:04:05.000000"
const layoutNoFrac = "2006-01-02T15:04:05"

// Time is an ISO-8601 UTC-naive timestamp with microsecond precision.
// It accepts input with or without a fractional-seconds component and
// always emits with fractional seconds (spec.md §6).
type Time struct {
	time.Time
}

// NewTime wraps t, normalized to UTC.
func NewTime(t time.Time) Time {
	return Time{t.UTC()}
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(layoutWithFrac) + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(layoutWithFrac, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	if parsed, err := time.Parse(layoutNoFrac, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	// Also accept RFC3339 variants (with "Z"/offset) defensively, since
	// some producers may emit a timezone-qualified timestamp even though
	// this format is nominally UTC-naive.
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	return fmt.Errorf("tree: invalid ISO-8601 timestamp %q", s)
}
