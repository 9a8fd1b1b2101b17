package tree

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimeMarshalEmitsFractionalSeconds(t *testing.T) {
	ts := NewTime(time.Date(2026, 3, 4, 5, 6, 7, 890000000, time.UTC))
	b, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `"2026-03-04T05:06:07.890000"`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestTimeUnmarshalAcceptsFractionalAndPlainForms(t *testing.T) {
	cases := []string{
		`"2026-03-04T05:06:07.123456"`,
		`"2026-03-04T05:06:07"`,
		`"2026-03-04T05:06:07Z"`,
	}
	for _, in := range cases {
		var got Time
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", in, err)
		}
		if got.Year() != 2026 || got.Month() != time.March || got.Day() != 4 {
			t.Fatalf("Unmarshal(%s): got %v, wrong date", in, got)
		}
	}
}

func TestTimeUnmarshalRejectsGarbage(t *testing.T) {
	var got Time
	if err := json.Unmarshal([]byte(`"not-a-timestamp"`), &got); err == nil {
		t.Fatalf("Unmarshal: got nil error for garbage input")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	orig := NewTime(time.Date(2026, 12, 31, 23, 59, 59, 1000, time.UTC))
	b, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Time
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Equal(orig.Time) {
		t.Fatalf("round trip mismatch: got %v, want %v", decoded, orig)
	}
}
