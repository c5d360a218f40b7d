package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MinutesPerDay is the length of the scheduling day.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes since local midnight,
// in the range [0, 1440).
type TimeOfDay int

// ParseError reports a malformed "HH:MM" literal.
type ParseError struct {
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse time of day %q: %s", e.Value, e.Reason)
}

// ParseTimeOfDay parses a zero-padded "HH:MM" literal.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, &ParseError{Value: s, Reason: "expected HH:MM"}
	}
	h, ok := twoDigits(s[0], s[1])
	if !ok {
		return 0, &ParseError{Value: s, Reason: "hours are not digits"}
	}
	m, ok := twoDigits(s[3], s[4])
	if !ok {
		return 0, &ParseError{Value: s, Reason: "minutes are not digits"}
	}
	if h > 23 {
		return 0, &ParseError{Value: s, Reason: "hours out of range"}
	}
	if m > 59 {
		return 0, &ParseError{Value: s, Reason: "minutes out of range"}
	}
	return TimeOfDay(h*60 + m), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for literals known to be valid.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// FromTime returns the minute of day of t in its own location. Seconds are
// truncated.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Valid reports whether t is inside [0, 1440).
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

// Hour and Minute split the value back into clock components.
func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On returns the instant at this time of day on the calendar date of day.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, day.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("time of day %d out of range", int(t))
	}
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &ParseError{Value: string(data), Reason: "not a string"}
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
