package model

import "time"

// Interval is a span between two times of day. When End is before Start the
// interval runs across midnight.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// EndOn is the wall-clock end of the occurrence that starts on day's date.
// It lands on the next date when the interval crosses midnight or spans a
// full day. Built from the calendar rather than Start plus Duration, so a
// DST change inside the occurrence does not shift it.
func (iv Interval) EndOn(day time.Time) time.Time {
	if iv.End <= iv.Start {
		return iv.End.On(day.AddDate(0, 0, 1))
	}
	return iv.End.On(day)
}

// Crosses reports whether the interval wraps past midnight.
func (iv Interval) Crosses() bool {
	return iv.End < iv.Start
}

// UnwrappedEnd returns End moved onto the following day for midnight-crossing
// intervals, so that Start <= UnwrappedEnd for every non-degenerate interval.
func (iv Interval) UnwrappedEnd() int {
	if iv.Crosses() {
		return int(iv.End) + MinutesPerDay
	}
	return int(iv.End)
}

// Duration is the scheduled length in minutes, always in (0, 1440].
// Start == End counts as a full day.
func (iv Interval) Duration() int {
	d := int(iv.End) - int(iv.Start)
	if d <= 0 {
		d += MinutesPerDay
	}
	return d
}

// Contains reports Start <= t < UnwrappedEnd. For the after-midnight part of a
// crossing interval the caller passes t already shifted by one day.
func (iv Interval) Contains(t int) bool {
	return int(iv.Start) <= t && t < iv.UnwrappedEnd()
}

func (iv Interval) Valid() bool {
	return iv.Start.Valid() && iv.End.Valid()
}

func (iv Interval) String() string {
	return iv.Start.String() + "-" + iv.End.String()
}
