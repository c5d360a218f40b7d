// Package locator maps a wall-clock time onto the day plan.
package locator

import (
	"time"

	"daybook/internal/model"
)

// Result is the outcome of one locator pass.
type Result struct {
	// Current is nil when now falls outside every activity.
	Current *model.Activity
	// Next is the activity after Current in catalog order (wrapping), or the
	// first activity when nothing is current. Nil only for an empty catalog.
	Next *model.Activity
	// Progress through Current in percent, [0, 100). Zero when idle.
	Progress float64
	// RemainingMinutes until Current ends. Zero when idle.
	RemainingMinutes int
	// Now is the minute of day the pass was evaluated at.
	Now model.TimeOfDay
}

// Locate scans activities in order and returns the first one containing now.
//
// A midnight-crossing activity has its end moved to the next day; when now is
// before its start the after-midnight part is checked by shifting now by one
// day as well. An activity with start == end never matches here.
func Locate(activities []model.Activity, now time.Time) Result {
	return LocateAt(activities, model.FromTime(now))
}

// LocateAt is Locate for an explicit minute of day.
func LocateAt(activities []model.Activity, now model.TimeOfDay) Result {
	res := Result{Now: now}

	for i := range activities {
		a := activities[i]
		iv := a.Interval()
		start := int(iv.Start)
		end := iv.UnwrappedEnd()

		adjusted := int(now)
		if adjusted < start && end > model.MinutesPerDay {
			adjusted += model.MinutesPerDay
		}

		if !iv.Contains(adjusted) {
			continue
		}

		next := activities[(i+1)%len(activities)]
		res.Current = &a
		res.Next = &next
		res.Progress = float64(adjusted-start) / float64(end-start) * 100
		res.RemainingMinutes = end - adjusted
		return res
	}

	if len(activities) > 0 {
		first := activities[0]
		res.Next = &first
	}
	return res
}
