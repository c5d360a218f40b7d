// Package stats derives daily totals from the day plan.
package stats

import (
	"fmt"
	"sort"
	"time"

	"daybook/internal/model"
)

// CategoryStats aggregates every activity of one category.
type CategoryStats struct {
	Category         model.Category `json:"category"`
	Label            string         `json:"label"`
	TotalMinutes     int            `json:"total_minutes"`
	CompletedMinutes int            `json:"completed_minutes"`
	// SharePercent is TotalMinutes relative to all scheduled minutes.
	SharePercent float64 `json:"share_percent"`
	// ProgressPercent is CompletedMinutes relative to TotalMinutes.
	ProgressPercent float64 `json:"progress_percent"`
}

// Hours is TotalMinutes as hours with one decimal, e.g. "2.5".
func (c CategoryStats) Hours() string {
	return fmt.Sprintf("%.1f", float64(c.TotalMinutes)/60)
}

// Report is the full statistics view for one instant.
type Report struct {
	Categories          []CategoryStats `json:"categories"`
	ScheduledMinutes    int             `json:"scheduled_minutes"`
	CompletedActivities int             `json:"completed_activities"`
	ElapsedMinutes      int             `json:"elapsed_minutes"`
	RemainingMinutes    int             `json:"remaining_minutes"`
	DayElapsedPercent   float64         `json:"day_elapsed_percent"`
	Now                 model.TimeOfDay `json:"now"`
}

// Compute builds the report at now.
//
// An activity counts as completed when its end time of day is strictly before
// the current minute. No midnight adjustment is applied: an activity ending
// after midnight is counted as completed from its end onwards on the same day.
func Compute(activities []model.Activity, now time.Time) Report {
	return ComputeAt(activities, model.FromTime(now))
}

// ComputeAt is Compute for an explicit minute of day.
func ComputeAt(activities []model.Activity, now model.TimeOfDay) Report {
	byCat := make(map[model.Category]*CategoryStats)
	rep := Report{Now: now}

	for _, a := range activities {
		d := a.Interval().Duration()
		cs, ok := byCat[a.Category]
		if !ok {
			cs = &CategoryStats{Category: a.Category, Label: a.Category.Label()}
			byCat[a.Category] = cs
		}
		cs.TotalMinutes += d
		rep.ScheduledMinutes += d

		if a.End < now {
			cs.CompletedMinutes += d
			rep.CompletedActivities++
		}
	}

	rep.Categories = make([]CategoryStats, 0, len(byCat))
	for _, cs := range byCat {
		if rep.ScheduledMinutes > 0 {
			cs.SharePercent = float64(cs.TotalMinutes) / float64(rep.ScheduledMinutes) * 100
		}
		if cs.TotalMinutes > 0 {
			cs.ProgressPercent = float64(cs.CompletedMinutes) / float64(cs.TotalMinutes) * 100
		}
		rep.Categories = append(rep.Categories, *cs)
	}
	sort.Slice(rep.Categories, func(i, j int) bool {
		a, b := rep.Categories[i], rep.Categories[j]
		if a.TotalMinutes != b.TotalMinutes {
			return a.TotalMinutes > b.TotalMinutes
		}
		return a.Category.Rank() < b.Category.Rank()
	})

	rep.ElapsedMinutes = int(now)
	rep.RemainingMinutes = model.MinutesPerDay - rep.ElapsedMinutes
	rep.DayElapsedPercent = float64(rep.ElapsedMinutes) / model.MinutesPerDay * 100
	return rep
}

// FormatMinutes renders a duration as "XhYY", e.g. 75 -> "1h15".
func FormatMinutes(m int) string {
	if m < 0 {
		m = 0
	}
	return fmt.Sprintf("%dh%02d", m/60, m%60)
}
