package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"daybook/internal/alarm"
	appLog "daybook/internal/log"
	"daybook/internal/model"
)

const maxUpcomingDays = 14

// Boundary is one future alarm-bearing boundary of a daily activity.
type Boundary struct {
	ActivityID string     `json:"activity_id"`
	Title      string     `json:"title"`
	Emoji      string     `json:"emoji"`
	Edge       alarm.Edge `json:"edge"`
	At         time.Time  `json:"at"`
}

// Upcoming expands the daily recurrence of every alarm-enabled activity and
// returns the boundaries in [from, from+days). Boundaries are ordered by
// time, then start before end, then catalog order.
//
// Expansion starts one day before from so that the end of an activity which
// began yesterday and crosses midnight is included.
func Upcoming(activities []model.Activity, from time.Time, days int) ([]Boundary, error) {
	if days <= 0 {
		return nil, errors.New("upcoming: days must be positive")
	}
	if days > maxUpcomingDays {
		days = maxUpcomingDays
	}
	from = from.Truncate(time.Minute)
	until := from.AddDate(0, 0, days)
	anchor := from.AddDate(0, 0, -1)

	type ranked struct {
		Boundary
		order int
	}
	var all []ranked

	for i, a := range activities {
		if !a.AlarmEnabled {
			continue
		}
		if !a.Interval().Valid() {
			appLog.Warn("upcoming: activity skipped", "id", a.ID, "interval", a.Interval().String())
			continue
		}

		edges := []alarm.Edge{alarm.EdgeStart, alarm.EdgeEnd}
		if a.Start == a.End {
			// Start wins when both boundaries fall on the same minute.
			edges = edges[:1]
		}

		for _, edge := range edges {
			first := a.Start.On(anchor)
			if edge == alarm.EdgeEnd {
				first = a.Interval().EndOn(anchor)
			}
			r, err := rrule.NewRRule(rrule.ROption{Freq: rrule.DAILY, Dtstart: first})
			if err != nil {
				appLog.Error("upcoming: rrule failed", err, "id", a.ID)
				continue
			}
			for _, at := range r.Between(from, until, true) {
				if !at.Before(until) {
					continue
				}
				all = append(all, ranked{
					Boundary: Boundary{
						ActivityID: a.ID,
						Title:      a.Title,
						Emoji:      a.Emoji,
						Edge:       edge,
						At:         at,
					},
					order: i,
				})
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].At.Equal(all[j].At) {
			return all[i].At.Before(all[j].At)
		}
		if all[i].Edge != all[j].Edge {
			return all[i].Edge == alarm.EdgeStart
		}
		return all[i].order < all[j].order
	})

	out := make([]Boundary, len(all))
	for i, r := range all {
		out[i] = r.Boundary
	}
	return out, nil
}
