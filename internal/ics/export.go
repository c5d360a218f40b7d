// Package ics converts the day plan to and from iCalendar and expands the
// daily recurrence of activity boundaries.
package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"daybook/internal/model"
)

const (
	uidSuffix = "@daybook"

	// floatingLayout is a DATE-TIME without zone: the plan follows the local
	// wall clock wherever it is opened.
	floatingLayout = "20060102T150405"

	propCategories = ical.ComponentProperty("CATEGORIES")
	propAlarm      = ical.ComponentProperty("X-DAYBOOK-ALARM")
	propSound      = ical.ComponentProperty("X-DAYBOOK-SOUND")
	propEmoji      = ical.ComponentProperty("X-DAYBOOK-EMOJI")
)

// dailyRule is the RRULE value shared by every exported activity.
func dailyRule() string {
	opt := rrule.ROption{Freq: rrule.DAILY}
	return opt.String()
}

// Export renders activities as a calendar of daily recurring events
// anchored on day. Midnight-crossing activities end on the following date.
func Export(activities []model.Activity, day time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//daybook//daily plan//EN")

	stamp := time.Now().UTC()
	rule := dailyRule()

	for _, a := range activities {
		start := a.Start.On(day)
		end := a.Interval().EndOn(day)

		ev := cal.AddEvent(a.ID + uidSuffix)
		ev.SetDtStampTime(stamp)
		ev.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
		ev.SetProperty(ical.ComponentPropertyDtEnd, end.Format(floatingLayout))
		ev.SetProperty(ical.ComponentPropertyRrule, rule)
		ev.SetSummary(a.Title)
		if a.Description != "" {
			ev.SetDescription(a.Description)
		}
		ev.SetProperty(propCategories, strings.ToUpper(string(a.Category)))
		ev.SetProperty(propEmoji, a.Emoji)
		ev.SetProperty(propAlarm, boolValue(a.AlarmEnabled))
		if a.AlarmSound != "" {
			ev.SetProperty(propSound, a.AlarmSound)
		}
	}

	return cal.Serialize()
}

func boolValue(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
