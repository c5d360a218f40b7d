package ics

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"daybook/internal/alarm"
	"daybook/internal/catalog"
	"daybook/internal/model"
)

func activity(id, start, end string, cat model.Category, alarmOn bool) model.Activity {
	return model.Activity{
		ID:           id,
		Start:        model.MustParseTimeOfDay(start),
		End:          model.MustParseTimeOfDay(end),
		Title:        id,
		Emoji:        cat.DefaultEmoji(),
		Category:     cat,
		AlarmEnabled: alarmOn,
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	in := catalog.DefaultDay()
	in[0].AlarmEnabled = false
	in[1].AlarmSound = "chime"

	body := Export(in, day)
	require.Contains(t, body, "BEGIN:VCALENDAR")
	require.Contains(t, body, "FREQ=DAILY")
	require.Contains(t, body, "DTSTART:20250301T230000")
	require.Contains(t, body, "DTEND:20250302T070000", "sleep ends on the next date")

	out, skipped, err := Import([]byte(body))
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.Len(t, out, len(in))

	for i := range in {
		require.Equal(t, in[i].ID, out[i].ID)
		require.Equal(t, in[i].Start, out[i].Start)
		require.Equal(t, in[i].End, out[i].End)
		require.Equal(t, in[i].Title, out[i].Title)
		require.Equal(t, in[i].Category, out[i].Category)
		require.Equal(t, in[i].Emoji, out[i].Emoji)
		require.Equal(t, in[i].Description, out[i].Description)
		require.Equal(t, in[i].AlarmEnabled, out[i].AlarmEnabled)
		require.Equal(t, in[i].AlarmSound, out[i].AlarmSound)
	}
}

func TestImportForeignCalendar(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//other//EN",
		"BEGIN:VEVENT",
		"UID:standup-1",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;TZID=Europe/Paris:20250106T093000",
		"DTEND;TZID=Europe/Paris:20250106T094500",
		"SUMMARY:Standup",
		"CATEGORIES:MEETING,WORK",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:holiday",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;VALUE=DATE:20250101",
		"DTEND;VALUE=DATE:20250102",
		"SUMMARY:Holiday",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:untitled",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250106T120000",
		"DTEND:20250106T130000",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	out, skipped, err := Import([]byte(body))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, skipped, 2)

	a := out[0]
	require.Equal(t, "standup-1", a.ID)
	require.Equal(t, "09:30", a.Start.String())
	require.Equal(t, "09:45", a.End.String())
	require.Equal(t, model.CategoryWork, a.Category)
	require.Equal(t, model.CategoryWork.DefaultEmoji(), a.Emoji)
	require.True(t, a.AlarmEnabled)

	require.ErrorIs(t, skipped[0], ErrAllDay)
	require.ErrorIs(t, skipped[1], model.ErrMissingTitle)
}

func TestImportEmptyBody(t *testing.T) {
	_, _, err := Import([]byte("  \n"))
	require.ErrorIs(t, err, ErrEmptyBody)
}

func TestUpcomingIncludesCrossingEnds(t *testing.T) {
	from := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	activities := []model.Activity{
		activity("focus", "09:00", "10:00", model.CategoryWork, true),
		activity("lunch", "12:00", "13:00", model.CategoryMeal, false),
		activity("sleep", "23:00", "07:00", model.CategorySleep, true),
	}

	got, err := Upcoming(activities, from, 1)
	require.NoError(t, err)

	type row struct {
		id   string
		edge alarm.Edge
		at   time.Time
	}
	var rows []row
	for _, b := range got {
		rows = append(rows, row{b.ActivityID, b.Edge, b.At.UTC()})
	}
	require.Equal(t, []row{
		{"focus", alarm.EdgeStart, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)},
		{"focus", alarm.EdgeEnd, time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)},
		{"sleep", alarm.EdgeStart, time.Date(2025, 1, 10, 23, 0, 0, 0, time.UTC)},
		{"sleep", alarm.EdgeEnd, time.Date(2025, 1, 11, 7, 0, 0, 0, time.UTC)},
	}, rows)
}

func TestUpcomingOrdersStartBeforeEnd(t *testing.T) {
	from := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	activities := []model.Activity{
		activity("a", "08:00", "09:00", model.CategoryWork, true),
		activity("b", "09:00", "10:00", model.CategoryWork, true),
	}
	got, err := Upcoming(activities, from, 1)
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, "b", got[1].ActivityID)
	require.Equal(t, alarm.EdgeStart, got[1].Edge)
	require.Equal(t, "a", got[2].ActivityID)
	require.Equal(t, alarm.EdgeEnd, got[2].Edge)
}

func TestUpcomingRejectsNonPositiveDays(t *testing.T) {
	_, err := Upcoming(nil, time.Now(), 0)
	require.Error(t, err)
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestExportKeepsWallClockEndAcrossDST(t *testing.T) {
	ny := newYork(t)
	sleep := activity("sleep", "23:00", "07:00", model.CategorySleep, true)

	// Clocks spring forward on the night of 2025-03-08/09 and fall back on
	// 2025-11-01/02.
	for _, day := range []time.Time{
		time.Date(2025, 3, 8, 0, 0, 0, 0, ny),
		time.Date(2025, 11, 1, 0, 0, 0, 0, ny),
	} {
		body := Export([]model.Activity{sleep}, day)
		next := day.AddDate(0, 0, 1).Format("20060102")
		require.Contains(t, body, "DTEND:"+next+"T070000")

		out, skipped, err := Import([]byte(body))
		require.NoError(t, err)
		require.Empty(t, skipped)
		require.Len(t, out, 1)
		require.Equal(t, "23:00", out[0].Start.String())
		require.Equal(t, "07:00", out[0].End.String())
	}
}

func TestUpcomingKeepsWallClockEndAcrossDST(t *testing.T) {
	ny := newYork(t)
	activities := []model.Activity{activity("sleep", "23:00", "07:00", model.CategorySleep, true)}

	for _, from := range []time.Time{
		time.Date(2025, 3, 8, 12, 0, 0, 0, ny),
		time.Date(2025, 3, 9, 12, 0, 0, 0, ny),
		time.Date(2025, 11, 1, 12, 0, 0, 0, ny),
	} {
		got, err := Upcoming(activities, from, 3)
		require.NoError(t, err)
		require.Len(t, got, 6)
		for _, b := range got {
			at := b.At.In(ny)
			if b.Edge == alarm.EdgeStart {
				require.Equal(t, 23, at.Hour(), at.String())
			} else {
				require.Equal(t, 7, at.Hour(), at.String())
			}
			require.Equal(t, 0, at.Minute())
		}
	}
}

func TestUpcomingFullDayActivityListsStartOnly(t *testing.T) {
	from := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	activities := []model.Activity{activity("fast", "06:00", "06:00", model.CategoryMystery, true)}

	got, err := Upcoming(activities, from, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, b := range got {
		require.Equal(t, alarm.EdgeStart, b.Edge)
		require.Equal(t, 6, b.At.Hour())
	}
}
