package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "daybook/internal/log"
	"daybook/internal/model"
)

var (
	ErrEmptyBody = errors.New("empty ICS body")
	ErrAllDay    = errors.New("all-day events have no time of day")
)

// EventError reports a VEVENT that could not be turned into an activity.
type EventError struct {
	UID string
	Err error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("vevent %q: %v", e.UID, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, `,`, `\;`, `;`, `\n`, "\n", `\N`, "\n")

// Import parses an ICS payload into activities. Only the wall-clock part of
// DTSTART and DTEND is kept; dates, zones and recurrence rules are ignored
// since every activity repeats daily. Events that cannot be converted are
// skipped and reported in the second return value.
func Import(body []byte) ([]model.Activity, []error, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil, ErrEmptyBody
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, nil, err
	}

	var (
		out     []model.Activity
		skipped []error
	)
	for _, ve := range cal.Events() {
		a, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "uid", a.ID, "err", perr.Error())
			skipped = append(skipped, &EventError{UID: a.ID, Err: perr})
			continue
		}
		out = append(out, a)
	}

	appLog.Info("ics import completed", "activities", len(out), "skipped", len(skipped))
	return out, skipped, nil
}

func parseVEvent(ve *ical.VEvent) (model.Activity, error) {
	var a model.Activity

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return a, errors.New("missing UID")
	}
	a.ID = strings.TrimSuffix(uid.Value, uidSuffix)

	start, err := clockProperty(ve, ical.ComponentPropertyDtStart)
	if err != nil {
		return a, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := clockProperty(ve, ical.ComponentPropertyDtEnd)
	if err != nil {
		return a, fmt.Errorf("DTEND: %w", err)
	}
	a.Start, a.End = start, end

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		a.Title = strings.TrimSpace(textUnescaper.Replace(p.Value))
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		a.Description = textUnescaper.Replace(p.Value)
	}

	a.Category = model.CategoryMystery
	if p := ve.GetProperty(propCategories); p != nil {
		// CATEGORIES may list several values; the first known one wins.
		for _, c := range strings.Split(p.Value, ",") {
			cat := model.Category(strings.ToLower(strings.TrimSpace(c)))
			if cat.Valid() {
				a.Category = cat
				break
			}
		}
	}

	a.Emoji = a.Category.DefaultEmoji()
	if p := ve.GetProperty(propEmoji); p != nil && p.Value != "" {
		a.Emoji = p.Value
	}

	a.AlarmEnabled = true
	if p := ve.GetProperty(propAlarm); p != nil {
		a.AlarmEnabled = !strings.EqualFold(strings.TrimSpace(p.Value), "FALSE")
	}
	if p := ve.GetProperty(propSound); p != nil {
		a.AlarmSound = p.Value
	}

	return a, a.Validate()
}

// clockProperty extracts HH:MM from a DATE-TIME value such as
// 20250101T073000, 20250101T073000Z or a TZID-qualified local time.
func clockProperty(ve *ical.VEvent, prop ical.ComponentProperty) (model.TimeOfDay, error) {
	p := ve.GetProperty(prop)
	if p == nil {
		return 0, errors.New("missing")
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return 0, ErrAllDay
	}
	v := strings.TrimSpace(p.Value)
	i := strings.IndexByte(v, 'T')
	if i < 0 {
		return 0, ErrAllDay
	}
	clock := strings.TrimSuffix(v[i+1:], "Z")
	if len(clock) != 6 && len(clock) != 4 {
		return 0, fmt.Errorf("malformed time %q", v)
	}
	return model.ParseTimeOfDay(clock[:2] + ":" + clock[2:4])
}
