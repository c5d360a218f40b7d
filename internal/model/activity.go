package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Category groups activities for statistics and styling.
type Category string

const (
	CategoryWork       Category = "work"
	CategoryLanguage   Category = "language"
	CategoryChores     Category = "chores"
	CategoryMeditation Category = "meditation"
	CategoryFreeTime   Category = "free-time"
	CategorySleep      Category = "sleep"
	CategoryMystery    Category = "mystery"
	CategoryMeal       Category = "meal"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryWork,
	CategoryLanguage,
	CategoryChores,
	CategoryMeditation,
	CategoryFreeTime,
	CategorySleep,
	CategoryMystery,
	CategoryMeal,
}

var categoryEmoji = map[Category]string{
	CategoryWork:       "💻",
	CategoryLanguage:   "🇫🇷",
	CategoryChores:     "🧹",
	CategoryMeditation: "🧘",
	CategoryFreeTime:   "🎮",
	CategorySleep:      "😴",
	CategoryMystery:    "🌀",
	CategoryMeal:       "🍽️",
}

var categoryLabel = map[Category]string{
	CategoryWork:       "Work",
	CategoryLanguage:   "Languages",
	CategoryChores:     "Chores",
	CategoryMeditation: "Meditation",
	CategoryFreeTime:   "Free time",
	CategorySleep:      "Sleep",
	CategoryMystery:    "Mystery",
	CategoryMeal:       "Meals",
}

func (c Category) Valid() bool {
	_, ok := categoryEmoji[c]
	return ok
}

// DefaultEmoji is the emoji suggested for new activities of this category.
func (c Category) DefaultEmoji() string {
	return categoryEmoji[c]
}

// Label is the human-readable name, falling back to the raw value.
func (c Category) Label() string {
	if l, ok := categoryLabel[c]; ok {
		return l
	}
	return string(c)
}

// Rank is the position of c in Categories, or len(Categories) when unknown.
func (c Category) Rank() int {
	for i, k := range Categories {
		if k == c {
			return i
		}
	}
	return len(Categories)
}

// Activity is one time-boxed block of the daily plan. The JSON shape is the
// persisted record format.
type Activity struct {
	ID           string    `json:"id"`
	Start        TimeOfDay `json:"startTime"`
	End          TimeOfDay `json:"endTime"`
	Title        string    `json:"title"`
	Emoji        string    `json:"emoji"`
	Category     Category  `json:"category"`
	Description  string    `json:"description,omitempty"`
	AlarmEnabled bool      `json:"alarmEnabled"`
	AlarmSound   string    `json:"alarmSound,omitempty"`
}

// UnmarshalJSON requires both startTime and endTime; an absent or null time
// is a *ParseError rather than midnight.
func (a *Activity) UnmarshalJSON(data []byte) error {
	type plain Activity
	aux := struct {
		*plain
		Start *TimeOfDay `json:"startTime"`
		End   *TimeOfDay `json:"endTime"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Start == nil {
		return &ParseError{Reason: "startTime is missing"}
	}
	if aux.End == nil {
		return &ParseError{Reason: "endTime is missing"}
	}
	a.Start, a.End = *aux.Start, *aux.End
	return nil
}

// Interval returns the activity's span.
func (a Activity) Interval() Interval {
	return Interval{Start: a.Start, End: a.End}
}

var (
	ErrMissingID    = errors.New("activity id is empty")
	ErrMissingTitle = errors.New("activity title is empty")
)

// Validate checks the invariants every catalog entry must satisfy.
func (a Activity) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(a.Title) == "" {
		return ErrMissingTitle
	}
	if !a.Category.Valid() {
		return fmt.Errorf("activity %s: unknown category %q", a.ID, a.Category)
	}
	if !a.Interval().Valid() {
		return fmt.Errorf("activity %s: interval %d-%d out of range", a.ID, int(a.Start), int(a.End))
	}
	return nil
}
