package catalog

import "daybook/internal/model"

type seed struct {
	id, start, end, title string
	category             model.Category
	description          string
}

var defaultSeeds = []seed{
	{"morning-meditation", "07:00", "07:20", "Morning meditation", model.CategoryMeditation, "Breathing and intention for the day"},
	{"breakfast", "07:20", "08:00", "Breakfast", model.CategoryMeal, ""},
	{"deep-work-1", "08:00", "10:00", "Deep work", model.CategoryWork, "Most demanding task first"},
	{"language-1", "10:00", "10:45", "Language practice", model.CategoryLanguage, "Vocabulary and listening"},
	{"chores-1", "10:45", "11:15", "Tidy up", model.CategoryChores, ""},
	{"deep-work-2", "11:15", "12:30", "Deep work", model.CategoryWork, ""},
	{"lunch", "12:30", "13:30", "Lunch", model.CategoryMeal, ""},
	{"work-3", "13:30", "16:00", "Meetings and email", model.CategoryWork, ""},
	{"break", "16:00", "16:30", "Break", model.CategoryFreeTime, ""},
	{"language-2", "16:30", "17:15", "Language review", model.CategoryLanguage, "Speaking practice"},
	{"work-4", "17:15", "18:30", "Wrap up work", model.CategoryWork, "Plan tomorrow"},
	{"dinner", "18:30", "19:30", "Dinner", model.CategoryMeal, ""},
	{"mystery", "19:30", "20:30", "Mystery hour", model.CategoryMystery, "Something new every day"},
	{"free-evening", "20:30", "22:00", "Free time", model.CategoryFreeTime, ""},
	{"evening-meditation", "22:00", "22:30", "Evening meditation", model.CategoryMeditation, ""},
	{"chores-2", "22:30", "23:00", "Prepare for tomorrow", model.CategoryChores, ""},
	{"sleep", "23:00", "07:00", "Sleep", model.CategorySleep, ""},
}

// DefaultDay returns the built-in plan used when nothing is stored. It covers
// all 1440 minutes of the day without overlap; sleep crosses midnight.
func DefaultDay() []model.Activity {
	out := make([]model.Activity, 0, len(defaultSeeds))
	for _, s := range defaultSeeds {
		out = append(out, model.Activity{
			ID:           s.id,
			Start:        model.MustParseTimeOfDay(s.start),
			End:          model.MustParseTimeOfDay(s.end),
			Title:        s.title,
			Emoji:        s.category.DefaultEmoji(),
			Category:     s.category,
			Description:  s.description,
			AlarmEnabled: true,
		})
	}
	return out
}
