package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"daybook/internal/model"
)

func act(id, start, end string, cat model.Category) model.Activity {
	return model.Activity{
		ID:       id,
		Start:    model.MustParseTimeOfDay(start),
		End:      model.MustParseTimeOfDay(end),
		Title:    id,
		Category: cat,
	}
}

func at(hhmm string) model.TimeOfDay {
	return model.MustParseTimeOfDay(hhmm)
}

func fullDay() []model.Activity {
	return []model.Activity{
		act("work", "08:00", "16:00", model.CategoryWork),
		act("dinner", "16:00", "17:00", model.CategoryMeal),
		act("free", "17:00", "23:00", model.CategoryFreeTime),
		act("sleep", "23:00", "08:00", model.CategorySleep),
	}
}

func TestSharesSumToHundred(t *testing.T) {
	rep := ComputeAt(fullDay(), at("12:00"))
	require.Equal(t, model.MinutesPerDay, rep.ScheduledMinutes)

	sum := 0.0
	for _, c := range rep.Categories {
		sum += c.SharePercent
	}
	require.InDelta(t, 100.0, sum, 0.01)
}

func TestCategoriesSortedByTotal(t *testing.T) {
	rep := ComputeAt(fullDay(), at("12:00"))
	got := make([]model.Category, len(rep.Categories))
	for i, c := range rep.Categories {
		got[i] = c.Category
	}
	require.Equal(t, []model.Category{
		model.CategorySleep, // 540
		model.CategoryWork,  // 480
		model.CategoryFreeTime,
		model.CategoryMeal,
	}, got)
	require.Equal(t, "9.0", rep.Categories[0].Hours())
	require.Equal(t, "Sleep", rep.Categories[0].Label)
}

func TestCompletedIgnoresWraparound(t *testing.T) {
	rep := ComputeAt(fullDay(), at("12:00"))
	byCat := map[model.Category]CategoryStats{}
	for _, c := range rep.Categories {
		byCat[c.Category] = c
	}

	// sleep ends at 08:00 < 12:00, so it counts as done even though tonight's
	// block has not started.
	require.Equal(t, 540, byCat[model.CategorySleep].CompletedMinutes)
	require.InDelta(t, 100.0, byCat[model.CategorySleep].ProgressPercent, 1e-9)
	require.Zero(t, byCat[model.CategoryWork].CompletedMinutes)
	require.Equal(t, 1, rep.CompletedActivities)
}

func TestCompletedIsStrict(t *testing.T) {
	rep := ComputeAt(fullDay(), at("16:00"))
	require.Equal(t, 1, rep.CompletedActivities, "work ending exactly now is not completed yet")

	rep = ComputeAt(fullDay(), at("16:01"))
	require.Equal(t, 2, rep.CompletedActivities)
}

func TestDayAggregates(t *testing.T) {
	rep := ComputeAt(nil, at("06:00"))
	require.Equal(t, 360, rep.ElapsedMinutes)
	require.Equal(t, 1080, rep.RemainingMinutes)
	require.InDelta(t, 25.0, rep.DayElapsedPercent, 1e-9)
	require.Empty(t, rep.Categories)
	require.Zero(t, rep.ScheduledMinutes)
}

func TestSameCategoryAccumulates(t *testing.T) {
	rep := ComputeAt([]model.Activity{
		act("w1", "08:00", "10:00", model.CategoryWork),
		act("w2", "14:00", "15:30", model.CategoryWork),
	}, at("11:00"))
	require.Len(t, rep.Categories, 1)
	require.Equal(t, 210, rep.Categories[0].TotalMinutes)
	require.Equal(t, 120, rep.Categories[0].CompletedMinutes)
}

func TestFormatMinutes(t *testing.T) {
	require.Equal(t, "0h00", FormatMinutes(0))
	require.Equal(t, "1h15", FormatMinutes(75))
	require.Equal(t, "24h00", FormatMinutes(1440))
	require.Equal(t, "0h00", FormatMinutes(-5))
}
