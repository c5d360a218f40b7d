package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"daybook/internal/alarm"
	"daybook/internal/catalog"
	"daybook/internal/model"
	"daybook/internal/notify"
	"daybook/internal/session"
	"daybook/internal/store"
)

func newModel(t *testing.T) (Model, *session.Session) {
	t.Helper()
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	feed := notify.NewFeed(5)
	cat := catalog.New(store.NewMemory(), []model.Activity{{
		ID:           "focus",
		Start:        model.MustParseTimeOfDay("09:00"),
		End:          model.MustParseTimeOfDay("10:00"),
		Title:        "Deep work",
		Emoji:        "💻",
		Category:     model.CategoryWork,
		AlarmEnabled: true,
	}})
	sess := session.New(cat, alarm.NewEngine(), session.Options{
		Clock:      func() time.Time { return now },
		Dispatcher: feed,
	})
	sess.TickLocator()
	sess.TickAlarms(context.Background())
	return New(sess, feed), sess
}

func TestViewShowsCurrentStatsAndToasts(t *testing.T) {
	m, _ := newModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	view := next.View()
	require.Contains(t, view, "Deep work")
	require.Contains(t, view, "1h00 left")
	require.Contains(t, view, "Activity started")
	require.Contains(t, view, "alarms on")
}

func TestKeysToggleAlarmsAndQuit(t *testing.T) {
	m, sess := newModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	require.False(t, sess.Alarms().Enabled())
	require.Contains(t, next.View(), "alarms off")

	_, cmd := next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTickAdvancesClock(t *testing.T) {
	m, _ := newModel(t)
	at := time.Date(2025, 1, 10, 9, 0, 5, 0, time.UTC)
	next, cmd := m.Update(tickMsg(at))
	require.NotNil(t, cmd)
	require.True(t, strings.Contains(next.View(), "09:00:05"))
}

func TestProgressBarClamps(t *testing.T) {
	require.Equal(t, 10, len([]rune(stripANSI(progressBar(150, 4)))))
	require.NotContains(t, stripANSI(progressBar(-5, 10)), "█")
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && r == 'm':
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
