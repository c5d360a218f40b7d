package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"daybook/internal/alarm"
	"daybook/internal/catalog"
	appLog "daybook/internal/log"
	"daybook/internal/model"
	"daybook/internal/notify"
	"daybook/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []alarm.Event
}

func (r *recorder) Dispatch(_ context.Context, ev alarm.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func act(id, start, end string) model.Activity {
	return model.Activity{
		ID:           id,
		Start:        model.MustParseTimeOfDay(start),
		End:          model.MustParseTimeOfDay(end),
		Title:        id,
		Emoji:        "💻",
		Category:     model.CategoryWork,
		AlarmEnabled: true,
	}
}

func newSession(t *testing.T, clk *fakeClock, rec *recorder, activities ...model.Activity) *Session {
	t.Helper()
	cat := catalog.New(store.NewMemory(), activities)
	return New(cat, alarm.NewEngine(), Options{Clock: clk.Now, Dispatcher: rec})
}

func TestTickLocatorPublishesStatus(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 10, 9, 30, 0, 0, time.Local)}
	s := newSession(t, clk, &recorder{}, act("focus", "09:00", "10:00"), act("lunch", "12:00", "13:00"))

	st := s.TickLocator()
	require.Equal(t, "focus", st.Current.ID)
	require.Equal(t, "lunch", st.Next.ID)
	require.InDelta(t, 50.0, st.Progress, 1e-9)
	require.Equal(t, st, s.Status())

	clk.Set(time.Date(2025, 1, 10, 11, 0, 0, 0, time.Local))
	s.TickLocator()
	require.Nil(t, s.Status().Current)
	require.Equal(t, "focus", s.Status().Next.ID)
}

func TestCatalogMutationVisibleOnNextTick(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 10, 14, 0, 0, 0, time.Local)}
	rec := &recorder{}
	s := newSession(t, clk, rec)

	require.Nil(t, s.TickLocator().Current)
	require.Empty(t, s.TickAlarms(context.Background()))

	_, err := s.Catalog().Add(context.Background(), act("walk", "14:00", "15:00"))
	require.NoError(t, err)

	require.Equal(t, "walk", s.TickLocator().Current.ID)
	events := s.TickAlarms(context.Background())
	require.Len(t, events, 1)
	require.Equal(t, 1, rec.count())
}

func TestTickAlarmsDedupsWithinMinute(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 10, 8, 0, 0, 0, time.Local)}
	rec := &recorder{}
	s := newSession(t, clk, rec, act("standup", "08:00", "08:15"))

	for sec := 0; sec < 60; sec++ {
		clk.Set(time.Date(2025, 1, 10, 8, 0, sec, 0, time.Local))
		s.TickAlarms(context.Background())
	}
	require.Equal(t, 1, rec.count())

	clk.Set(time.Date(2025, 1, 10, 8, 15, 0, 0, time.Local))
	s.TickAlarms(context.Background())
	require.Equal(t, 2, rec.count())
	require.Equal(t, alarm.EdgeEnd, rec.events[1].Edge)
}

func TestStatsUseSessionClock(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 10, 12, 0, 0, 0, time.Local)}
	s := newSession(t, clk, &recorder{}, act("morning", "08:00", "11:00"))
	rep := s.Stats()
	require.Equal(t, 720, rep.ElapsedMinutes)
	require.Equal(t, 1, rep.CompletedActivities)
}

func TestStartAndStop(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 10, 9, 30, 0, 0, time.Local)}
	s := newSession(t, clk, &recorder{}, act("focus", "09:00", "10:00"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	require.Equal(t, "focus", s.Status().Current.ID, "start runs an immediate locator pass")
	s.Start(ctx)

	s.Stop()
	s.Stop()
}

func TestEmptyCatalogIsQuiet(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 10, 0, 0, 0, 0, time.Local)}
	rec := &recorder{}
	s := newSession(t, clk, rec)
	st := s.TickLocator()
	require.Nil(t, st.Current)
	require.Nil(t, st.Next)
	require.Empty(t, s.TickAlarms(context.Background()))
}

func TestStopReleasesWatcherWithoutCancel(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 10, 9, 30, 0, 0, time.Local)}
	s := newSession(t, clk, &recorder{}, act("focus", "09:00", "10:00"))

	baseline := runtime.NumGoroutine()
	for i := 0; i < 5; i++ {
		s.Start(context.Background())
		s.Stop()
	}
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatchFailureLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	appLog.SetOutput(&buf)
	t.Cleanup(func() { appLog.SetOutput(os.Stderr) })

	failing := notify.DispatcherFunc(func(context.Context, alarm.Event) error {
		return errors.New("speaker unplugged")
	})
	clk := &fakeClock{now: time.Date(2025, 1, 10, 8, 0, 0, 0, time.Local)}
	cat := catalog.New(store.NewMemory(), []model.Activity{act("standup", "08:00", "08:15")})
	s := New(cat, alarm.NewEngine(), Options{Clock: clk.Now, Dispatcher: notify.Multi{failing, failing}})

	events := s.TickAlarms(context.Background())
	require.Len(t, events, 1)

	out := buf.String()
	require.Equal(t, 1, strings.Count(out, "alarm dispatch failed"), out)
	require.Equal(t, 2, strings.Count(out, "speaker unplugged"), "both sink errors are joined into the one line")
}
