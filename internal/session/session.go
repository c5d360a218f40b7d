// Package session owns the periodic work of a running dashboard: the
// locator refresh and the alarm check, each scheduled as its own cron task.
//
// Every tick is a pure computation over the current catalog snapshot followed
// by an apply step that publishes the result, so ticks can be driven directly
// in tests with an injected clock.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"daybook/internal/alarm"
	"daybook/internal/catalog"
	"daybook/internal/locator"
	appLog "daybook/internal/log"
	"daybook/internal/model"
	"daybook/internal/notify"
	"daybook/internal/observability"
	"daybook/internal/stats"
)

const (
	DefaultLocatorInterval = 10 * time.Second
	DefaultAlarmInterval   = time.Second
)

// Status is the applied result of the latest locator tick.
type Status struct {
	Current          *model.Activity `json:"current"`
	Next             *model.Activity `json:"next"`
	Progress         float64         `json:"progress"`
	RemainingMinutes int             `json:"remaining_minutes"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type Options struct {
	LocatorInterval time.Duration
	AlarmInterval   time.Duration
	// Clock defaults to time.Now.
	Clock      func() time.Time
	Dispatcher notify.Dispatcher
}

type Session struct {
	catalog    *catalog.Catalog
	engine     *alarm.Engine
	dispatcher notify.Dispatcher
	clock      func() time.Time

	locatorEvery time.Duration
	alarmEvery   time.Duration

	mu     sync.RWMutex
	status Status

	runMu sync.Mutex
	cron  *cron.Cron
	done  chan struct{}
}

func New(cat *catalog.Catalog, engine *alarm.Engine, opts Options) *Session {
	if opts.LocatorInterval <= 0 {
		opts.LocatorInterval = DefaultLocatorInterval
	}
	if opts.AlarmInterval <= 0 {
		opts.AlarmInterval = DefaultAlarmInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = notify.Log{}
	}
	if engine == nil {
		engine = alarm.NewEngine()
	}
	return &Session{
		catalog:      cat,
		engine:       engine,
		dispatcher:   opts.Dispatcher,
		clock:        opts.Clock,
		locatorEvery: opts.LocatorInterval,
		alarmEvery:   opts.AlarmInterval,
	}
}

func (s *Session) Catalog() *catalog.Catalog { return s.catalog }
func (s *Session) Alarms() *alarm.Engine     { return s.engine }

// Start runs one locator pass immediately and schedules both tasks. The
// tasks run until ctx is done or Stop is called.
func (s *Session) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cron != nil {
		return
	}

	s.TickLocator()

	logger := appLog.CronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(cron.Every(s.locatorEvery), cron.FuncJob(func() { s.TickLocator() }))
	c.Schedule(cron.Every(s.alarmEvery), cron.FuncJob(func() { s.TickAlarms(ctx) }))
	c.Start()
	s.cron = c
	done := make(chan struct{})
	s.done = done

	appLog.Info("session started",
		"locator_interval", s.locatorEvery.String(),
		"alarm_interval", s.alarmEvery.String(),
		"activities", s.catalog.Len(),
	)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()
}

// Stop removes both tasks and waits for a running tick to finish.
func (s *Session) Stop() {
	s.runMu.Lock()
	c := s.cron
	s.cron = nil
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	s.runMu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	appLog.Info("session stopped")
}

// TickLocator recomputes the current/next activity and publishes it.
func (s *Session) TickLocator() Status {
	now := s.clock()
	res := locator.Locate(s.catalog.List(), now)
	st := Status{
		Current:          res.Current,
		Next:             res.Next,
		Progress:         res.Progress,
		RemainingMinutes: res.RemainingMinutes,
		UpdatedAt:        now,
	}

	s.mu.Lock()
	prev := s.status.Current
	s.status = st
	s.mu.Unlock()

	observability.SetCurrentProgress(st.Progress)
	if activityID(prev) != activityID(st.Current) {
		appLog.Info("current activity changed", "from", activityID(prev), "to", activityID(st.Current))
	}
	return st
}

// TickAlarms runs the alarm engine once and dispatches its events.
func (s *Session) TickAlarms(ctx context.Context) []alarm.Event {
	events := s.engine.Check(s.catalog.List(), s.clock())
	for _, ev := range events {
		observability.RecordAlarmEvent(string(ev.Edge))
		if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
			observability.RecordDispatchFailure()
			appLog.Error("alarm dispatch failed", err, "key", ev.Key)
		}
	}
	return events
}

// Status returns the last applied locator result.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Stats computes statistics for the current catalog at the session clock.
func (s *Session) Stats() stats.Report {
	return stats.Compute(s.catalog.List(), s.clock())
}

// Now is the session clock.
func (s *Session) Now() time.Time {
	return s.clock()
}

func activityID(a *model.Activity) string {
	if a == nil {
		return ""
	}
	return a.ID
}
