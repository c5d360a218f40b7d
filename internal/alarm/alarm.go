// Package alarm decides when an activity boundary should raise a
// notification. Delivery is left to the caller.
package alarm

import (
	"fmt"
	"sync"
	"time"

	appLog "daybook/internal/log"
	"daybook/internal/model"
)

// Edge says which boundary of an activity was reached.
type Edge string

const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)

// Event is emitted once for a qualifying boundary.
type Event struct {
	Activity model.Activity
	Edge     Edge
	// At is the tick time truncated to the minute.
	At time.Time
	// Key is activityID + "-" + "HH:MM".
	Key string
	// Sound is the activity's alarm sound or the engine default.
	Sound string
}

// Title is the short notification headline for the event.
func (e Event) Title() string {
	if e.Edge == EdgeStart {
		return "⏰ Activity started"
	}
	return "✅ Activity finished"
}

// Body is the notification text, "emoji title".
func (e Event) Body() string {
	if e.Activity.Emoji == "" {
		return e.Activity.Title
	}
	return e.Activity.Emoji + " " + e.Activity.Title
}

// Policy selects how repeated ticks inside the same minute are deduplicated.
type Policy string

const (
	// PolicyLastKey compares each activity's key against a single
	// most-recently-fired key. Two activities sharing a boundary minute
	// overwrite each other's key, so both fire again on every tick of that
	// minute.
	PolicyLastKey Policy = "last-key"
	// PolicyPerBoundary remembers every key fired during the current day.
	PolicyPerBoundary Policy = "per-boundary"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyLastKey, PolicyPerBoundary:
		return Policy(s), nil
	case "":
		return PolicyLastKey, nil
	default:
		return "", fmt.Errorf("alarm: unknown dedup policy %q", s)
	}
}

// DefaultSound is used when neither the activity nor the engine sets one.
const DefaultSound = "bell"

// Engine holds the per-process firing state. It is safe for concurrent use,
// though ticks are expected to be sequential.
type Engine struct {
	mu           sync.Mutex
	enabled      bool
	policy       Policy
	defaultSound string

	lastFiredKey string

	// per-boundary policy only
	fired    map[string]struct{}
	firedDay string
}

type Option func(*Engine)

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithDefaultSound(s string) Option {
	return func(e *Engine) {
		if s != "" {
			e.defaultSound = s
		}
	}
}

func WithEnabled(enabled bool) Option {
	return func(e *Engine) { e.enabled = enabled }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		enabled:      true,
		policy:       PolicyLastKey,
		defaultSound: DefaultSound,
		fired:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetEnabled is the global alarm switch. Disabling suppresses events without
// resetting the firing state.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
}

func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// LastFiredKey is the key of the most recent event, "" before the first one.
func (e *Engine) LastFiredKey() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFiredKey
}

// Check runs one tick at now and returns the events to dispatch, in catalog
// order. Each activity is compared against the state as left by the
// activities processed before it in the same tick.
func (e *Engine) Check(activities []model.Activity, now time.Time) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return nil
	}

	minute := now.Truncate(time.Minute)
	current := model.FromTime(now)
	stamp := current.String()
	e.rollDay(now)

	var events []Event
	for _, a := range activities {
		if !a.AlarmEnabled {
			continue
		}
		if !a.Interval().Valid() {
			appLog.Warn("alarm: skipping activity with invalid boundaries", "id", a.ID, "start", int(a.Start), "end", int(a.End))
			continue
		}

		var edge Edge
		switch current {
		case a.Start:
			edge = EdgeStart
		case a.End:
			edge = EdgeEnd
		default:
			continue
		}

		key := a.ID + "-" + stamp
		if e.seen(key) {
			continue
		}
		e.remember(key)

		sound := a.AlarmSound
		if sound == "" {
			sound = e.defaultSound
		}
		events = append(events, Event{
			Activity: a,
			Edge:     edge,
			At:       minute,
			Key:      key,
			Sound:    sound,
		})
	}
	return events
}

func (e *Engine) seen(key string) bool {
	if e.policy == PolicyPerBoundary {
		_, ok := e.fired[key]
		return ok
	}
	return key == e.lastFiredKey
}

func (e *Engine) remember(key string) {
	e.lastFiredKey = key
	if e.policy == PolicyPerBoundary {
		e.fired[key] = struct{}{}
	}
}

func (e *Engine) rollDay(now time.Time) {
	if e.policy != PolicyPerBoundary {
		return
	}
	day := now.Format(time.DateOnly)
	if day != e.firedDay {
		e.firedDay = day
		clear(e.fired)
	}
}
