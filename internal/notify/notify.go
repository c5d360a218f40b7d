// Package notify delivers alarm events to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"daybook/internal/alarm"
	appLog "daybook/internal/log"
)

// Dispatcher delivers one boundary event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev alarm.Event) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, ev alarm.Event) error

func (f DispatcherFunc) Dispatch(ctx context.Context, ev alarm.Event) error {
	return f(ctx, ev)
}

// Multi fans an event out to every sink. A failing sink does not stop the
// others; all failures are joined into the returned error for the caller to
// report.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, ev alarm.Event) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Console prints a coloured line per event, optionally ringing the terminal
// bell as the audio cue.
type Console struct {
	w    io.Writer
	bell bool

	mu    sync.Mutex
	start *color.Color
	end   *color.Color
}

func NewConsole(w io.Writer, bell bool) *Console {
	return &Console{
		w:     w,
		bell:  bell,
		start: color.New(color.FgGreen, color.Bold),
		end:   color.New(color.FgCyan, color.Bold),
	}
}

func (c *Console) Dispatch(_ context.Context, ev alarm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	style := c.start
	if ev.Edge == alarm.EdgeEnd {
		style = c.end
	}
	if c.bell {
		if _, err := io.WriteString(c.w, "\a"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(c.w, "%s %s  %s [%s]\n",
		ev.At.Format("15:04"),
		style.Sprint(ev.Title()),
		ev.Body(),
		ev.Sound,
	)
	return err
}

// Toast is one in-app message.
type Toast struct {
	Key         string    `json:"key"`
	ActivityID  string    `json:"activity_id"`
	Edge        string    `json:"edge"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Sound       string    `json:"sound"`
	At          time.Time `json:"at"`
}

// Feed keeps the most recent toasts for the web UI and the terminal view.
type Feed struct {
	mu     sync.RWMutex
	limit  int
	toasts []Toast
}

const defaultFeedLimit = 20

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	return &Feed{limit: limit}
}

func (f *Feed) Dispatch(_ context.Context, ev alarm.Event) error {
	t := Toast{
		Key:         ev.Key,
		ActivityID:  ev.Activity.ID,
		Edge:        string(ev.Edge),
		Title:       ev.Title(),
		Description: ev.Body(),
		Sound:       ev.Sound,
		At:          ev.At,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, t)
	if over := len(f.toasts) - f.limit; over > 0 {
		f.toasts = append([]Toast(nil), f.toasts[over:]...)
	}
	return nil
}

// Recent returns the stored toasts, newest first.
func (f *Feed) Recent() []Toast {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Toast, len(f.toasts))
	for i, t := range f.toasts {
		out[len(f.toasts)-1-i] = t
	}
	return out
}

// Log writes each event to the application log.
type Log struct{}

func (Log) Dispatch(_ context.Context, ev alarm.Event) error {
	appLog.Info("alarm fired",
		"activity", ev.Activity.ID,
		"edge", string(ev.Edge),
		"at", ev.At.Format("15:04"),
		"sound", ev.Sound,
	)
	return nil
}
