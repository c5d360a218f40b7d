// Package catalog owns the ordered list of activities that make up the day.
//
// The list is held as an immutable snapshot that every mutation replaces
// atomically, so tick readers never need a lock. Writers are serialized and
// persist the new snapshot to the key-value store after each change.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	appLog "daybook/internal/log"
	"daybook/internal/model"
	"daybook/internal/observability"
	"daybook/internal/store"
)

// StoreKey is the fixed key the day plan is persisted under.
const StoreKey = "daily-schedule"

var (
	ErrNotFound    = errors.New("catalog: activity not found")
	ErrDuplicateID = errors.New("catalog: duplicate activity id")
)

// PersistenceError reports a store read/write or document decode failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RecordError describes a stored record that was skipped on load.
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (id %q): %v", e.Index, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Catalog is safe for concurrent use.
type Catalog struct {
	store store.Store

	mu      sync.Mutex // serializes writers
	snap    atomic.Pointer[[]model.Activity]
	version atomic.Uint64
}

// New builds a catalog over st seeded with activities. Entries are sorted by
// start time; they are not validated or persisted.
func New(st store.Store, activities []model.Activity) *Catalog {
	c := &Catalog{store: st}
	seed := slices.Clone(activities)
	sortByStart(seed)
	c.publish(seed)
	return c
}

// Load reads the persisted day plan from st. A missing document seeds the
// built-in default day. An unreadable or corrupt document also falls back to
// the default day; the returned error is then a *PersistenceError and the
// catalog is still usable. Malformed records are logged and skipped.
func Load(ctx context.Context, st store.Store) (*Catalog, error) {
	data, err := st.Get(ctx, StoreKey)
	if errors.Is(err, store.ErrNotFound) {
		appLog.Info("no stored schedule, using default day")
		return New(st, DefaultDay()), nil
	}
	if err != nil {
		perr := &PersistenceError{Op: "load", Err: err}
		appLog.Error("schedule unreadable, using default day", perr)
		return New(st, DefaultDay()), perr
	}

	activities, skipped, err := Decode(data)
	if err != nil {
		perr := &PersistenceError{Op: "decode", Err: err}
		appLog.Error("stored schedule corrupt, using default day", perr)
		return New(st, DefaultDay()), perr
	}
	for _, rerr := range skipped {
		appLog.Error("skipping stored activity", rerr)
	}

	appLog.Info("schedule loaded", "activities", len(activities), "skipped", len(skipped))
	return New(st, activities), nil
}

// Decode parses a stored document. A document that is not a JSON array is an
// error; records that fail to parse or validate are returned in skipped.
func Decode(data []byte) (activities []model.Activity, skipped []*RecordError, err error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool, len(raw))
	activities = make([]model.Activity, 0, len(raw))
	for i, rec := range raw {
		var a model.Activity
		if err := json.Unmarshal(rec, &a); err != nil {
			skipped = append(skipped, &RecordError{Index: i, ID: peekID(rec), Err: err})
			continue
		}
		if err := a.Validate(); err != nil {
			skipped = append(skipped, &RecordError{Index: i, ID: a.ID, Err: err})
			continue
		}
		if seen[a.ID] {
			skipped = append(skipped, &RecordError{Index: i, ID: a.ID, Err: ErrDuplicateID})
			continue
		}
		seen[a.ID] = true
		activities = append(activities, a)
	}
	return activities, skipped, nil
}

func peekID(rec json.RawMessage) string {
	var v struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec, &v)
	return v.ID
}

// Encode renders activities in the persisted document format.
func Encode(activities []model.Activity) ([]byte, error) {
	if activities == nil {
		activities = []model.Activity{}
	}
	return json.MarshalIndent(activities, "", "  ")
}

// List returns a copy of the current ordered snapshot.
func (c *Catalog) List() []model.Activity {
	return slices.Clone(*c.snap.Load())
}

// Len is the number of activities in the current snapshot.
func (c *Catalog) Len() int {
	return len(*c.snap.Load())
}

// Version increases by one on every successful mutation.
func (c *Catalog) Version() uint64 {
	return c.version.Load()
}

func (c *Catalog) Get(id string) (model.Activity, bool) {
	for _, a := range *c.snap.Load() {
		if a.ID == id {
			return a, true
		}
	}
	return model.Activity{}, false
}

// Add inserts a new activity. An empty id gets a fresh UUID and an empty
// emoji gets the category default. The stored activity is returned.
func (c *Catalog) Add(ctx context.Context, a model.Activity) (model.Activity, error) {
	if strings.TrimSpace(a.ID) == "" {
		a.ID = uuid.NewString()
	}
	if a.Emoji == "" {
		a.Emoji = a.Category.DefaultEmoji()
	}

	err := c.mutate(ctx, "add", func(cur []model.Activity) ([]model.Activity, error) {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if indexOf(cur, a.ID) >= 0 {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
		}
		return append(slices.Clone(cur), a), nil
	})
	if err != nil && !isPersistence(err) {
		return model.Activity{}, err
	}
	return a, err
}

// Update replaces the activity with the same id.
func (c *Catalog) Update(ctx context.Context, a model.Activity) error {
	if a.Emoji == "" {
		a.Emoji = a.Category.DefaultEmoji()
	}
	return c.mutate(ctx, "update", func(cur []model.Activity) ([]model.Activity, error) {
		i := indexOf(cur, a.ID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, a.ID)
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		next := slices.Clone(cur)
		next[i] = a
		return next, nil
	})
}

// Remove deletes the activity with the given id.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	return c.mutate(ctx, "remove", func(cur []model.Activity) ([]model.Activity, error) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return slices.Delete(slices.Clone(cur), i, i+1), nil
	})
}

// SetAlarm toggles the per-activity alarm flag.
func (c *Catalog) SetAlarm(ctx context.Context, id string, enabled bool) (model.Activity, error) {
	var updated model.Activity
	err := c.mutate(ctx, "set_alarm", func(cur []model.Activity) ([]model.Activity, error) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		next := slices.Clone(cur)
		next[i].AlarmEnabled = enabled
		updated = next[i]
		return next, nil
	})
	return updated, err
}

// mutate applies fn to the current snapshot under the writer lock, publishes
// the sorted result and persists it. A persistence failure is returned as a
// *PersistenceError after the new snapshot is already visible.
func (c *Catalog) mutate(ctx context.Context, op string, fn func([]model.Activity) ([]model.Activity, error)) (err error) {
	defer func() { observability.RecordMutation(op, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(*c.snap.Load())
	if err != nil {
		return err
	}
	sortByStart(next)
	c.publish(next)

	if c.store == nil {
		return nil
	}
	data, err := Encode(next)
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}
	if err := c.store.Put(ctx, StoreKey, data); err != nil {
		perr := &PersistenceError{Op: "save", Err: err}
		appLog.Error("schedule save failed", perr, "op", op)
		return perr
	}
	appLog.Debug("schedule saved", "op", op, "activities", len(next))
	return nil
}

func (c *Catalog) publish(activities []model.Activity) {
	c.snap.Store(&activities)
	c.version.Add(1)
	observability.SetCatalogSize(len(activities))
}

func sortByStart(activities []model.Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Start < activities[j].Start
	})
}

func indexOf(activities []model.Activity, id string) int {
	for i, a := range activities {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func isPersistence(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr)
}
