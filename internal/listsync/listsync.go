// Package listsync owns the todo list: an ordered in-memory sequence of
// entries that is written through to a storage slot after every change
// and pushed to any attached views.
//
// Every operation runs to completion under one mutex, including the
// delayed-removal callbacks, so the slot never holds a snapshot older
// than the last finished operation.
package listsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/clock"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

const (
	// DefaultKey is the slot key the list is stored under.
	DefaultKey = "todos"
	// DefaultRemovalDelay is how long a completed entry stays visible.
	DefaultRemovalDelay = time.Second
)

var (
	ErrNoStorage    = errors.New("listsync: no storage slot")
	ErrUnknownEntry = errors.New("listsync: unknown entry")
)

// Item is a rendered entry. ID is an in-memory handle, reissued on every
// restore and never persisted.
type Item struct {
	ID string
	model.Entry
	// RemovalPending is true between Complete and the delayed removal.
	RemovalPending bool
}

// Observer receives a snapshot after every change. It is called with the
// synchronizer locked and must not call back into it.
type Observer func(items []Item)

type entry struct {
	id      string
	value   model.Entry
	removal *clock.Timer
	// gen identifies the current removal; callbacks of older ones are ignored.
	gen uint64
}

// Synchronizer keeps the list, the slot and the views in step.
type Synchronizer struct {
	mu        sync.Mutex
	slot      store.Slot
	key       string
	delay     time.Duration
	clock     clock.Clock
	logger    *slog.Logger
	entries   []*entry
	observers []Observer
	closed    bool
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithKey sets the slot key. Empty keeps DefaultKey.
func WithKey(key string) Option {
	return func(s *Synchronizer) {
		if key != "" {
			s.key = key
		}
	}
}

// WithRemovalDelay sets how long completed entries linger. Non-positive
// values keep DefaultRemovalDelay.
func WithRemovalDelay(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.delay = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Synchronizer) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty Synchronizer writing to slot. Call Restore to
// load what the slot already holds.
func New(slot store.Slot, opts ...Option) (*Synchronizer, error) {
	if slot == nil {
		return nil, ErrNoStorage
	}
	s := &Synchronizer{
		slot:   slot,
		key:    DefaultKey,
		delay:  DefaultRemovalDelay,
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Key is the slot key in use.
func (s *Synchronizer) Key() string { return s.key }

// RemovalDelay is the delay between Complete and removal.
func (s *Synchronizer) RemovalDelay() time.Duration { return s.delay }

// Observe attaches a view. It immediately receives the current list.
func (s *Synchronizer) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
	fn(s.snapshotLocked())
}

// Restore replaces the list with the slot's contents. A missing or
// malformed value yields an empty list and no error; only a failure to
// read the slot at all is returned.
func (s *Synchronizer) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.slot.Get(ctx, s.key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("restore: %w", err)
	}

	var stored []model.Entry
	if err == nil {
		stored, err = decode(raw)
		if err != nil {
			s.logger.Warn("stored list unreadable, starting empty", "key", s.key, "error", err)
			stored = nil
		}
	}

	s.stopTimersLocked()
	s.entries = make([]*entry, 0, len(stored))
	for _, e := range stored {
		s.entries = append(s.entries, &entry{id: uuid.NewString(), value: e})
	}
	s.logger.Debug("list restored", "key", s.key, "entries", len(s.entries))
	s.notifyLocked()
	return nil
}

// Submit appends a new unchecked entry with the trimmed text. Blank text
// is ignored: added is false and nothing is written.
func (s *Synchronizer) Submit(ctx context.Context, raw string) (item Item, added bool, err error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Item{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{id: uuid.NewString(), value: model.Entry{Text: text}}
	s.entries = append(s.entries, e)
	err = s.persistLocked(ctx)
	s.notifyLocked()
	return e.item(), true, err
}

// Complete marks the entry done, persists, and schedules its removal
// after the removal delay. Completing an entry whose removal is already
// pending does nothing.
func (s *Synchronizer) Complete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("complete %s: %w", id, ErrUnknownEntry)
	}
	e := s.entries[i]
	if e.removal != nil {
		return nil
	}

	e.value.Completed = true
	err := s.persistLocked(ctx)
	if !s.closed {
		e.gen++
		gen := e.gen
		e.removal = s.clock.AfterFunc(s.delay, func() { s.expire(e, gen) })
	}
	s.notifyLocked()
	return err
}

// Reopen clears the completed flag and cancels a pending removal. It
// reports whether a removal was cancelled.
func (s *Synchronizer) Reopen(ctx context.Context, id string) (cancelled bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false, fmt.Errorf("reopen %s: %w", id, ErrUnknownEntry)
	}
	e := s.entries[i]
	if e.removal != nil {
		e.removal.Stop()
		e.removal = nil
		cancelled = true
	}
	if !e.value.Completed {
		return cancelled, nil
	}
	e.value.Completed = false
	err = s.persistLocked(ctx)
	s.notifyLocked()
	return cancelled, err
}

// Persist writes the whole list to the slot, replacing what was there.
func (s *Synchronizer) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// Entries returns a copy of the rendered list.
func (s *Synchronizer) Entries() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels every pending removal. Entries already marked completed
// stay in the slot that way.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimersLocked()
}

// expire is the removal timer callback for the removal numbered gen.
func (s *Synchronizer) expire(e *entry, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A timer that was already firing when Reopen or Close stopped it must
	// not act, even if a later Complete scheduled a new removal.
	if s.closed || e.removal == nil || e.gen != gen {
		return
	}
	i := s.indexOfLocked(e)
	if i < 0 {
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	if err := s.persistLocked(context.Background()); err != nil {
		s.logger.Error("persist after removal", "key", s.key, "error", err)
	}
	s.logger.Debug("entry removed", "text", e.value.Text)
	s.notifyLocked()
}

func (s *Synchronizer) persistLocked(ctx context.Context) error {
	values := make([]model.Entry, len(s.entries))
	for i, e := range s.entries {
		values[i] = e.value
	}
	b, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := s.slot.Set(ctx, s.key, b); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

func (s *Synchronizer) notifyLocked() {
	if len(s.observers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, fn := range s.observers {
		fn(snap)
	}
}

func (s *Synchronizer) snapshotLocked() []Item {
	out := make([]Item, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.item()
	}
	return out
}

func (s *Synchronizer) stopTimersLocked() {
	for _, e := range s.entries {
		if e.removal != nil {
			e.removal.Stop()
			e.removal = nil
		}
	}
}

func (s *Synchronizer) indexLocked(id string) int {
	for i, e := range s.entries {
		if e.id == id {
			return i
		}
	}
	return -1
}

func (s *Synchronizer) indexOfLocked(target *entry) int {
	for i, e := range s.entries {
		if e == target {
			return i
		}
	}
	return -1
}

func (e *entry) item() Item {
	return Item{ID: e.id, Entry: e.value, RemovalPending: e.removal != nil}
}

// decode parses a stored list. JSON null decodes to an empty list.
func decode(raw []byte) ([]model.Entry, error) {
	var stored []model.Entry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return stored, nil
}
