package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock only moves when Advance is called. Callbacks run
// synchronously inside Advance, in deadline order.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	fn       func()
	done     bool // fired or stopped
}

// Fake returns a FakeClock starting at t.
func Fake(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to run once the clock passes now+d. A
// non-positive d runs f before returning.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stop: func() bool { return false }}
	}
	c.mu.Lock()
	ft := &fakeTimer{deadline: c.now.Add(d), fn: f}
	c.pending = append(c.pending, ft)
	c.mu.Unlock()

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ft.done {
			return false
		}
		ft.done = true
		return true
	}}
}

// Advance moves time forward by d and runs every callback that became due.
// Callbacks must not call Advance.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due, rest []*fakeTimer
	for _, ft := range c.pending {
		switch {
		case ft.done:
		case !ft.deadline.After(now):
			ft.done = true
			due = append(due, ft)
		default:
			rest = append(rest, ft)
		}
	}
	c.pending = rest
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, ft := range due {
		ft.fn()
	}
}

// PendingCount reports how many timers are still waiting to fire.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ft := range c.pending {
		if !ft.done {
			n++
		}
	}
	return n
}
