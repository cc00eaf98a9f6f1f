// Package clock hides time.AfterFunc behind an interface so delayed
// removals can be driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package the list needs.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f after d. The returned Timer can cancel the call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a handle to a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop cancels the pending call. It reports false if the call already
// ran or was stopped before.
func (t *Timer) Stop() bool {
	if t == nil || t.stop == nil {
		return false
	}
	return t.stop()
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}
