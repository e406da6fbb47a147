// Package schedule abstracts wall-clock time and delayed callbacks so that
// time-dependent game state (respawns, item expiry, quest cooldowns) can be
// driven by either the real clock or a manually advanced virtual clock.
package schedule

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Task is a handle to a pending delayed callback.
type Task interface {
	// Stop prevents the callback from firing.
	//
	// Postcondition: Returns true if the call stopped the task, false if the
	// task had already fired or been stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	Clock
	// After schedules fn to run once after d.
	//
	// Precondition: fn must not be nil.
	// Postcondition: fn runs on a goroutine owned by the scheduler unless the
	// returned Task is stopped first.
	After(d time.Duration, fn func()) Task
}

// Real is a Scheduler backed by time.AfterFunc and time.Now.
type Real struct{}

// NewReal returns the wall-clock Scheduler.
func NewReal() *Real { return &Real{} }

// Now returns time.Now().
func (*Real) Now() time.Time { return time.Now() }

// After schedules fn with time.AfterFunc.
//
// Precondition: fn must not be nil.
func (*Real) After(d time.Duration, fn func()) Task {
	t := &realTask{}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.done {
			t.mu.Unlock()
			return
		}
		t.done = true
		t.mu.Unlock()
		fn()
	})
	return t
}

// realTask guards against the callback racing a concurrent Stop.
type realTask struct {
	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// Stop prevents the callback from firing. Safe to call multiple times.
func (t *realTask) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.timer.Stop()
	return true
}
