package schedule

import (
	"sort"
	"sync"
	"time"
)

// Manual is a virtual-time Scheduler. Time only moves when Advance or Set is
// called; due callbacks run synchronously on the caller's goroutine in due-time
// order (ties in scheduling order).
//
// Manual is safe for concurrent use.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualTask
}

type manualTask struct {
	owner *Manual
	at    time.Time
	seq   uint64
	fn    func()
	done  bool
}

// NewManual returns a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After registers fn to run when virtual time reaches Now()+d.
//
// Precondition: fn must not be nil.
func (m *Manual) After(d time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{owner: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

// Pending returns the number of tasks that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.done {
			n++
		}
	}
	return n
}

// Advance moves virtual time forward by d, firing every task that becomes due.
// The clock reads each task's due time while that task runs. Tasks scheduled
// by a callback fire in the same call if they fall due within the window.
//
// Postcondition: Now() equals the previous Now() plus d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.runUntil(target)
}

// Set moves virtual time to t (never backwards), firing due tasks.
func (m *Manual) Set(t time.Time) {
	m.runUntil(t)
}

func (m *Manual) runUntil(target time.Time) {
	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			if target.After(m.now) {
				m.now = target
			}
			m.mu.Unlock()
			return
		}
		next.done = true
		if next.at.After(m.now) {
			m.now = next.at
		}
		m.mu.Unlock()
		next.fn()
	}
}

// nextDueLocked removes settled tasks and returns the earliest task due at or
// before target, or nil.
func (m *Manual) nextDueLocked(target time.Time) *manualTask {
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.done {
			live = append(live, t)
		}
	}
	m.pending = live
	if len(m.pending) == 0 {
		return nil
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].at.Equal(m.pending[j].at) {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].at.Before(m.pending[j].at)
	})
	if m.pending[0].at.After(target) {
		return nil
	}
	return m.pending[0]
}

// Stop cancels the task if it has not fired.
func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
