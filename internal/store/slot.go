package store

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Slot is a single-slot scheduled task. Arming replaces any armed timer, so at most one
// firing is ever pending.
type Slot struct {
	clock clockwork.Clock
	fn    func()

	mu    sync.Mutex
	timer clockwork.Timer
	armed bool
	seq   uint64
}

// NewSlot creates an unarmed slot that runs fn when it fires.
func NewSlot(clock clockwork.Clock, fn func()) *Slot {
	return &Slot{clock: clock, fn: fn}
}

// Arm schedules fn to run after d, cancelling any earlier schedule.
func (s *Slot) Arm(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.armed = true
	s.timer = s.clock.AfterFunc(d, func() { s.fire(seq) })
}

// Cancel disarms the slot. It returns true only if fn had not started for the current arming.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.armed {
		return false
	}
	s.armed = false
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return true
}

// Armed reports whether a firing is scheduled.
func (s *Slot) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

func (s *Slot) fire(seq uint64) {
	s.mu.Lock()
	if !s.armed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.armed = false
	s.timer = nil
	s.mu.Unlock()

	s.fn()
}
