package engine

import (
	"slices"
	"time"

	"github.com/roach88/nodeplay/internal/graph"
)

// minDelay is the shortest timer delay. A zero-delay interval would
// otherwise fire forever inside one advance.
const minDelay = time.Millisecond

// timer is a one-shot callback on the engine's virtual clock. It is the
// graph.Thread behind Node.SetTimeout.
type timer struct {
	set       *timerSet
	node      *graph.Node
	seq       int64
	remaining time.Duration
	fn        func()
	paused    bool
	done      bool
}

func (t *timer) Pause()  { t.paused = true }
func (t *timer) Resume() { t.paused = false }

func (t *timer) Cancel() {
	if t.done {
		return
	}
	t.done = true
	t.set.remove(t)
}

// timerSet holds live timers. Time only moves when advance is called, so
// a paused engine never loses or gains delay.
type timerSet struct {
	clock  *Clock
	timers []*timer
}

func newTimerSet() *timerSet {
	return &timerSet{clock: NewClock()}
}

func (s *timerSet) add(n *graph.Node, d time.Duration, fn func()) *timer {
	t := &timer{set: s, node: n, seq: s.clock.Next(), remaining: max(d, minDelay), fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *timerSet) remove(t *timer) {
	s.timers = slices.DeleteFunc(s.timers, func(x *timer) bool { return x == t })
}

// earliest returns the running timer due first, ties broken by creation
// order.
func (s *timerSet) earliest() *timer {
	var best *timer
	for _, t := range s.timers {
		if t.paused || t.done {
			continue
		}
		if best == nil || t.remaining < best.remaining ||
			(t.remaining == best.remaining && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// advance moves virtual time forward by d. Due timers fire in due order
// through run; timers a callback schedules start counting from the
// moment their creator fired, so an interval shorter than d fires more
// than once.
func (s *timerSet) advance(d time.Duration, run func(*timer)) {
	for {
		t := s.earliest()
		if t == nil || t.remaining > d {
			break
		}
		step := t.remaining
		for _, o := range s.timers {
			if !o.paused && !o.done {
				o.remaining -= step
			}
		}
		d -= step
		t.done = true
		s.remove(t)
		run(t)
	}
	for _, t := range s.timers {
		if !t.paused && !t.done {
			t.remaining -= d
		}
	}
}

// Len returns the number of live timers, paused ones included.
func (s *timerSet) Len() int { return len(s.timers) }

// reset cancels every timer without firing it.
func (s *timerSet) reset() {
	for _, t := range s.timers {
		t.done = true
	}
	s.timers = nil
}
