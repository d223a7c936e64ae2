package engine

import (
	"slices"
	"sync"

	"github.com/roach88/nodeplay/internal/ir"
)

// Recorder receives every trace event the engine emits. Record is called
// on the engine goroutine; a failing Record is logged and the run goes on.
type Recorder interface {
	Record(ev ir.TraceEvent) error
}

// MemoryRecorder keeps trace events in memory.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []ir.TraceEvent
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends ev.
func (r *MemoryRecorder) Record(ev ir.TraceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *MemoryRecorder) Events() []ir.TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// OfKind returns the recorded events of the given kinds, in order.
func (r *MemoryRecorder) OfKind(kinds ...ir.TraceKind) []ir.TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ir.TraceEvent
	for _, ev := range r.events {
		if slices.Contains(kinds, ev.Kind) {
			out = append(out, ev)
		}
	}
	return out
}

// Reset drops every recorded event.
func (r *MemoryRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// MultiRecorder fans events out to several recorders. Every recorder sees
// every event; the first error is returned.
type MultiRecorder []Recorder

// Record forwards ev to each recorder.
func (m MultiRecorder) Record(ev ir.TraceEvent) error {
	var first error
	for _, r := range m {
		if err := r.Record(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
