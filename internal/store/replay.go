package store

import (
	"context"
	"fmt"

	"github.com/roach88/nodeplay/internal/ir"
)

// RunState summarises a stored run for inspection and replay checks.
type RunState struct {
	Run      RunRecord
	Events   int
	LastSeq  int64
	LastTick int64
	Stopped  bool // True if the trace ends with a stop event
	Counts   map[ir.TraceKind]int
}

// GetRunState reads a run and its trace and summarises them.
func (s *Store) GetRunState(ctx context.Context, runID string) (RunState, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}
	events, err := s.ReadTrace(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}

	state := RunState{
		Run:    run,
		Events: len(events),
		Counts: make(map[ir.TraceKind]int),
	}
	for _, ev := range events {
		state.Counts[ev.Kind]++
		state.LastSeq = max(state.LastSeq, ev.Seq)
		state.LastTick = max(state.LastTick, ev.Tick)
	}
	if len(events) > 0 {
		state.Stopped = events[len(events)-1].Kind == ir.TraceStop
	}
	return state, nil
}

// Divergence is the first point where two traces disagree.
type Divergence struct {
	Index int
	Want  *ir.TraceEvent // nil if got has extra events
	Got   *ir.TraceEvent // nil if got is missing events
}

func (d Divergence) String() string {
	switch {
	case d.Want == nil:
		return fmt.Sprintf("event %d: unexpected %s (seq %d)", d.Index, d.Got.Kind, d.Got.Seq)
	case d.Got == nil:
		return fmt.Sprintf("event %d: missing %s (seq %d)", d.Index, d.Want.Kind, d.Want.Seq)
	default:
		return fmt.Sprintf("event %d: want %s %s.%s, got %s %s.%s",
			d.Index, d.Want.Kind, d.Want.NodeName, d.Want.Link,
			d.Got.Kind, d.Got.NodeName, d.Got.Link)
	}
}

// CompareTraces checks got against want event by event, ignoring run ids.
// It returns nil when the traces match.
func CompareTraces(want, got []ir.TraceEvent) *Divergence {
	n := max(len(want), len(got))
	for i := 0; i < n; i++ {
		switch {
		case i >= len(want):
			return &Divergence{Index: i, Got: &got[i]}
		case i >= len(got):
			return &Divergence{Index: i, Want: &want[i]}
		case !sameEvent(want[i], got[i]):
			return &Divergence{Index: i, Want: &want[i], Got: &got[i]}
		}
	}
	return nil
}

func sameEvent(a, b ir.TraceEvent) bool {
	if a.Seq != b.Seq || a.Tick != b.Tick || a.Kind != b.Kind ||
		a.NodeID != b.NodeID || a.ClassName != b.ClassName || a.NodeName != b.NodeName ||
		a.Link != b.Link || a.FromID != b.FromID || a.FromLink != b.FromLink ||
		a.Upstream != b.Upstream {
		return false
	}
	if (a.Value == nil) != (b.Value == nil) {
		return false
	}
	return a.Value == nil || ir.Equal(a.Value.Value, b.Value.Value)
}
