package engine

import (
	"fmt"
	"time"

	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

// Replay runs a saved graph from a clean engine on the virtual clock and
// returns its trace.
//
// Determinism is structural, not a special mode: the same graph, the same
// run id, and the same tick schedule always produce the same trace,
// because ordering comes only from the FIFO queue and the logical clocks.
// Replaying twice and comparing traces is how the harness catches
// ordering regressions.
//
// register populates the fresh engine's registry before the graph loads.
func Replay(g ir.GraphRecord, register func(*graph.Registry) error, runID string, total, step time.Duration, opts ...EngineOption) ([]ir.TraceEvent, error) {
	rec := NewMemoryRecorder()
	opts = append(opts,
		WithRecorder(rec),
		WithRunIDGenerator(NewFixedGenerator(runID)),
	)
	e := New(opts...)
	if register != nil {
		if err := register(e.Registry()); err != nil {
			return nil, fmt.Errorf("register node types: %w", err)
		}
	}
	if errs := e.Load(g); len(errs) > 0 {
		return nil, &RuntimeError{
			Code:    ErrCodeDecodeFailed,
			Message: fmt.Sprintf("%d node(s) could not be loaded: %v", len(errs), errs[0]),
		}
	}

	e.Start()
	e.Update(0)
	e.Advance(total, step)
	e.Stop()
	return rec.Events(), nil
}
