package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/nodeplay/internal/ir"
)

// Recorder persists an engine's trace as it runs. It satisfies
// engine.Recorder.
//
// The first event of every run id creates the run row, so one Recorder
// follows an engine across any number of Start calls.
type Recorder struct {
	store      *Store
	ctx        context.Context
	scriptHash string

	mu   sync.Mutex
	seen map[string]bool
}

// NewRecorder creates a recorder tying every run to scriptHash, which may
// be empty for unsaved graphs.
func NewRecorder(ctx context.Context, s *Store, scriptHash string) *Recorder {
	return &Recorder{
		store:      s,
		ctx:        ctx,
		scriptHash: scriptHash,
		seen:       make(map[string]bool),
	}
}

// Record writes ev, creating its run on first sight.
func (r *Recorder) Record(ev ir.TraceEvent) error {
	if ev.RunID == "" {
		return fmt.Errorf("record %s event %d: missing run id", ev.Kind, ev.Seq)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seen[ev.RunID] {
		if err := r.store.WriteRun(r.ctx, RunRecord{ID: ev.RunID, ScriptHash: r.scriptHash}); err != nil {
			return err
		}
		r.seen[ev.RunID] = true
	}
	return r.store.WriteEvent(r.ctx, ev)
}

// Runs returns the run ids this recorder has written, in no particular
// order.
func (r *Recorder) Runs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.seen))
	for id := range r.seen {
		out = append(out, id)
	}
	return out
}
