package nodes

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeplay/internal/engine"
	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

// rig is an engine with the standard library registered, a trace
// recorder, and captured logs.
type rig struct {
	e    *engine.Engine
	rec  *engine.MemoryRecorder
	logs *bytes.Buffer
}

func newRig(t *testing.T, opts ...engine.EngineOption) *rig {
	t.Helper()
	r := &rig{rec: engine.NewMemoryRecorder(), logs: &bytes.Buffer{}}
	opts = append([]engine.EngineOption{
		engine.WithRecorder(r.rec),
		engine.WithLogger(slog.New(slog.NewTextHandler(r.logs, nil))),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("run-1", "run-2", "run-3")),
	}, opts...)
	r.e = engine.New(opts...)
	require.NoError(t, Register(r.e.Registry()))
	return r
}

func (r *rig) node(t *testing.T, className, name string) *graph.Node {
	t.Helper()
	n, err := r.e.Create(className, graph.WithName(name))
	require.NoError(t, err)
	return n
}

// count returns how many trace events of kind name the node named name.
func (r *rig) count(kind ir.TraceKind, name string) int {
	c := 0
	for _, ev := range r.rec.OfKind(kind) {
		if ev.NodeName == name {
			c++
		}
	}
	return c
}
