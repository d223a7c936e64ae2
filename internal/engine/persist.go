package engine

import (
	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

// Save exports the whole graph: globals plus every root node, composites
// recursively.
func (e *Engine) Save() ir.GraphRecord {
	return ir.GraphRecord{
		Version:    ir.FormatVersion,
		Properties: e.Globals(),
		Nodes:      e.root.Export(false),
	}
}

// Load replaces the current graph with g. Node ids are kept as recorded.
//
// Records whose class cannot be resolved are skipped and reported; the
// rest of the graph loads regardless, and chains to skipped nodes are
// left out.
func (e *Engine) Load(g ir.GraphRecord) []error {
	e.Clear()
	for _, gl := range g.Properties {
		if !e.CreateGlobal(gl.Name, gl.InitialValue.Value) {
			e.SetGlobalInitial(gl.Name, gl.InitialValue.Value)
		}
	}
	_, errs := graph.Instantiate(e.root, g.Nodes, nil)
	e.log.Info("graph loaded",
		"nodes", len(e.nodes),
		"globals", len(e.globals),
		"skipped", len(errs))
	return errs
}

// Clear stops the engine and destroys every node and global. Node ids
// start over.
func (e *Engine) Clear() {
	e.Stop()
	for _, n := range e.root.Nodes() {
		n.Destroy()
	}
	e.globals = nil
	e.queue.Clear()
	e.timers.reset()
	clear(e.nodes)
	e.ids.Reset()
}
