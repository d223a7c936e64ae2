package engine

import (
	"slices"

	"github.com/roach88/nodeplay/internal/ir"
)

// global is an engine-wide property. Start resets value to initial.
type global struct {
	name    string
	initial ir.IRValue
	value   ir.IRValue
}

func (e *Engine) findGlobal(name string) *global {
	idx := slices.IndexFunc(e.globals, func(g *global) bool { return g.name == name })
	if idx < 0 {
		return nil
	}
	return e.globals[idx]
}

// CreateGlobal adds a global property. It fails if the name is taken.
func (e *Engine) CreateGlobal(name string, initial ir.IRValue) bool {
	if name == "" || e.findGlobal(name) != nil {
		return false
	}
	if initial == nil {
		initial = ir.IRNull{}
	}
	e.globals = append(e.globals, &global{name: name, initial: initial, value: initial})
	return true
}

// RemoveGlobal deletes a global property.
func (e *Engine) RemoveGlobal(name string) bool {
	n := len(e.globals)
	e.globals = slices.DeleteFunc(e.globals, func(g *global) bool { return g.name == name })
	return len(e.globals) != n
}

// Global returns the live value of a global.
func (e *Engine) Global(name string) (ir.IRValue, bool) {
	g := e.findGlobal(name)
	if g == nil {
		return nil, false
	}
	return g.value, true
}

// SetGlobal writes the live value of a global.
func (e *Engine) SetGlobal(name string, v ir.IRValue) bool {
	g := e.findGlobal(name)
	if g == nil {
		return false
	}
	if v == nil {
		v = ir.IRNull{}
	}
	g.value = v
	return true
}

// SetGlobalInitial writes the initial value of a global. A live value that
// still equals the old initial value follows it.
func (e *Engine) SetGlobalInitial(name string, v ir.IRValue) bool {
	g := e.findGlobal(name)
	if g == nil {
		return false
	}
	if v == nil {
		v = ir.IRNull{}
	}
	if ir.Equal(g.value, g.initial) {
		g.value = v
	}
	g.initial = v
	return true
}

// Globals lists every global in creation order, as persisted.
func (e *Engine) Globals() []ir.GlobalRecord {
	out := make([]ir.GlobalRecord, 0, len(e.globals))
	for _, g := range e.globals {
		out = append(out, ir.GlobalRecord{Name: g.name, InitialValue: ir.L(g.initial)})
	}
	return out
}

func (e *Engine) resetGlobals() {
	for _, g := range e.globals {
		g.value = g.initial
	}
}
