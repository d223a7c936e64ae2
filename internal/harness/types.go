package harness

import (
	"github.com/roach88/nodeplay/internal/ir"
)

// NodeState is a node's observable state once a scenario finishes.
type NodeState struct {
	ID         int64                 `json:"id"`
	ClassName  string                `json:"class"`
	Enabled    bool                  `json:"enabled"`
	Broken     bool                  `json:"broken"`
	Properties map[string]ir.IRValue `json:"properties"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every step ran and every assertion held.
	Pass bool `json:"pass"`

	// Trace is the recorded trace of every run the scenario started, read
	// back from the scenario's store in seq order.
	Trace []ir.TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the engine state after the last step.
	State string `json:"state"`

	// Nodes is the final state of every node, by name. Nodes sharing a name
	// keep the one with the lowest id.
	Nodes map[string]NodeState `json:"nodes"`

	// Globals holds the final value of every global property.
	Globals map[string]ir.IRValue `json:"globals"`

	// Log is the text log the engine wrote, without timestamps.
	Log string `json:"log,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []ir.TraceEvent{},
		Errors:  []string{},
		Nodes:   make(map[string]NodeState),
		Globals: make(map[string]ir.IRValue),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
