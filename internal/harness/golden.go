package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nodeplay/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []ir.TraceEvent
	State        string
	Nodes        map[string]NodeState
	Globals      map[string]ir.IRValue
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Zero fields are left out so the golden files stay
// readable.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"run_id": ev.RunID,
			"seq":    ev.Seq,
			"tick":   ev.Tick,
			"kind":   string(ev.Kind),
		}
		if ev.NodeID != 0 {
			m["node_id"] = ev.NodeID
			m["class"] = ev.ClassName
			m["node"] = ev.NodeName
		}
		if ev.Link != "" {
			m["link"] = ev.Link
		}
		if ev.FromID != 0 {
			m["from_id"] = ev.FromID
			m["from_link"] = ev.FromLink
		}
		if ev.Value != nil {
			m["value"] = ev.Value.Value
		}
		if ev.Upstream {
			m["upstream"] = true
		}
		traceList[i] = m
	}

	nodes := make(map[string]any, len(s.Nodes))
	for name, n := range s.Nodes {
		props := make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			props[k] = v
		}
		nodes[name] = map[string]any{
			"id":         n.ID,
			"class":      n.ClassName,
			"enabled":    n.Enabled,
			"broken":     n.Broken,
			"properties": props,
		}
	}

	globals := make(map[string]any, len(s.Globals))
	for k, v := range s.Globals {
		globals[k] = v
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"state":         s.State,
		"trace":         traceList,
		"nodes":         nodes,
		"globals":       globals,
	}
}

// snapshotJSON renders the result as canonical JSON.
func snapshotJSON(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		State:        result.State,
		Nodes:        result.Nodes,
		Globals:      result.Globals,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace and final state
// against a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := snapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
