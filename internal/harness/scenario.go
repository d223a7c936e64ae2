package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nodeplay/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario loads a graph, drives an engine through a list of steps on
// the virtual clock, and asserts on the recorded trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// GraphPath is the persisted graph JSON to load, relative to the
	// scenario file.
	GraphPath string `yaml:"graph"`

	// Graph is the loaded graph. LoadScenario fills it from GraphPath;
	// scenarios built in code set it directly.
	Graph ir.GraphRecord `yaml:"-"`

	// RunID names the first run. Later starts get "-2", "-3", ...
	// If empty, defaults to "test-run".
	RunID string `yaml:"run_id,omitempty"`

	// UpdateLimit overrides the per-tick work limit. Zero means unlimited.
	UpdateLimit *int `yaml:"update_limit,omitempty"`

	// Tick is the engine tick rate, and the default step for advance.
	Tick time.Duration `yaml:"tick,omitempty"`

	// Debugging arms breakpoints from the start.
	Debugging bool `yaml:"debugging,omitempty"`

	// Steps drive the engine, in order. A failing step ends the scenario.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action on the engine or a node.
//
// Nodes are addressed by Node (name) or NodeID. Set without a node
// writes the global named by Property.
type Step struct {
	Do       string        `yaml:"do"`
	Node     string        `yaml:"node,omitempty"`
	NodeID   int64         `yaml:"node_id,omitempty"`
	Link     string        `yaml:"link,omitempty"`
	Property string        `yaml:"property,omitempty"`
	Value    *ir.Literal   `yaml:"value,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
	Tick     time.Duration `yaml:"tick,omitempty"`
	On       *bool         `yaml:"on,omitempty"`
	Count    int           `yaml:"count,omitempty"`
}

// Step actions.
const (
	StepStart      = "start"
	StepStop       = "stop"
	StepUpdate     = "update"     // Count ticks of Duration each
	StepAdvance    = "advance"    // Duration of engine time in Tick steps
	StepTrigger    = "trigger"    // queue an activation of entry Link
	StepFire       = "fire"       // activate exit Link
	StepSet        = "set"        // write Property
	StepPause      = "pause"
	StepResume     = "resume"
	StepStep       = "step"       // Count single steps while paused
	StepBreakpoint = "breakpoint" // set or clear a node's breakpoint
	StepDebug      = "debug"      // arm or disarm breakpoints
	StepEnable     = "enable"     // enable or disable a node
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event matching Event (and Value) was recorded
	// - "trace_order": events matching Events were recorded in that order
	// - "trace_count": exactly Count events match Event
	// - "final_property": Node's Property ends equal to Value
	// - "final_state": the engine ends in State
	// - "global": the global named by Property ends equal to Value
	// - "log_contains": the engine log contains Text
	Type string `yaml:"type"`

	// Event selects trace events: "<kind>", "<kind> <node>" or
	// "<kind> <node>.<link>", for example "exit Start.out".
	Event string `yaml:"event,omitempty"`

	// Events is the expected order (used by trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of matches (used by trace_count).
	Count int `yaml:"count,omitempty"`

	Node     string      `yaml:"node,omitempty"`
	Property string      `yaml:"property,omitempty"`
	Value    *ir.Literal `yaml:"value,omitempty"`
	State    string      `yaml:"state,omitempty"`
	Text     string      `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalProperty = "final_property"
	AssertFinalState    = "final_state"
	AssertGlobal        = "global"
	AssertLogContains   = "log_contains"
)

// LoadScenario reads and parses a scenario YAML file and the graph it
// references. Returns an error if either file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict fields catch typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.GraphPath == "" {
		return nil, fmt.Errorf("invalid scenario: graph is required")
	}
	graphPath := scenario.GraphPath
	if !filepath.IsAbs(graphPath) {
		graphPath = filepath.Join(filepath.Dir(path), graphPath)
	}
	raw, err := os.ReadFile(graphPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	scenario.Graph, err = ir.DecodeGraph(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %s: %w", graphPath, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Graph.Nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.UpdateLimit != nil && *s.UpdateLimit < 0 {
		return fmt.Errorf("update_limit must be non-negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	needsNode := func() error {
		if st.Node == "" && st.NodeID == 0 {
			return fmt.Errorf("steps[%d]: node or node_id is required for %s", index, st.Do)
		}
		return nil
	}

	switch st.Do {
	case StepStart, StepStop, StepPause, StepResume, StepDebug:
	case StepUpdate, StepStep:
		if st.Count < 0 {
			return fmt.Errorf("steps[%d]: count must be non-negative", index)
		}
	case StepAdvance:
		if st.Duration <= 0 {
			return fmt.Errorf("steps[%d]: duration is required for advance", index)
		}
	case StepTrigger, StepFire:
		if err := needsNode(); err != nil {
			return err
		}
		if st.Link == "" {
			return fmt.Errorf("steps[%d]: link is required for %s", index, st.Do)
		}
	case StepSet:
		if st.Property == "" {
			return fmt.Errorf("steps[%d]: property is required for set", index)
		}
		if st.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for set", index)
		}
	case StepBreakpoint, StepEnable:
		if err := needsNode(); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("steps[%d]: do is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Do)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
		if _, err := parseSelector(a.Event); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
		for _, ev := range a.Events {
			if _, err := parseSelector(ev); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if _, err := parseSelector(a.Event); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalProperty:
		if a.Node == "" || a.Property == "" {
			return fmt.Errorf("assertions[%d]: node and property are required for final_property", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for final_property", index)
		}
	case AssertFinalState:
		switch a.State {
		case "stopped", "running", "paused":
		default:
			return fmt.Errorf("assertions[%d]: state must be stopped, running or paused, got %q", index, a.State)
		}
	case AssertGlobal:
		if a.Property == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: property and value are required for global", index)
		}
	case AssertLogContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for log_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
