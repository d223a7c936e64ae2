package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/nodeplay/internal/engine"
	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
	"github.com/roach88/nodeplay/internal/nodes"
	"github.com/roach88/nodeplay/internal/store"
	"github.com/roach88/nodeplay/internal/testutil"
)

// DefaultRunID names the first run of a scenario that sets no run_id.
const DefaultRunID = "test-run"

// Harness is the test execution engine.
// It drives one engine through a scenario's steps on the virtual clock.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// graph is saved to it, the engine's trace is recorded into it, and the
// trace the assertions see is read back from it, so a scenario exercises
// the same persistence path as the run command.
//
// Execution flow:
// 1. Create fresh in-memory database and save the graph
// 2. Load the graph into an engine with the standard node library
// 3. Execute steps; the first failing step ends the scenario
// 4. Read the trace and snapshot final state
// 5. Evaluate assertions
//
// A returned error means the scenario could not be set up at all; step
// and assertion failures are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	hash, err := st.SaveScript(ctx, scenario.Name, scenario.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to save graph: %w", err)
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{
		ReplaceAttr: dropTime,
	}))

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	opts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithRecorder(store.NewRecorder(ctx, st, hash)),
		engine.WithRunIDGenerator(testutil.NewSequenceRunIDGenerator(runID)),
		engine.WithDebugging(scenario.Debugging),
		engine.WithTickRate(scenario.Tick),
	}
	if scenario.UpdateLimit != nil {
		opts = append(opts, engine.WithUpdateLimit(*scenario.UpdateLimit))
	}
	eng := engine.New(opts...)
	defer eng.Close()

	if err := nodes.Register(eng.Registry()); err != nil {
		return nil, err
	}
	if errs := eng.Load(scenario.Graph); len(errs) > 0 {
		return nil, fmt.Errorf("failed to load graph: %d node(s) skipped, first: %w", len(errs), errs[0])
	}

	h := &Harness{store: st, engine: eng, logger: logger}
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.execute(step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] (%s): %v", i, step.Do, err))
			break
		}
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}
	result.Log = logs.String()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step.
func (h *Harness) execute(step Step) error {
	e := h.engine
	switch step.Do {
	case StepStart:
		e.Start()
	case StepStop:
		e.Stop()
	case StepUpdate:
		for i, n := 0, max(step.Count, 1); i < n; i++ {
			e.Update(step.Duration)
		}
	case StepAdvance:
		e.Advance(step.Duration, step.Tick)
	case StepPause:
		e.Pause(true)
	case StepResume:
		e.Pause(false)
	case StepStep:
		for i, n := 0, max(step.Count, 1); i < n; i++ {
			if _, err := e.Step(); err != nil {
				return err
			}
		}
	case StepDebug:
		e.SetDebugging(on(step, true))
	case StepSet:
		return h.set(step)
	case StepTrigger, StepFire, StepBreakpoint, StepEnable:
		n, err := h.node(step)
		if err != nil {
			return err
		}
		switch step.Do {
		case StepTrigger:
			if !n.ActivateEntry(step.Link, nil, "") {
				return fmt.Errorf("%s has no entry link %q", n, step.Link)
			}
		case StepFire:
			if !n.ActivateExit(step.Link) {
				return fmt.Errorf("%s cannot fire exit link %q", n, step.Link)
			}
		case StepBreakpoint:
			n.SetBreakpoint(on(step, true))
		case StepEnable:
			n.SetEnabled(on(step, true))
		}
	default:
		return fmt.Errorf("unknown action %q", step.Do)
	}
	h.logger.Debug("step completed", "do", step.Do, "tick", e.Tick())
	return nil
}

func (h *Harness) set(step Step) error {
	if step.Node == "" && step.NodeID == 0 {
		if !h.engine.SetGlobal(step.Property, step.Value.Value) {
			return fmt.Errorf("no global %q", step.Property)
		}
		return nil
	}
	n, err := h.node(step)
	if err != nil {
		return err
	}
	if n.Prop(step.Property) == nil {
		return fmt.Errorf("%s has no property %q", n, step.Property)
	}
	n.SetProperty(step.Property, step.Value.Value, graph.PropagateDefault, false)
	return nil
}

// node resolves a step's node by id, or by name with the lowest id
// winning among duplicates.
func (h *Harness) node(step Step) (*graph.Node, error) {
	if step.NodeID != 0 {
		if n := h.engine.NodeByID(step.NodeID); n != nil {
			return n, nil
		}
		return nil, fmt.Errorf("no node with id %d", step.NodeID)
	}
	var found *graph.Node
	h.engine.Root().Walk(func(n *graph.Node) bool {
		if n.Name() == step.Node && (found == nil || n.ID() < found.ID()) {
			found = n
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("no node named %q", step.Node)
	}
	return found, nil
}

// collect reads every run's trace back from the store and snapshots the
// final engine state.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	runs, err := h.store.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	for _, run := range runs {
		events, err := h.store.ReadTrace(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to read trace: %w", err)
		}
		result.Trace = append(result.Trace, events...)
	}

	result.State = h.engine.State().String()
	h.engine.Root().Walk(func(n *graph.Node) bool {
		if prev, ok := result.Nodes[n.Name()]; ok && prev.ID < n.ID() {
			return true
		}
		props := make(map[string]ir.IRValue)
		for _, p := range n.Properties() {
			props[p.Name()] = p.Value()
		}
		result.Nodes[n.Name()] = NodeState{
			ID:         n.ID(),
			ClassName:  n.ClassName(),
			Enabled:    n.Enabled(),
			Broken:     n.IsBroken(),
			Properties: props,
		}
		return true
	})
	for _, g := range h.engine.Globals() {
		if v, ok := h.engine.Global(g.Name); ok {
			result.Globals[g.Name] = v
		}
	}
	return nil
}

func on(step Step, def bool) bool {
	if step.On == nil {
		return def
	}
	return *step.On
}

// dropTime keeps logs comparable between runs.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.Attr{}
	}
	return a
}
