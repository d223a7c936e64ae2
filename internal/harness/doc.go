// Package harness provides conformance testing for node graphs.
//
// The harness loads a persisted graph, drives a real engine through a
// scripted list of steps on the virtual clock, and checks the recorded
// trace and final state against assertions and golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: delay_chain
//	description: "A start entry fires a delay once"
//	graph: graphs/delay_chain.json   # relative to the scenario file
//	run_id: delay-run                # optional, default "test-run"
//	update_limit: 100                # optional, 0 means unlimited
//	tick: 50ms                       # optional engine tick rate
//	debugging: false
//	steps:
//	  - do: start
//	  - do: update
//	  - do: advance
//	    duration: 1s
//	  - do: set
//	    node: Counter
//	    property: value
//	    value: 3
//	assertions:
//	  - type: trace_order
//	    events: ["exit Start.out", "entry Delay.in", "exit Delay.out"]
//	  - type: final_property
//	    node: Counter
//	    property: value
//	    value: 3
//
// # Steps
//
//   - start, stop: begin or end a run
//   - update: Count ticks (default 1) of Duration engine time each
//   - advance: Duration of engine time in steps of Tick
//   - trigger: queue an activation of a node's entry Link
//   - fire: activate a node's exit Link
//   - set: write a node property, or a global when no node is named
//   - pause, resume, step: debugger controls; step runs Count items
//   - breakpoint, enable: set a node flag from On (default true)
//   - debug: arm or disarm breakpoints
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: an event matching the selector was recorded
//   - trace_order: selectors match events in order, gaps allowed
//   - trace_count: exactly Count events match the selector
//   - final_property: a node property's final value
//   - final_state: the engine's final state
//   - global: a global property's final value
//   - log_contains: the engine log contains a string
//
// Selectors are written "<kind>", "<kind> <node>" or "<kind> <node>.<link>",
// where kind is a trace kind such as entry, exit, property or break.
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory store with a sequence run-id
// generator and no wall clock: time moves only through update and advance
// steps. The same scenario always records the same trace, which is what
// makes golden comparison possible.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/delay_chain.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
