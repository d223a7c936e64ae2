package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDemoScenarios runs every scenario under testdata/scenarios. They
// double as documentation of the scenario format and as regression
// fixtures for the engine's ordering, timing and debugger behaviour.
func TestDemoScenarios(t *testing.T) {
	paths, err := DiscoverScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err, "failed to load scenario from %s", path)
			assert.NotEmpty(t, scenario.Description, "scenario should have description")

			result, err := Run(scenario)
			require.NoError(t, err, "scenario execution failed")
			require.NotNil(t, result)

			assert.True(t, result.Pass, "scenario should pass: errors=%v", result.Errors)
			assert.NotEmpty(t, result.Trace, "trace should not be empty")

			t.Logf("Scenario %s: %d trace events", scenario.Name, len(result.Trace))
		})
	}
}

// TestDemoScenariosReplay validates deterministic replay.
// Running the same scenario twice should produce identical traces.
func TestDemoScenariosReplay(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/breakpoint.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	require.Equal(t, len(first.Trace), len(second.Trace), "trace lengths should match")
	for i := range first.Trace {
		assert.Equal(t, first.Trace[i], second.Trace[i], "trace event %d differs", i)
	}
	assert.Equal(t, first.Nodes, second.Nodes)
}
