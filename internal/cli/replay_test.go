package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeplay/internal/store"
)

func TestReplayCommand_Deterministic(t *testing.T) {
	dir := t.TempDir()
	dbPath := recordVirtualRun(t, dir, counterGraph(), "counter-run", "1s")

	stdout, _, err := execute(NewRootCommand(), "replay", "--db", dbPath, "--tick", "100ms")
	require.NoError(t, err)
	assert.Contains(t, stdout, "\u2713 counter-run:")
	assert.Contains(t, stdout, "over 11 ticks")
	assert.Contains(t, stdout, "1 run(s) replayed, all deterministic")
}

func TestReplayCommand_JSONSingleRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := recordVirtualRun(t, dir, delayGraph(150), "delay-run", "1s")

	stdout, _, err := execute(NewRootCommand(), "--format", "json", "replay", "--db", dbPath, "--tick", "100ms", "--run", "delay-run")
	require.NoError(t, err)

	var result ReplayResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.True(t, result.AllDeterministic)
	assert.Equal(t, 1, result.TotalRuns)
	require.Len(t, result.Runs, 1)
	assert.Equal(t, "delay-run", result.Runs[0].RunID)
	assert.Empty(t, result.Runs[0].Divergence)
}

func TestReplayCommand_DivergesAtOtherTickRate(t *testing.T) {
	dir := t.TempDir()
	dbPath := recordVirtualRun(t, dir, counterGraph(), "counter-run", "1s")

	stdout, _, err := execute(NewRootCommand(), "replay", "--db", dbPath, "--tick", "50ms")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "replay diverged")
	assert.Contains(t, stdout, "\u2717 counter-run:")
	assert.Contains(t, stdout, "divergence detected")
}

func TestReplayCommand_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, _, err := execute(NewRootCommand(), "replay", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs found in database.")
}

func TestReplayCommand_UnknownRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := recordVirtualRun(t, dir, delayGraph(10), "delay-run", "200ms")

	_, _, err := execute(NewRootCommand(), "replay", "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplayCommand_RequiresDB(t *testing.T) {
	_, _, err := execute(NewRootCommand(), "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"db" not set`)
}
