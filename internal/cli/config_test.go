package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeplay/internal/engine"
	"github.com/roach88/nodeplay/internal/graph"
)

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadConfig_AllFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "engine.yaml", `
tick_rate: 50ms
update_limit: 0
debugging: true
silent: true
db: ./runs.db
library: [EntryStart, ProcessDelay]
templates: [templates/blinker.json]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.TickRate)
	require.NotNil(t, cfg.UpdateLimit)
	assert.Equal(t, 0, *cfg.UpdateLimit)
	assert.True(t, cfg.Debugging)
	assert.True(t, cfg.Silent)
	assert.Equal(t, "./runs.db", cfg.Database)
	assert.Equal(t, []string{"EntryStart", "ProcessDelay"}, cfg.Library)
	assert.Equal(t, []string{filepath.Join(dir, "templates", "blinker.json")}, cfg.Templates)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "tick: 50ms\n", "field tick not found"},
		{"bad duration", "tick_rate: soon\n", "parse config"},
		{"negative tick", "tick_rate: -1s\n", "tick_rate must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "engine.yaml", tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestConfig_EngineOptions(t *testing.T) {
	limit := 7
	cfg := &Config{TickRate: 10 * time.Millisecond, UpdateLimit: &limit, Debugging: true, Silent: true}

	e := engine.New(cfg.EngineOptions()...)
	defer e.Close()
	assert.Equal(t, 10*time.Millisecond, e.TickRate())
	assert.Equal(t, 7, e.UpdateLimit())
	assert.True(t, e.Debugging())
	assert.True(t, e.Silent())
}

func TestConfig_EngineOptionsDefaults(t *testing.T) {
	e := engine.New((&Config{}).EngineOptions()...)
	defer e.Close()
	assert.Equal(t, engine.DefaultTickRate, e.TickRate())
	assert.Equal(t, engine.DefaultUpdateLimit, e.UpdateLimit())
}

func TestConfig_RegisterTemplates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blinker.json", `{"className":"Blinker","displayName":"Blinker","nodes":[
		{"className":"ProcessDelay","id":1,"name":"Inner","pos":{"x":0,"y":0},"breakpoint":false,
		 "properties":[{"name":"milliseconds","initialValue":250}],"exitChains":[],"outputChains":[]}]}`)
	cfgPath := writeFile(t, dir, "engine.yaml", "templates: [blinker.json]\n")

	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	reg := graph.NewRegistry()
	require.NoError(t, cfg.Register(reg))

	typ, res := reg.Lookup("Blinker")
	require.Equal(t, graph.Found, res)
	assert.Equal(t, "Templates", typ.Category)
	require.Len(t, typ.Template, 1)
	assert.Equal(t, "Inner", typ.Template[0].Name)

	_, res = reg.Lookup("ProcessDelay")
	assert.Equal(t, graph.Found, res)
}

func TestConfig_RegisterTemplateWithoutClass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{"nodes":[]}`)
	cfg := &Config{Templates: []string{filepath.Join(dir, "bad.json")}}

	err := cfg.Register(graph.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "className is required")
}
