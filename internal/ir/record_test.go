package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func posInf() float64 { return math.Inf(1) }

func TestNodeRecordJSONShape(t *testing.T) {
	rec := NodeRecord{
		ClassName:  "ProcessDelay",
		ID:         7,
		Name:       "Delay",
		Pos:        Position{X: 10, Y: 20},
		Breakpoint: true,
		Properties: []PropertyRecord{
			{Name: "milliseconds", InitialValue: L(IRInt(1000)), Value: LP(IRInt(250))},
		},
		EntryChains: []ChainRecord{{InName: "in", InNodeID: 7, OutName: "out", OutNodeID: 3}},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "ProcessDelay", raw["className"])
	assert.Equal(t, true, raw["breakpoint"])
	assert.Contains(t, raw, "entryChains")
	assert.Contains(t, raw, "exitChains")
	assert.NotContains(t, raw, "inputChains", "empty upstream chains are omitted")
	assert.NotContains(t, raw, "nodes")

	chains := raw["entryChains"].([]any)
	chain := chains[0].(map[string]any)
	assert.Equal(t, "in", chain["inName"])
	assert.EqualValues(t, 3, chain["outNodeId"])
}

func TestNodeRecordRoundTrip(t *testing.T) {
	rec := NodeRecord{
		ClassName: "CompositeNode",
		ID:        1,
		Name:      "Group",
		Properties: []PropertyRecord{
			{Name: "label", InitialValue: L(IRString("a")), Value: LP(IRString("b"))},
			{Name: "ratio", InitialValue: L(IRFloat(0.5))},
		},
		ExitChains:   []ChainRecord{},
		OutputChains: []ChainRecord{},
		Nodes: []NodeRecord{
			{ClassName: "CompositeEntry", ID: 2, Name: "in", Order: 1, Properties: []PropertyRecord{}, ExitChains: []ChainRecord{}, OutputChains: []ChainRecord{}},
		},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var got NodeRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, rec, got)
}

func TestNodeRecordProperty(t *testing.T) {
	rec := NodeRecord{Properties: []PropertyRecord{{Name: "a", InitialValue: L(IRInt(1))}}}

	p, ok := rec.Property("a")
	require.True(t, ok)
	assert.Equal(t, IRInt(1), p.InitialValue.Value)

	_, ok = rec.Property("missing")
	assert.False(t, ok)
}

func TestWalkVisitsNested(t *testing.T) {
	records := []NodeRecord{
		{ID: 1, Nodes: []NodeRecord{{ID: 2, Nodes: []NodeRecord{{ID: 3}}}}},
		{ID: 4},
	}

	var ids []int64
	Walk(records, func(r NodeRecord) { ids = append(ids, r.ID) })
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
}

func TestDecodeGraph(t *testing.T) {
	g, err := DecodeGraph([]byte(`{"version":"1","properties":[{"name":"score","initialValue":3}],"nodes":[]}`))
	require.NoError(t, err)
	require.Len(t, g.Properties, 1)
	assert.Equal(t, IRInt(3), g.Properties[0].InitialValue.Value)

	g, err = DecodeGraph([]byte(`{"nodes":[]}`))
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, g.Version)

	_, err = DecodeGraph([]byte(`{"version":"99","nodes":[]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported graph version")

	_, err = DecodeGraph([]byte(`{`))
	require.Error(t, err)
}

func TestCanonicalGraphSortsKeys(t *testing.T) {
	out, err := CanonicalGraph(GraphRecord{Version: "1", Properties: []GlobalRecord{}, Nodes: []NodeRecord{}})
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[],"properties":[],"version":"1"}`, string(out))
}

func TestLiteralYAML(t *testing.T) {
	var p PropertyRecord
	require.NoError(t, yaml.Unmarshal([]byte("name: n\ninitialValue: 4\nvalue: hi\n"), &p))
	assert.Equal(t, IRInt(4), p.InitialValue.Value)
	require.NotNil(t, p.Value)
	assert.Equal(t, IRString("hi"), p.Value.Value)

	out, err := yaml.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), "initialValue: 4")
}
