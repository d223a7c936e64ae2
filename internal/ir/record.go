package ir

import (
	"encoding/json"
	"fmt"
)

// Position is a node's location on the editor canvas.
type Position struct {
	X int64 `json:"x" yaml:"x"`
	Y int64 `json:"y" yaml:"y"`
}

// ChainRecord is one serialized connection. For flow chains "out" is the
// exit side and "in" is the entry side; for data chains "out" is the
// output property and "in" the input property.
type ChainRecord struct {
	InName    string `json:"inName" yaml:"inName"`
	InNodeID  int64  `json:"inNodeId" yaml:"inNodeId"`
	OutName   string `json:"outName" yaml:"outName"`
	OutNodeID int64  `json:"outNodeId" yaml:"outNodeId"`
}

// PropertyRecord is one serialized property. Value is omitted by minimal
// exports, in which case import restores it from InitialValue.
type PropertyRecord struct {
	Name         string   `json:"name" yaml:"name"`
	InitialValue Literal  `json:"initialValue" yaml:"initialValue"`
	Value        *Literal `json:"value,omitempty" yaml:"value,omitempty"`
}

// NodeRecord is the serialized form of a node, used for copy/paste and
// for composite templates. Nodes is set only for composite nodes.
type NodeRecord struct {
	ClassName    string           `json:"className" yaml:"className"`
	ID           int64            `json:"id" yaml:"id"`
	Name         string           `json:"name" yaml:"name"`
	Color        string           `json:"color,omitempty" yaml:"color,omitempty"`
	Pos          Position         `json:"pos" yaml:"pos"`
	Order        int64            `json:"order,omitempty" yaml:"order,omitempty"`
	Breakpoint   bool             `json:"breakpoint" yaml:"breakpoint"`
	Properties   []PropertyRecord `json:"properties" yaml:"properties"`
	EntryChains  []ChainRecord    `json:"entryChains,omitempty" yaml:"entryChains,omitempty"`
	ExitChains   []ChainRecord    `json:"exitChains" yaml:"exitChains"`
	InputChains  []ChainRecord    `json:"inputChains,omitempty" yaml:"inputChains,omitempty"`
	OutputChains []ChainRecord    `json:"outputChains" yaml:"outputChains"`
	Nodes        []NodeRecord     `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// Property returns the named property record.
func (r NodeRecord) Property(name string) (PropertyRecord, bool) {
	for _, p := range r.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyRecord{}, false
}

// GlobalRecord is one engine-wide global property.
type GlobalRecord struct {
	Name         string  `json:"name" yaml:"name"`
	InitialValue Literal `json:"initialValue" yaml:"initialValue"`
}

// GraphRecord is the top-level persisted graph.
type GraphRecord struct {
	Version    string         `json:"version" yaml:"version"`
	Properties []GlobalRecord `json:"properties" yaml:"properties"`
	Nodes      []NodeRecord   `json:"nodes" yaml:"nodes"`
}

// Walk visits every record in depth-first order, nested records after
// their composite.
func Walk(records []NodeRecord, fn func(NodeRecord)) {
	for _, r := range records {
		fn(r)
		Walk(r.Nodes, fn)
	}
}

// CanonicalGraph renders a graph as canonical JSON.
func CanonicalGraph(g GraphRecord) ([]byte, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	v, err := UnmarshalIRValue(raw)
	if err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return MarshalCanonical(v)
}

// DecodeGraph parses a persisted graph and checks its version.
func DecodeGraph(data []byte) (GraphRecord, error) {
	var g GraphRecord
	if err := json.Unmarshal(data, &g); err != nil {
		return GraphRecord{}, fmt.Errorf("parse graph: %w", err)
	}
	if g.Version == "" {
		g.Version = FormatVersion
	}
	if g.Version != FormatVersion {
		return GraphRecord{}, fmt.Errorf("unsupported graph version %q (want %q)", g.Version, FormatVersion)
	}
	return g, nil
}
