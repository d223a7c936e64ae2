package testutil

import (
	"fmt"

	"github.com/roach88/nodeplay/internal/ir"
)

// GraphBuilder assembles an ir.GraphRecord by node name, so tests can
// describe a graph without spelling out ids and chain records twice.
//
//	g := testutil.NewGraphBuilder().
//		Node("EntryStart", "Start").
//		Node("ProcessDelay", "Delay", testutil.Prop("milliseconds", ir.IRInt(10))).
//		Exit("Start", "out", "Delay", "in").
//		Build()
//
// Ids count up from 1 in the order nodes are added, so a graph built twice
// hashes to the same script. Referring to an unknown node name panics; a
// test graph with a typo is a broken test.
type GraphBuilder struct {
	nextID int64
	g      ir.GraphRecord
	byName map[string]int
}

// NewGraphBuilder returns an empty builder whose first node gets id 1.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		g:      ir.GraphRecord{Version: ir.FormatVersion, Properties: []ir.GlobalRecord{}, Nodes: []ir.NodeRecord{}},
		byName: make(map[string]int),
	}
}

// Prop is an initial property value for Node.
func Prop(name string, v ir.IRValue) ir.PropertyRecord {
	return ir.PropertyRecord{Name: name, InitialValue: ir.L(v)}
}

// Node adds a node of className. Properties not listed keep the class
// defaults when the graph is loaded.
func (b *GraphBuilder) Node(className, name string, props ...ir.PropertyRecord) *GraphBuilder {
	if _, dup := b.byName[name]; dup {
		panic(fmt.Sprintf("GraphBuilder: duplicate node name %q", name))
	}
	b.nextID++
	id := b.nextID
	b.byName[name] = len(b.g.Nodes)
	if props == nil {
		props = []ir.PropertyRecord{}
	}
	b.g.Nodes = append(b.g.Nodes, ir.NodeRecord{
		ClassName:    className,
		ID:           id,
		Name:         name,
		Pos:          ir.Position{X: id * 100},
		Properties:   props,
		ExitChains:   []ir.ChainRecord{},
		OutputChains: []ir.ChainRecord{},
	})
	return b
}

// Breakpoint marks the named node.
func (b *GraphBuilder) Breakpoint(name string) *GraphBuilder {
	b.g.Nodes[b.index(name)].Breakpoint = true
	return b
}

// Exit chains from's exit link to to's entry link.
func (b *GraphBuilder) Exit(from, exit, to, entry string) *GraphBuilder {
	src, dst := b.index(from), b.index(to)
	b.g.Nodes[src].ExitChains = append(b.g.Nodes[src].ExitChains, ir.ChainRecord{
		OutName:   exit,
		OutNodeID: b.g.Nodes[src].ID,
		InName:    entry,
		InNodeID:  b.g.Nodes[dst].ID,
	})
	return b
}

// Output chains from's output property to to's input property.
func (b *GraphBuilder) Output(from, output, to, input string) *GraphBuilder {
	src, dst := b.index(from), b.index(to)
	b.g.Nodes[src].OutputChains = append(b.g.Nodes[src].OutputChains, ir.ChainRecord{
		OutName:   output,
		OutNodeID: b.g.Nodes[src].ID,
		InName:    input,
		InNodeID:  b.g.Nodes[dst].ID,
	})
	return b
}

// Global declares an engine-wide property.
func (b *GraphBuilder) Global(name string, v ir.IRValue) *GraphBuilder {
	b.g.Properties = append(b.g.Properties, ir.GlobalRecord{Name: name, InitialValue: ir.L(v)})
	return b
}

// ID returns the id assigned to the named node.
func (b *GraphBuilder) ID(name string) int64 {
	return b.g.Nodes[b.index(name)].ID
}

// Build returns the graph. The builder may keep being used afterwards;
// the returned record does not alias it.
func (b *GraphBuilder) Build() ir.GraphRecord {
	out := b.g
	out.Properties = append([]ir.GlobalRecord{}, b.g.Properties...)
	out.Nodes = make([]ir.NodeRecord, len(b.g.Nodes))
	for i, n := range b.g.Nodes {
		n.Properties = append([]ir.PropertyRecord{}, n.Properties...)
		n.ExitChains = append([]ir.ChainRecord{}, n.ExitChains...)
		n.OutputChains = append([]ir.ChainRecord{}, n.OutputChains...)
		out.Nodes[i] = n
	}
	return out
}

func (b *GraphBuilder) index(name string) int {
	i, ok := b.byName[name]
	if !ok {
		panic(fmt.Sprintf("GraphBuilder: unknown node %q", name))
	}
	return i
}
