package nodes

import (
	"time"

	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

func entryTypes() []graph.NodeType {
	return []graph.NodeType{
		{
			ClassName:   ClassStart,
			DisplayName: "Start",
			Category:    "Flow Control",
			Kind:        graph.KindEntry,
			Color:       colorEntry,
			Description: "Event that fires once on script execution.",
			Init:        func(n *graph.Node) graph.Behavior { return &start{n: n} },
		},
		{
			ClassName:   ClassRemote,
			DisplayName: "Remote Event",
			Category:    "Flow Control",
			Kind:        graph.KindEntry,
			Color:       colorEntry,
			Description: "Event that fires when a Call Remote Event node with the same name is activated.",
		},
		{
			ClassName:   ClassUpdate,
			DisplayName: "Update",
			Category:    "Flow Control",
			Kind:        graph.KindEntry,
			Color:       colorEntry,
			Description: "Event that fires repeatedly while the script runs.",
			Init:        newUpdate,
		},
		{
			ClassName:   ClassCallRemote,
			DisplayName: "Call Remote Event",
			Category:    "Flow Control",
			Kind:        graph.KindProcess,
			Color:       colorEntry,
			Description: "Fires every Remote Event node that shares this node's name.",
			Init:        newCallRemote,
		},
	}
}

// start fires "out" once when the script starts.
type start struct {
	n *graph.Node
}

func (s *start) OnStart() { s.n.Fire() }

type update struct {
	n *graph.Node
}

func newUpdate(n *graph.Node) graph.Behavior {
	n.CreateProperty("milliseconds", graph.Number, ir.IRInt(1000), graph.Options{
		Description: `The time, in milliseconds, between each firing of the "out" Exit link.`,
		Min:         graph.Int(1),
		Input:       true,
	})
	return &update{n: n}
}

func (u *update) OnStart() {
	ms, _ := ir.ParseInt(u.n.Property("milliseconds"))
	u.n.SetInterval(time.Duration(ms)*time.Millisecond, u.n.Fire)
}

// callRemote fires every remote entry whose name equals its own name, so
// renaming either side rebinds the pair.
type callRemote struct {
	n *graph.Node
}

func newCallRemote(n *graph.Node) graph.Behavior {
	n.RemoveExit("out")
	n.CreateProperty("local", graph.Toggle, ir.IRBool(true), graph.Options{
		Description: "When set, only Remote Event nodes in the same script are called. Otherwise the whole graph is searched.",
	})
	return &callRemote{n: n}
}

func (c *callRemote) OnActivated(string) {
	targets := c.targets()
	if len(targets) == 0 {
		c.n.Logger().Warn("no remote event found", "remote", c.n.Name())
		return
	}
	for _, t := range targets {
		t.Fire()
	}
}

func (c *callRemote) targets() []*graph.Node {
	name := c.n.Name()
	match := func(n *graph.Node) bool {
		return n.ClassName() == ClassRemote && n.Name() == name
	}

	var out []*graph.Node
	if ir.Truthy(c.n.Property("local")) {
		for _, n := range c.n.Parent().NodesOfKind(graph.KindEntry) {
			if match(n) {
				out = append(out, n)
			}
		}
		return out
	}

	root := c.n.Parent()
	for root.Owner() != nil {
		root = root.Owner().Parent()
	}
	root.Walk(func(n *graph.Node) bool {
		if match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}
