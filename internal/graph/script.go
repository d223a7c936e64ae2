package graph

import (
	"slices"

	"github.com/roach88/nodeplay/internal/ir"
)

// Script is a collection of nodes partitioned by kind. The engine owns the
// root script; every composite script node owns a nested one.
type Script struct {
	host  Host
	owner *Node

	entry     []*Node
	process   []*Node
	storage   []*Node
	composite []*Node
}

// NewScript creates an empty root script attached to host.
func NewScript(host Host) *Script {
	return &Script{host: host}
}

// Owner returns the composite node owning the script, or nil for the root.
func (s *Script) Owner() *Node { return s.owner }

// Host returns the runtime the script is attached to.
func (s *Script) Host() Host { return s.host }

func (s *Script) bucket(k Kind) *[]*Node {
	switch k {
	case KindEntry:
		return &s.entry
	case KindProcess:
		return &s.process
	case KindStorage:
		return &s.storage
	default:
		return &s.composite
	}
}

func (s *Script) add(n *Node) {
	b := s.bucket(n.Kind())
	*b = append(*b, n)
}

func (s *Script) remove(n *Node) bool {
	b := s.bucket(n.Kind())
	idx := slices.Index(*b, n)
	if idx < 0 {
		return false
	}
	*b = slices.Delete(*b, idx, idx+1)
	return true
}

// move transfers n from its current script into s.
func (s *Script) move(n *Node) {
	n.parent.remove(n)
	n.parent = s
	s.add(n)
}

// Nodes returns the direct children in compile order: composite, entry,
// storage, process.
func (s *Script) Nodes() []*Node {
	out := make([]*Node, 0, s.Len())
	out = append(out, s.composite...)
	out = append(out, s.entry...)
	out = append(out, s.storage...)
	out = append(out, s.process...)
	return out
}

// NodesOfKind returns the direct children of one kind.
func (s *Script) NodesOfKind(k Kind) []*Node {
	return slices.Clone(*s.bucket(k))
}

// Len returns the number of direct children.
func (s *Script) Len() int {
	return len(s.entry) + len(s.process) + len(s.storage) + len(s.composite)
}

// Walk visits every node depth first, nested nodes after their composite.
// Returning false from fn stops the walk.
func (s *Script) Walk(fn func(*Node) bool) bool {
	for _, n := range s.Nodes() {
		if !fn(n) {
			return false
		}
		if n.comp != nil && !n.comp.script.Walk(fn) {
			return false
		}
	}
	return true
}

// Notify calls fn on every node in notification order: storage, process,
// entry, composite, then each nested script.
func (s *Script) Notify(fn func(*Node)) {
	for _, group := range [][]*Node{s.storage, s.process, s.entry, s.composite} {
		for _, n := range slices.Clone(group) {
			fn(n)
		}
	}
	for _, n := range slices.Clone(s.composite) {
		if n.comp != nil {
			n.comp.script.Notify(fn)
		}
	}
}

// NodesByClassName returns every node, nested included, of a class.
func (s *Script) NodesByClassName(className string) []*Node {
	var out []*Node
	s.Walk(func(n *Node) bool {
		if n.ClassName() == className {
			out = append(out, n)
		}
		return true
	})
	return out
}

// NodesBySearch returns every node, nested included, matching text.
func (s *Script) NodesBySearch(text string) []*Node {
	var out []*Node
	s.Walk(func(n *Node) bool {
		if n.Search(text) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Export serializes every direct child in compile order.
func (s *Script) Export(minimal bool) []ir.NodeRecord {
	nodes := s.Nodes()
	out := make([]ir.NodeRecord, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Export(minimal))
	}
	return out
}
