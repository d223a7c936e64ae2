package graph

import (
	"fmt"
	"slices"
)

// Extract moves the selected nodes out of parent into a new composite of
// type typ, placed where the selection was.
//
// Every chain that crossed the selection boundary is rebuilt through the
// composite: the inner node is chained to a surrogate, the outer node to
// the composite's matching link, and the direct chain is removed. Boundary
// links sharing a name and direction share one surrogate. Chains among the
// selected nodes move with them unchanged.
func Extract(parent *Script, selected []*Node, typ NodeType, name string) (*Node, error) {
	if typ.Role != RoleScript {
		return nil, fmt.Errorf("%w: %s is not a composite script type", ErrInvalidSelection, typ.ClassName)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no nodes selected", ErrInvalidSelection)
	}
	inside := make(map[*Node]bool, len(selected))
	for _, n := range selected {
		switch {
		case n == nil || n.destroyed:
			return nil, fmt.Errorf("%w: destroyed node", ErrInvalidSelection)
		case n.parent != parent:
			return nil, fmt.Errorf("%w: %s is not in the script", ErrInvalidSelection, n)
		case n.typ.Role.IsSurrogate():
			return nil, fmt.Errorf("%w: %s is a composite boundary node", ErrInvalidSelection, n)
		case inside[n]:
			return nil, fmt.Errorf("%w: %s selected twice", ErrInvalidSelection, n)
		}
		inside[n] = true
	}

	var sx, sy int64
	for _, n := range selected {
		sx += n.pos.X
		sy += n.pos.Y
	}
	cnt := int64(len(selected))
	comp := New(parent, typ, WithName(name), WithPos(sx/cnt, sy/cnt))
	c := comp.comp

	for _, n := range selected {
		c.script.move(n)
	}

	x := &extraction{comp: comp, inside: inside, surrogates: make(map[linkKey]*Node)}
	for _, n := range selected {
		x.rewire(n)
	}
	c.Compile(false)
	return comp, nil
}

type extraction struct {
	comp       *Node
	inside     map[*Node]bool
	surrogates map[linkKey]*Node
}

// surrogateFor returns the shared surrogate for a boundary link, creating
// it next to the inner node on first use.
func (x *extraction) surrogateFor(role Role, name string, near *Node) *Node {
	key := linkKey{role, name}
	if s, ok := x.surrogates[key]; ok {
		return s
	}
	var className string
	dx := int64(-150)
	switch role {
	case RoleCompositeEntry:
		className = ClassCompositeEntry
	case RoleCompositeExit:
		className, dx = ClassCompositeExit, 150
	default:
		className = ClassCompositeProperty
	}
	t, _ := x.comp.host.Registry().Lookup(className)
	s := New(x.comp.comp.script, t, WithName(name), WithPos(near.pos.X+dx, near.pos.Y))
	x.surrogates[key] = s
	return s
}

func (x *extraction) rewire(n *Node) {
	comp := x.comp
	for _, l := range n.entries {
		for _, p := range slices.Clone(l.Peers) {
			if x.inside[p.Node] {
				continue
			}
			ce := x.surrogateFor(RoleCompositeEntry, l.Name, n)
			ce.ConnectExit("out", n, l.Name)
			comp.ConnectEntry(l.Name, p.Node, p.Name)
			p.Node.DisconnectExit(p.Name, n, l.Name)
		}
	}
	for _, l := range n.exits {
		for _, p := range slices.Clone(l.Peers) {
			if x.inside[p.Node] {
				continue
			}
			cx := x.surrogateFor(RoleCompositeExit, l.Name, n)
			cx.ConnectEntry("in", n, l.Name)
			comp.ConnectExit(l.Name, p.Node, p.Name)
			p.Node.DisconnectEntry(p.Name, n, l.Name)
		}
	}
	for _, prop := range n.props {
		for _, p := range slices.Clone(prop.Inputs) {
			if x.inside[p.Node] {
				continue
			}
			cp := x.propertySurrogate(prop, n)
			cp.ConnectOutput(surrogateValue, n, prop.name)
			comp.ConnectInput(prop.name, p.Node, p.Name)
			p.Node.DisconnectOutput(p.Name, n, prop.name)
		}
		for _, p := range slices.Clone(prop.Outputs) {
			if x.inside[p.Node] {
				continue
			}
			cp := x.propertySurrogate(prop, n)
			cp.ConnectInput(surrogateValue, n, prop.name)
			comp.ConnectOutput(prop.name, p.Node, p.Name)
			p.Node.DisconnectInput(p.Name, n, prop.name)
		}
	}
}

// propertySurrogate returns the surrogate for a boundary property. A new
// one starts from the inner property's values so connecting it does not
// overwrite them.
func (x *extraction) propertySurrogate(prop *Property, n *Node) *Node {
	if s, ok := x.surrogates[linkKey{RoleCompositeProperty, prop.name}]; ok {
		return s
	}
	s := x.surrogateFor(RoleCompositeProperty, prop.name, n)
	s.SetInitialProperty(surrogateValue, prop.initial, PropagateSilent, false)
	s.SetProperty(surrogateValue, prop.value, PropagateSilent, false)
	return s
}
