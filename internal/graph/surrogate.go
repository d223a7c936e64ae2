package graph

import "github.com/roach88/nodeplay/internal/ir"

// Class names of the composite built-ins.
const (
	ClassCompositeScript   = "CompositeScript"
	ClassCompositeEntry    = "CompositeEntry"
	ClassCompositeExit     = "CompositeExit"
	ClassCompositeProperty = "CompositeProperty"
)

const surrogateValue = "value"

func compositeScriptType() NodeType {
	return NodeType{
		ClassName:   ClassCompositeScript,
		DisplayName: "Composite",
		Category:    "Composite",
		Kind:        KindComposite,
		Role:        RoleScript,
		Color:       "#D0D8FF",
		Description: "A node that contains a nested graph.",
	}
}

// CompositeScriptType returns the built-in composite script type, the
// usual target type for Extract.
func CompositeScriptType() NodeType { return compositeScriptType() }

func compositeTypes() []NodeType {
	return []NodeType{
		compositeScriptType(),
		{
			ClassName:   ClassCompositeEntry,
			DisplayName: "Entry",
			Category:    "Composite",
			Kind:        KindComposite,
			Role:        RoleCompositeEntry,
			Color:       "#C8F0C8",
			Description: "Forwards an entry link of the enclosing composite into the nested graph.",
			Init: func(n *Node) Behavior {
				n.CreateExit("out")
				return newSurrogate(n)
			},
		},
		{
			ClassName:   ClassCompositeExit,
			DisplayName: "Exit",
			Category:    "Composite",
			Kind:        KindComposite,
			Role:        RoleCompositeExit,
			Color:       "#F0C8C8",
			Description: "Fires an exit link of the enclosing composite.",
			Init: func(n *Node) Behavior {
				n.CreateEntry("in")
				return newSurrogate(n)
			},
		},
		{
			ClassName:   ClassCompositeProperty,
			DisplayName: "Property",
			Category:    "Composite",
			Kind:        KindComposite,
			Role:        RoleCompositeProperty,
			Color:       "#F0F0C0",
			Description: "Mirrors a property of the enclosing composite.",
			Init: func(n *Node) Behavior {
				n.CreateProperty(surrogateValue, Dynamic, ir.IRNull{}, Options{Input: true, Output: true})
				return newSurrogate(n)
			},
		},
	}
}

func isBuiltin(className string) bool {
	switch className {
	case ClassCompositeScript, ClassCompositeEntry, ClassCompositeExit, ClassCompositeProperty:
		return true
	}
	return false
}

// surrogate is the behavior shared by the three boundary placeholders. A
// surrogate outside any composite does nothing.
type surrogate struct {
	n *Node
}

func newSurrogate(n *Node) *surrogate {
	s := &surrogate{n: n}
	c := s.comp()
	if c == nil {
		return s
	}
	if n.order == 0 {
		n.order = int64(len(c.Surrogates(n.typ.Role)))
	}
	s.ensureOwnerLink(n.name)
	c.SortLinks()
	return s
}

func (s *surrogate) comp() *Composite {
	owner := s.n.parent.Owner()
	if owner == nil {
		return nil
	}
	return owner.comp
}

func (s *surrogate) ownerHas(name string) bool {
	o := s.n.parent.Owner()
	switch s.n.typ.Role {
	case RoleCompositeEntry:
		return o.Entry(name) != nil
	case RoleCompositeExit:
		return o.Exit(name) != nil
	default:
		return o.Prop(name) != nil
	}
}

func (s *surrogate) ensureOwnerLink(name string) {
	if s.ownerHas(name) {
		return
	}
	o := s.n.parent.Owner()
	switch s.n.typ.Role {
	case RoleCompositeEntry:
		o.CreateEntry(name)
	case RoleCompositeExit:
		o.CreateExit(name)
	default:
		o.CreateProperty(name, Dynamic, s.n.InitialProperty(surrogateValue), Options{Input: true, Output: true})
		o.SetProperty(name, s.n.Property(surrogateValue), PropagateSilent, false)
	}
}

func (s *surrogate) OnActivated(string) {
	c := s.comp()
	if c == nil {
		return
	}
	switch s.n.typ.Role {
	case RoleCompositeEntry:
		s.n.ActivateExit("out")
	case RoleCompositeExit:
		c.owner.ActivateExit(s.n.name)
	}
}

func (s *surrogate) OnPropertyChanged(name string, _, next ir.IRValue) {
	if c := s.comp(); c != nil && name == surrogateValue {
		c.owner.SetProperty(s.n.name, next, PropagateDefault, false)
	}
}

func (s *surrogate) OnInitialPropertyChanged(name string, _, next ir.IRValue) {
	if c := s.comp(); c != nil && name == surrogateValue {
		c.owner.SetInitialProperty(s.n.name, next, PropagateDefault, false)
	}
}

// OnNameChanged moves the boundary link to the new name. A link another
// surrogate still uses stays where it is.
func (s *surrogate) OnNameChanged(old, next string) {
	c := s.comp()
	if c == nil || c.rebuilding {
		return
	}
	shared := c.backedByOther(s.n.typ.Role, old, s.n)
	o := c.owner
	switch {
	case s.ownerHas(next):
		if !shared {
			c.removeOwnerLink(linkKey{s.n.typ.Role, old})
		}
	case shared:
		s.ensureOwnerLink(next)
	default:
		switch s.n.typ.Role {
		case RoleCompositeEntry:
			o.RenameEntry(old, next)
		case RoleCompositeExit:
			o.RenameExit(old, next)
		default:
			o.RenameProperty(old, next)
		}
		s.ensureOwnerLink(next)
	}
	c.SortLinks()
}

func (s *surrogate) OnDestroying() {
	c := s.comp()
	if c == nil || c.rebuilding {
		return
	}
	if !c.backedByOther(s.n.typ.Role, s.n.name, s.n) {
		c.removeOwnerLink(linkKey{s.n.typ.Role, s.n.name})
	}
}
