package graph

import "fmt"

// Kind is the closed set of node kinds. A Script partitions its nodes by
// Kind, and compile order follows it.
type Kind int

const (
	KindEntry Kind = iota
	KindProcess
	KindStorage
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindEntry:
		return "entry"
	case KindProcess:
		return "process"
	case KindStorage:
		return "storage"
	case KindComposite:
		return "composite"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "entry":
		return KindEntry, nil
	case "process":
		return KindProcess, nil
	case "storage":
		return KindStorage, nil
	case "composite":
		return KindComposite, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q", s)
	}
}

// Role refines KindComposite. Script nodes own a nested graph; the
// surrogate roles live inside one and stand in for a boundary link.
type Role int

const (
	RoleNone Role = iota
	RoleScript
	RoleCompositeEntry
	RoleCompositeExit
	RoleCompositeProperty
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleScript:
		return "script"
	case RoleCompositeEntry:
		return "composite-entry"
	case RoleCompositeExit:
		return "composite-exit"
	case RoleCompositeProperty:
		return "composite-property"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// IsSurrogate reports whether the role is one of the boundary placeholders.
func (r Role) IsSurrogate() bool {
	return r == RoleCompositeEntry || r == RoleCompositeExit || r == RoleCompositeProperty
}

// LinkType identifies one side of a chain.
type LinkType int

const (
	LinkEntry LinkType = iota
	LinkExit
	LinkInput
	LinkOutput
)

func (t LinkType) String() string {
	switch t {
	case LinkEntry:
		return "entry"
	case LinkExit:
		return "exit"
	case LinkInput:
		return "input"
	case LinkOutput:
		return "output"
	default:
		return fmt.Sprintf("link(%d)", int(t))
	}
}

// ConnectResult is the outcome of a connect or disconnect. Link operations
// report through it and never return errors, so batch operations can keep
// going past individual failures.
type ConnectResult int

const (
	NotFound ConnectResult = iota
	AlreadyConnected
	Success
)

func (r ConnectResult) String() string {
	switch r {
	case NotFound:
		return "not_found"
	case AlreadyConnected:
		return "already_connected"
	case Success:
		return "success"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Propagation controls whether a property write follows output chains.
type Propagation int

const (
	// PropagateDefault commits and propagates only when the value changed.
	PropagateDefault Propagation = iota
	// PropagateForce commits and propagates even when the value is unchanged.
	PropagateForce
	// PropagateSilent commits a changed value without following chains.
	PropagateSilent
)

// Peer is one adjacency record: the far node and the name of its link.
type Peer struct {
	Node *Node
	Name string
}

// LinkMeta is per-link debug state.
type LinkMeta struct {
	Flash       bool
	Broken      int
	Description string
}

// Meta is per-node debug and visual state.
type Meta struct {
	Flash  bool
	Awake  bool
	Dirty  bool
	Paused bool
	Broken int
}

// IDMap maps ids from a serialized record to the ids the live nodes got.
type IDMap map[int64]int64

// Resolve returns the mapped id, or id itself when there is no mapping.
func (m IDMap) Resolve(id int64) int64 {
	if m != nil {
		if mapped, ok := m[id]; ok {
			return mapped
		}
	}
	return id
}
