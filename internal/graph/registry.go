package graph

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/nodeplay/internal/ir"
)

// NodeType describes a registered node class.
type NodeType struct {
	ClassName   string
	DisplayName string
	Category    string
	Kind        Kind
	Role        Role
	Color       string
	Description string

	// Init attaches per-node logic. It runs after the default links exist
	// and the node is tracked, so it may create links and properties.
	Init func(n *Node) Behavior

	// Template, for RoleScript types, is the compiled nested graph every new
	// instance starts with.
	Template []ir.NodeRecord
}

// LookupResult is the outcome of a Registry lookup.
type LookupResult int

const (
	Found LookupResult = iota
	Unknown
	Excluded
)

func (r LookupResult) String() string {
	switch r {
	case Found:
		return "found"
	case Unknown:
		return "unknown"
	case Excluded:
		return "excluded"
	default:
		return fmt.Sprintf("lookup(%d)", int(r))
	}
}

// Registry maps class names to node types. An optional library restricts
// which registered classes may be instantiated.
type Registry struct {
	mu      sync.RWMutex
	types   map[string]NodeType
	library map[string]bool
}

// NewRegistry returns a registry holding the composite built-ins.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]NodeType)}
	for _, t := range compositeTypes() {
		r.types[t.ClassName] = t
	}
	return r
}

// Register adds a node type. Class names are unique.
func (r *Registry) Register(t NodeType) error {
	if t.ClassName == "" {
		return fmt.Errorf("register node type: empty class name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.ClassName]; ok {
		return fmt.Errorf("register node type %q: already registered", t.ClassName)
	}
	if t.DisplayName == "" {
		t.DisplayName = t.ClassName
	}
	r.types[t.ClassName] = t
	return nil
}

// RegisterTemplate registers a composite script type whose instances start
// from the given compiled nested graph.
func (r *Registry) RegisterTemplate(className, displayName string, template []ir.NodeRecord) error {
	base := compositeScriptType()
	base.ClassName = className
	base.DisplayName = displayName
	base.Category = "Templates"
	base.Template = cloneRecords(template)
	return r.Register(base)
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(types ...NodeType) {
	for _, t := range types {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup resolves a class name. A registered class outside the active
// library reports Excluded. The composite built-ins are never excluded.
func (r *Registry) Lookup(className string) (NodeType, LookupResult) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[className]
	if !ok {
		return NodeType{}, Unknown
	}
	if r.library != nil && !r.library[className] && !isBuiltin(className) {
		return t, Excluded
	}
	return t, Found
}

// SetLibrary restricts instantiation to the named classes. A nil or empty
// list lifts the restriction.
func (r *Registry) SetLibrary(classNames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(classNames) == 0 {
		r.library = nil
		return
	}
	r.library = make(map[string]bool, len(classNames))
	for _, c := range classNames {
		r.library[c] = true
	}
}

// Types returns every registered type sorted by class name.
func (r *Registry) Types() []NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NodeType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b NodeType) int {
		switch {
		case a.ClassName < b.ClassName:
			return -1
		case a.ClassName > b.ClassName:
			return 1
		}
		return 0
	})
	return out
}

// Create instantiates a registered class inside parent.
func (r *Registry) Create(parent *Script, className string, opts ...NodeOption) (*Node, error) {
	t, res := r.Lookup(className)
	if res != Found {
		return nil, &DecodeError{ClassName: className, Result: res}
	}
	return New(parent, t, opts...), nil
}
