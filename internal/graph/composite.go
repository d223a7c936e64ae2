package graph

import (
	"cmp"
	"slices"

	"github.com/roach88/nodeplay/internal/ir"
)

// Composite is the nested graph of a composite script node. The nested
// nodes are live objects; compiled holds their serialized form as of the
// last Compile or the one Decompile will rebuild from.
type Composite struct {
	owner    *Node
	script   *Script
	compiled []ir.NodeRecord

	// Set while Decompile replaces the nested nodes. Surrogates leave the
	// owner's boundary links alone during that window.
	rebuilding bool
}

func newComposite(owner *Node) *Composite {
	return &Composite{
		owner:  owner,
		script: &Script{host: owner.host, owner: owner},
	}
}

// Owner returns the composite script node.
func (c *Composite) Owner() *Node { return c.owner }

// Script returns the nested graph.
func (c *Composite) Script() *Script { return c.script }

// Compiled returns a copy of the last compiled form.
func (c *Composite) Compiled() []ir.NodeRecord { return cloneRecords(c.compiled) }

// SetCompiled replaces the compiled form without touching live nodes.
func (c *Composite) SetCompiled(records []ir.NodeRecord) {
	c.compiled = cloneRecords(records)
}

// Compile serializes the nested graph in compile order (composite, entry,
// storage, process) and keeps the result as the compiled form.
func (c *Composite) Compile(minimal bool) []ir.NodeRecord {
	c.compiled = c.script.Export(minimal)
	return cloneRecords(c.compiled)
}

// Decompile replaces the nested graph with one rebuilt from the compiled
// form. Chains between the owner and its outer graph survive as long as the
// rebuilt graph still backs the link they use.
//
// Records whose class is unknown or excluded from the library are logged
// and skipped; their errors are returned. With a nil ids map recorded ids
// are kept where free; otherwise every node gets a fresh id, recorded in
// ids.
func (c *Composite) Decompile(ids IDMap) []error {
	reuse := ids == nil
	if reuse {
		ids = IDMap{}
	}
	return c.decompile(ids, reuse)
}

func (c *Composite) decompile(ids IDMap, reuse bool) []error {
	before := c.backedLinks()

	c.rebuilding = true
	c.destroyNested()
	_, errs := instantiate(c.script, c.compiled, ids, reuse)
	c.rebuilding = false

	after := c.backedLinks()
	for key := range before {
		if !after[key] {
			c.removeOwnerLink(key)
		}
	}
	c.SortLinks()
	return errs
}

// Instantiate creates nodes from records inside parent and then imports
// each record, reconnecting chains among the new nodes. Records that cannot
// be instantiated are logged and skipped. The returned slice is parallel to
// records, with nil slots for skipped ones.
//
// With a nil ids map recorded ids are kept where free; otherwise every node
// gets a fresh id, recorded in ids.
func Instantiate(parent *Script, records []ir.NodeRecord, ids IDMap) ([]*Node, []error) {
	reuse := ids == nil
	if reuse {
		ids = IDMap{}
	}
	return instantiate(parent, records, ids, reuse)
}

func instantiate(parent *Script, records []ir.NodeRecord, ids IDMap, reuse bool) ([]*Node, []error) {
	reg := parent.host.Registry()
	log := parent.host.Logger()

	var errs []error
	nodes := make([]*Node, len(records))
	for i, rec := range records {
		t, res := reg.Lookup(rec.ClassName)
		if res != Found {
			err := &DecodeError{ClassName: rec.ClassName, ID: rec.ID, Result: res}
			log.Error("skipping node", "error", err)
			errs = append(errs, err)
			ids[rec.ID] = 0
			continue
		}
		opts := []NodeOption{WithName(rec.Name), WithPos(rec.Pos.X, rec.Pos.Y)}
		if reuse {
			opts = append(opts, WithID(rec.ID))
		}
		n := New(parent, t, opts...)
		ids[rec.ID] = n.ID()
		nodes[i] = n
	}
	for i, n := range nodes {
		if n == nil {
			continue
		}
		errs = append(errs, n.importRecord(records[i], ids, reuse)...)
	}
	return nodes, errs
}

// destroyNested destroys every nested node.
func (c *Composite) destroyNested() {
	for _, n := range c.script.Nodes() {
		n.Destroy()
	}
}

// Surrogates returns the nested surrogates of one role in boundary order.
func (c *Composite) Surrogates(role Role) []*Node {
	var out []*Node
	for _, n := range c.script.composite {
		if n.typ.Role == role {
			out = append(out, n)
		}
	}
	slices.SortStableFunc(out, func(a, b *Node) int { return cmp.Compare(a.order, b.order) })
	return out
}

type linkKey struct {
	role Role
	name string
}

func (c *Composite) backedLinks() map[linkKey]bool {
	out := make(map[linkKey]bool)
	for _, n := range c.script.composite {
		if n.typ.Role.IsSurrogate() {
			out[linkKey{n.typ.Role, n.name}] = true
		}
	}
	return out
}

// backedByOther reports whether a surrogate other than except backs the
// boundary link.
func (c *Composite) backedByOther(role Role, name string, except *Node) bool {
	for _, n := range c.script.composite {
		if n != except && n.typ.Role == role && n.name == name {
			return true
		}
	}
	return false
}

func (c *Composite) removeOwnerLink(key linkKey) {
	switch key.role {
	case RoleCompositeEntry:
		c.owner.RemoveEntry(key.name)
	case RoleCompositeExit:
		c.owner.RemoveExit(key.name)
	case RoleCompositeProperty:
		if key.name != PropertyEnabled {
			c.owner.RemoveProperty(key.name)
		}
	}
}

// SortLinks orders the owner's boundary links by their surrogates' order
// keys. Links without a surrogate keep their relative order after the
// backed ones, and the enabled property always stays first. It reports
// whether anything moved.
func (c *Composite) SortLinks() bool {
	o := c.owner
	changed := false

	entries := sortByNames(o.entries, linkNames(c.Surrogates(RoleCompositeEntry)), func(l *Link) string { return l.Name })
	changed = !slices.Equal(entries, o.entries) || changed
	o.entries = entries

	exits := sortByNames(o.exits, linkNames(c.Surrogates(RoleCompositeExit)), func(l *Link) string { return l.Name })
	changed = !slices.Equal(exits, o.exits) || changed
	o.exits = exits

	if len(o.props) > 1 {
		rest := sortByNames(o.props[1:], linkNames(c.Surrogates(RoleCompositeProperty)), func(p *Property) string { return p.name })
		props := append([]*Property{o.props[0]}, rest...)
		changed = !slices.Equal(props, o.props) || changed
		o.props = props
	}

	if changed {
		o.meta.Dirty = true
	}
	return changed
}

func linkNames(surrogates []*Node) []string {
	out := make([]string, 0, len(surrogates))
	for _, s := range surrogates {
		if !slices.Contains(out, s.name) {
			out = append(out, s.name)
		}
	}
	return out
}

func sortByNames[T any](items []T, order []string, name func(T) string) []T {
	out := make([]T, 0, len(items))
	used := make([]bool, len(items))
	for _, want := range order {
		for i, it := range items {
			if !used[i] && name(it) == want {
				out = append(out, it)
				used[i] = true
				break
			}
		}
	}
	for i, it := range items {
		if !used[i] {
			out = append(out, it)
		}
	}
	return out
}

// forwardEntry passes an entry activation of the owner to the matching
// entry surrogates.
func (c *Composite) forwardEntry(link string) {
	for _, s := range c.Surrogates(RoleCompositeEntry) {
		if s.name == link {
			s.Trigger(link)
		}
	}
}

// forwardProperty passes an owner property change to the matching property
// surrogates as a data-source update.
func (c *Composite) forwardProperty(name string, v ir.IRValue) {
	for _, s := range c.Surrogates(RoleCompositeProperty) {
		if s.name == name {
			s.SetProperty(surrogateValue, v, PropagateDefault, false)
		}
	}
}

func (c *Composite) forwardInitial(name string, v ir.IRValue) {
	for _, s := range c.Surrogates(RoleCompositeProperty) {
		if s.name == name {
			s.SetInitialProperty(surrogateValue, v, PropagateDefault, false)
		}
	}
}

// cloneRecords copies records down to their chain and property slices.
// Values are shared; an IRValue is never mutated in place.
func cloneRecords(records []ir.NodeRecord) []ir.NodeRecord {
	if records == nil {
		return nil
	}
	out := make([]ir.NodeRecord, len(records))
	for i, rec := range records {
		rec.Properties = slices.Clone(rec.Properties)
		rec.EntryChains = slices.Clone(rec.EntryChains)
		rec.ExitChains = slices.Clone(rec.ExitChains)
		rec.InputChains = slices.Clone(rec.InputChains)
		rec.OutputChains = slices.Clone(rec.OutputChains)
		rec.Nodes = cloneRecords(rec.Nodes)
		out[i] = rec
	}
	return out
}
