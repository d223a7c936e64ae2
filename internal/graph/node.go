package graph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/nodeplay/internal/ir"
)

// PropertyEnabled is the toggle every node carries. Disabled nodes ignore
// exit activations and the engine skips their queued entry activations.
const PropertyEnabled = "enabled"

// Behavior is the per-type logic attached to a node. It may implement any
// of the hook interfaces in hooks.go; hooks it does not implement are
// skipped.
type Behavior any

// Node is one vertex of the graph. A Node always belongs to exactly one
// Script and is registered with its Host for id lookup from construction
// until Destroy.
type Node struct {
	id          int64
	typ         NodeType
	name        string
	color       string
	pos         ir.Position
	order       int64
	description string
	details     string

	entries []*Link
	exits   []*Link
	props   []*Property

	meta       Meta
	breakpoint bool
	log        bool
	threads    []Thread
	destroyed  bool

	parent   *Script
	host     Host
	behavior Behavior

	// Set for RoleScript composites only.
	comp *Composite

	// Guards synchronous initial-value propagation against re-entry.
	initialBusy map[string]bool
}

// NodeOption customises a node at construction.
type NodeOption func(*Node)

// WithName sets the node's name. Surrogate nodes take their boundary link
// name from it.
func WithName(name string) NodeOption {
	return func(n *Node) {
		n.name = name
	}
}

// WithPos sets the canvas position.
func WithPos(x, y int64) NodeOption {
	return func(n *Node) {
		n.pos = ir.Position{X: x, Y: y}
	}
}

// WithID requests a specific id. The id is used only if no live node
// already has it; otherwise a fresh id is allocated.
func WithID(id int64) NodeOption {
	return func(n *Node) {
		n.id = id
	}
}

// New constructs a node of type typ inside parent and registers it.
//
// Default links by kind: entry nodes get an "out" exit, process nodes get
// an "in" entry and an "out" exit. Every node gets the enabled toggle.
func New(parent *Script, typ NodeType, opts ...NodeOption) *Node {
	if parent == nil {
		panic("graph.New: nil parent script")
	}
	n := &Node{
		typ:         typ,
		name:        typ.DisplayName,
		color:       typ.Color,
		description: typ.Description,
		parent:      parent,
		host:        parent.host,
		initialBusy: make(map[string]bool),
	}
	if n.color == "" {
		n.color = "#FFFFFF"
	}
	n.meta.Dirty = true

	for _, opt := range opts {
		opt(n)
	}

	h := n.host
	if n.id <= 0 || h.NodeByID(n.id) != nil {
		n.id = h.NextID()
	} else {
		h.ReserveID(n.id)
	}

	n.CreateProperty(PropertyEnabled, Toggle, ir.IRBool(true), Options{
		Description: "Disabled nodes are treated as if they were not there, all connections are ignored.",
		Input:       true,
		Output:      true,
	})
	switch typ.Kind {
	case KindEntry:
		n.CreateExit("out")
	case KindProcess:
		n.CreateEntry("in")
		n.CreateExit("out")
	}

	if typ.Role == RoleScript {
		n.comp = newComposite(n)
	}

	parent.add(n)
	h.Track(n)

	if typ.Init != nil {
		n.behavior = typ.Init(n)
	}

	if n.comp != nil && len(typ.Template) > 0 {
		n.comp.compiled = cloneRecords(typ.Template)
		n.comp.Decompile(IDMap{})
	}
	return n
}

// ID returns the node's graph-unique id.
func (n *Node) ID() int64 { return n.id }

// ClassName returns the registered type name.
func (n *Node) ClassName() string { return n.typ.ClassName }

// Type returns the node's type descriptor.
func (n *Node) Type() NodeType { return n.typ }

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.typ.Kind }

// Role returns the node's composite role.
func (n *Node) Role() Role { return n.typ.Role }

// Behavior returns the logic attached at construction, or nil.
func (n *Node) Behavior() Behavior { return n.behavior }

// Parent returns the script that owns the node.
func (n *Node) Parent() *Script { return n.parent }

// Host returns the runtime the node is attached to.
func (n *Node) Host() Host { return n.host }

// Composite returns the nested graph of a composite script node, or nil.
func (n *Node) Composite() *Composite { return n.comp }

// Destroyed reports whether Destroy has completed.
func (n *Node) Destroyed() bool { return n.destroyed }

// Meta returns a copy of the node's debug state.
func (n *Node) Meta() Meta { return n.meta }

// IsBroken reports whether the node is currently held at a breakpoint.
func (n *Node) IsBroken() bool { return n.meta.Broken > 0 }

// Awake reports whether the node has outstanding threads.
func (n *Node) Awake() bool { return n.meta.Awake }

// Flash sets the visual flash flag.
func (n *Node) Flash() { n.meta.Flash = true }

// ClearFlash resets the visual flash flags on the node and its links.
func (n *Node) ClearFlash() {
	n.meta.Flash = false
	for _, l := range n.entries {
		l.Meta.Flash = false
	}
	for _, l := range n.exits {
		l.Meta.Flash = false
	}
	for _, p := range n.props {
		p.InputMeta.Flash = false
		p.OutputMeta.Flash = false
	}
}

// MarkBroken and ReleaseBroken adjust the breakpoint hold counter.
func (n *Node) MarkBroken()    { n.meta.Broken++ }
func (n *Node) ReleaseBroken() {
	if n.meta.Broken > 0 {
		n.meta.Broken--
	}
}

// Name returns the node's display name.
func (n *Node) Name() string { return n.name }

// SetName renames the node and notifies the behavior.
func (n *Node) SetName(name string) {
	if name == n.name {
		return
	}
	old := n.name
	n.name = name
	n.meta.Dirty = true
	if h, ok := n.behavior.(NameChangedHook); ok {
		h.OnNameChanged(old, name)
	}
}

// Color returns the node's display color.
func (n *Node) Color() string { return n.color }

// SetColor sets the node's display color.
func (n *Node) SetColor(c string) {
	n.color = c
	n.meta.Dirty = true
}

// Pos returns the canvas position.
func (n *Node) Pos() ir.Position { return n.pos }

// SetPos moves the node.
func (n *Node) SetPos(x, y int64) {
	n.pos = ir.Position{X: x, Y: y}
	n.meta.Dirty = true
}

// Order returns the surrogate ordering key.
func (n *Node) Order() int64 { return n.order }

// SetOrder changes the ordering key. For surrogates the owning composite
// re-sorts its boundary links.
func (n *Node) SetOrder(order int64) {
	if order == n.order {
		return
	}
	n.order = order
	n.meta.Dirty = true
	if n.typ.Role.IsSurrogate() {
		if owner := n.parent.Owner(); owner != nil && owner.comp != nil {
			owner.comp.SortLinks()
		}
	}
}

// Description returns the node's tooltip text.
func (n *Node) Description() string { return n.description }

// SetDescription replaces the tooltip text.
func (n *Node) SetDescription(s string) { n.description = s }

// Details returns the long-form help text.
func (n *Node) Details() string { return n.details }

// SetDetails replaces the long-form help text.
func (n *Node) SetDetails(s string) { n.details = s }

// Breakpoint reports whether the node's breakpoint flag is set, whether or
// not the host is debugging.
func (n *Node) Breakpoint() bool { return n.breakpoint }

// SetBreakpoint sets the breakpoint flag.
func (n *Node) SetBreakpoint(on bool) {
	n.breakpoint = on
	n.meta.Dirty = true
}

// DebugBreak reports whether the breakpoint is armed: the flag is set and
// the host is debugging.
func (n *Node) DebugBreak() bool {
	return n.breakpoint && n.host.Debugging()
}

// SetDebugLog enables per-node debug logging.
func (n *Node) SetDebugLog(on bool) { n.log = on }

// DebugLog reports whether debug records are emitted for this node.
func (n *Node) DebugLog() bool {
	return n.log && !n.host.Silent()
}

// Logger returns the host logger annotated with this node.
func (n *Node) Logger() *slog.Logger {
	return n.host.Logger().With("node_id", n.id, "class", n.typ.ClassName)
}

func (n *Node) debugf(msg string, args ...any) {
	if n.DebugLog() {
		n.Logger().Debug(msg, args...)
	}
}

// Enabled reports the value of the enabled toggle.
func (n *Node) Enabled() bool {
	return ir.Truthy(n.Property(PropertyEnabled))
}

// SetEnabled writes the enabled toggle.
func (n *Node) SetEnabled(on bool) {
	n.SetProperty(PropertyEnabled, ir.IRBool(on), PropagateDefault, false)
	n.meta.Dirty = true
}

// Search reports whether text matches the node's type or name,
// case-insensitively.
func (n *Node) Search(text string) bool {
	text = strings.ToLower(text)
	return strings.Contains(strings.ToLower(n.typ.DisplayName), text) ||
		strings.Contains(strings.ToLower(n.typ.ClassName), text) ||
		strings.Contains(strings.ToLower(n.name), text)
}

// String identifies the node in logs.
func (n *Node) String() string {
	if n.name != "" && n.name != n.typ.DisplayName {
		return fmt.Sprintf("%s#%d (%s)", n.typ.ClassName, n.id, n.name)
	}
	return fmt.Sprintf("%s#%d", n.typ.ClassName, n.id)
}

// Start notifies the behavior that the script has started.
func (n *Node) Start() {
	n.debugf("started")
	if h, ok := n.behavior.(StartHook); ok {
		h.OnStart()
	}
}

// Stop notifies the behavior that the script has stopped.
func (n *Node) Stop() {
	n.meta.Dirty = true
	n.debugf("stopped")
	if h, ok := n.behavior.(StopHook); ok {
		h.OnStop()
	}
}

// Trigger executes an entry activation. Only the engine calls it, when the
// queued activation reaches the front of the queue.
func (n *Node) Trigger(link string) {
	n.meta.Flash = true
	if l := n.Entry(link); l != nil {
		l.Meta.Flash = true
	}
	n.debugf("triggered entry link", "link", link)

	if h, ok := n.behavior.(ActivatedHook); ok {
		h.OnActivated(link)
	}
	if n.comp != nil {
		n.comp.forwardEntry(link)
	}
}

// Fire flashes the node and activates its "out" exit. Entry nodes call it
// when their event occurs.
func (n *Node) Fire() {
	n.meta.Flash = true
	n.ActivateExit("out")
}

// Reset restores every property to its initial value, cancels threads,
// and clears debug state. Composite nodes reset their nested graph too.
func (n *Node) Reset() {
	if h, ok := n.behavior.(ResetHook); ok {
		h.OnReset()
	}
	n.ResetThreads()
	n.meta.Awake = false
	n.meta.Dirty = true
	n.meta.Broken = 0
	n.meta.Paused = false
	for _, p := range n.props {
		p.value = p.initial
	}
	if n.comp != nil {
		for _, child := range n.comp.script.Nodes() {
			child.Reset()
		}
	}
}

// Pause pauses or resumes the node's timer threads. Composite nodes pass
// the call to their nested graph. It reports whether this node or any
// nested node is paused.
func (n *Node) Pause(paused bool) bool {
	for _, t := range n.threads {
		if paused {
			t.Pause()
		} else {
			t.Resume()
		}
	}
	n.meta.Paused = paused
	result := paused
	if n.comp != nil {
		for _, child := range n.comp.script.Nodes() {
			result = child.Pause(paused) || result
		}
	}
	return result
}

// Paused reports the node's own paused flag.
func (n *Node) Paused() bool { return n.meta.Paused }

// Destroy tears the node down: threads are cancelled and every link is
// disconnected before the node leaves its parent, and nested nodes of a
// composite are destroyed before the composite itself is untracked.
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	if h, ok := n.behavior.(DestroyHook); ok {
		h.OnDestroying()
	}

	n.ResetThreads()
	n.disconnectAll()

	if n.comp != nil {
		n.comp.destroyNested()
	}

	n.parent.remove(n)
	n.host.Untrack(n)
	n.destroyed = true
}

func (n *Node) disconnectAll() {
	for _, l := range n.entries {
		n.DisconnectEntry(l.Name, nil, "")
	}
	for _, l := range n.exits {
		n.DisconnectExit(l.Name, nil, "")
	}
	for _, p := range n.props {
		n.DisconnectInput(p.name, nil, "")
		n.DisconnectOutput(p.name, nil, "")
	}
}

// setID moves the node to a new id in the host index.
func (n *Node) setID(id int64) {
	if id == n.id || id <= 0 {
		return
	}
	if other := n.host.NodeByID(id); other != nil && other != n {
		return
	}
	n.host.Untrack(n)
	n.id = id
	n.host.ReserveID(id)
	n.host.Track(n)
}

// Export serializes the node. A minimal export omits current values and
// the upstream-redundant entry and input chains.
func (n *Node) Export(minimal bool) ir.NodeRecord {
	rec := ir.NodeRecord{
		ClassName:    n.typ.ClassName,
		ID:           n.id,
		Name:         n.name,
		Color:        n.color,
		Pos:          n.pos,
		Order:        n.order,
		Breakpoint:   n.breakpoint,
		Properties:   n.ListProperties(minimal),
		ExitChains:   n.ListExitChains("", nil),
		OutputChains: n.ListOutputChains("", nil),
	}
	if !minimal {
		rec.EntryChains = n.ListEntryChains("", nil)
		rec.InputChains = n.ListInputChains("", nil)
	}
	if n.comp != nil {
		n.comp.Compile(minimal)
		rec.Nodes = cloneRecords(n.comp.compiled)
	}
	if h, ok := n.behavior.(ExportHook); ok {
		h.OnExport(&rec, minimal)
	}
	return rec
}

// Import restores a node from rec. Chains are reconnected only to peers
// that already exist and share this node's parent script; the peer's own
// import reconnects the rest.
//
// With a nil ids map the nested nodes of a composite keep their recorded
// ids where free; otherwise they get fresh ids recorded in ids.
func (n *Node) Import(rec ir.NodeRecord, ids IDMap) []error {
	reuse := ids == nil
	if reuse {
		ids = IDMap{}
	}
	return n.importRecord(rec, ids, reuse)
}

func (n *Node) importRecord(rec ir.NodeRecord, ids IDMap, reuse bool) []error {
	var errs []error
	if n.comp != nil {
		n.comp.compiled = cloneRecords(rec.Nodes)
		errs = n.comp.decompile(ids, reuse)
	}

	n.setID(ids.Resolve(rec.ID))
	n.SetName(rec.Name)
	if rec.Color != "" {
		n.color = rec.Color
	}
	n.pos = rec.Pos
	n.order = rec.Order
	n.breakpoint = rec.Breakpoint

	for _, p := range rec.Properties {
		n.SetInitialProperty(p.Name, p.InitialValue.Value, PropagateDefault, false)
		if p.Value != nil {
			n.SetProperty(p.Name, p.Value.Value, PropagateDefault, false)
		}
	}

	for _, c := range rec.EntryChains {
		if peer := n.sibling(ids.Resolve(c.OutNodeID)); peer != nil {
			n.ConnectEntry(c.InName, peer, c.OutName)
		}
	}
	for _, c := range rec.ExitChains {
		if peer := n.sibling(ids.Resolve(c.InNodeID)); peer != nil {
			n.ConnectExit(c.OutName, peer, c.InName)
		}
	}
	for _, c := range rec.InputChains {
		if peer := n.sibling(ids.Resolve(c.OutNodeID)); peer != nil {
			n.ConnectInput(c.InName, peer, c.OutName)
		}
	}
	for _, c := range rec.OutputChains {
		if peer := n.sibling(ids.Resolve(c.InNodeID)); peer != nil {
			n.ConnectOutput(c.OutName, peer, c.InName)
		}
	}
	n.meta.Dirty = true

	if n.typ.Role.IsSurrogate() {
		if owner := n.parent.Owner(); owner != nil && owner.comp != nil {
			owner.comp.SortLinks()
		}
	}
	if h, ok := n.behavior.(ImportHook); ok {
		h.OnImported(rec, ids)
	}
	return errs
}

func (n *Node) sibling(id int64) *Node {
	peer := n.host.NodeByID(id)
	if peer == nil || peer.parent != n.parent {
		return nil
	}
	return peer
}
