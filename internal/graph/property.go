package graph

import (
	"math"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/nodeplay/internal/ir"
)

// PropertyType selects the coercion applied on every write.
type PropertyType int

const (
	Toggle PropertyType = iota
	Number
	String
	Select
	Dynamic
)

func (t PropertyType) String() string {
	switch t {
	case Toggle:
		return "toggle"
	case Number:
		return "number"
	case String:
		return "string"
	case Select:
		return "select"
	default:
		return "dynamic"
	}
}

// Item is one choice of a Select property.
type Item struct {
	Name  string
	Value ir.IRValue
}

// Options configure a property's validation and display.
type Options struct {
	Description string

	// Number bounds. Nil means unbounded on that side.
	Min *int64
	Max *int64

	// String length limit in characters. Zero means unlimited.
	MaxLength int

	// Select choices. ItemsFunc, when set, is evaluated on every write so
	// the allowed set can depend on other properties.
	Items     []Item
	ItemsFunc func(n *Node) []Item
	// NoneValue replaces a select value that matches no item. When HasNone
	// is false the empty string is used.
	NoneValue ir.IRValue
	HasNone   bool

	// Linked keeps value and initial value in lock step.
	Linked bool
	// Input and Output mark which sides accept data chains in the editor.
	Input  bool
	Output bool

	// ExportValue, if set, transforms the initial value written by
	// ListProperties.
	ExportValue func(ir.IRValue) ir.IRValue
}

// Int returns a pointer to v, for Options.Min and Options.Max.
func Int(v int64) *int64 { return &v }

// Property is a named data value with input and output chains.
type Property struct {
	name    string
	typ     PropertyType
	value   ir.IRValue
	initial ir.IRValue
	opts    Options

	Inputs     []Peer
	Outputs    []Peer
	InputMeta  LinkMeta
	OutputMeta LinkMeta
}

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// Type returns the property type.
func (p *Property) Type() PropertyType { return p.typ }

// Value returns the live value.
func (p *Property) Value() ir.IRValue { return p.value }

// Initial returns the initial value restored on reset.
func (p *Property) Initial() ir.IRValue { return p.initial }

// Options returns the property's options.
func (p *Property) Options() Options { return p.opts }

// Prop returns the named property, or nil.
func (n *Node) Prop(name string) *Property {
	for _, p := range n.props {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Properties returns the node's properties in display order.
func (n *Node) Properties() []*Property { return slices.Clone(n.props) }

// CreateProperty adds a property. It fails if the name is taken. A nil
// initial value defaults to 0.
func (n *Node) CreateProperty(name string, typ PropertyType, initial ir.IRValue, opts Options) bool {
	if n.Prop(name) != nil {
		return false
	}
	if initial == nil {
		initial = ir.IRInt(0)
	}
	p := &Property{name: name, typ: typ, opts: opts}
	initial = n.coerce(p, initial)
	p.value, p.initial = initial, initial
	n.props = append(n.props, p)
	n.meta.Dirty = true
	return true
}

// RemoveProperty disconnects and deletes a property.
func (n *Node) RemoveProperty(name string) bool {
	if n.DisconnectInput(name, nil, "") != Success || n.DisconnectOutput(name, nil, "") != Success {
		return false
	}
	n.props = slices.DeleteFunc(n.props, func(p *Property) bool { return p.name == name })
	n.meta.Dirty = true
	return true
}

// RenameProperty renames a property and keeps its chains.
func (n *Node) RenameProperty(oldName, newName string) bool {
	p := n.Prop(oldName)
	if p == nil || n.Prop(newName) != nil {
		return false
	}
	inputs, outputs := slices.Clone(p.Inputs), slices.Clone(p.Outputs)
	n.DisconnectInput(oldName, nil, "")
	n.DisconnectOutput(oldName, nil, "")
	p.name = newName
	for _, peer := range inputs {
		n.ConnectInput(newName, peer.Node, peer.Name)
	}
	for _, peer := range outputs {
		n.ConnectOutput(newName, peer.Node, peer.Name)
	}
	n.meta.Dirty = true
	return true
}

// SetPropertyOptions replaces a property's options.
func (n *Node) SetPropertyOptions(name string, opts Options) bool {
	p := n.Prop(name)
	if p == nil {
		return false
	}
	p.opts = opts
	n.meta.Dirty = true
	return true
}

// Property returns the live value, or nil if there is no such property.
func (n *Node) Property(name string) ir.IRValue {
	if p := n.Prop(name); p != nil {
		return p.value
	}
	return nil
}

// InitialProperty returns the initial value, or nil.
func (n *Node) InitialProperty(name string) ir.IRValue {
	if p := n.Prop(name); p != nil {
		return p.initial
	}
	return nil
}

// SetProperty writes a property value.
//
// The value is coerced to the property type. Unless it is unchanged and
// mode is not PropagateForce, the changing hook runs (and may replace the
// value), the value is committed, the changed hook runs, and the value is
// queued to every output peer (skipped for PropagateSilent). With upstream
// set, the value is also queued backwards to every input peer.
func (n *Node) SetProperty(name string, value ir.IRValue, mode Propagation, upstream bool) bool {
	p := n.Prop(name)
	if p == nil {
		return false
	}
	old := p.value
	value = n.coerce(p, value)

	p.OutputMeta.Flash = true
	if n.DebugBreak() || n.host.Stepping() {
		p.OutputMeta.Broken++
	}

	force := mode == PropagateForce
	if !force && ir.Equal(old, value) {
		return true
	}
	if h, ok := n.behavior.(PropertyChangingHook); ok {
		if replaced := h.OnPropertyChanging(name, old, value); replaced != nil {
			value = n.coerce(p, replaced)
		}
	}
	if !force && ir.Equal(old, value) {
		return true
	}

	n.meta.Dirty = true
	p.value = value
	n.debugf("property changed", "property", name, "old", ir.String(old), "new", ir.String(value))

	if h, ok := n.behavior.(PropertyChangedHook); ok {
		h.OnPropertyChanged(name, old, value)
	}
	if n.comp != nil {
		n.comp.forwardProperty(name, value)
	}
	if p.opts.Linked {
		n.SetInitialProperty(name, value, PropagateDefault, false)
	}

	if mode != PropagateSilent {
		for _, peer := range p.Outputs {
			peer.Node.ActivateProperty(peer.Name, value, false)
		}
	}
	if upstream {
		for _, peer := range p.Inputs {
			peer.Node.ActivateProperty(peer.Name, value, true)
		}
	}
	return true
}

// SetInitialProperty writes a property's initial value. Propagation along
// chains is synchronous. If the live value still equals the old initial
// value it follows the new one.
func (n *Node) SetInitialProperty(name string, value ir.IRValue, mode Propagation, upstream bool) bool {
	p := n.Prop(name)
	if p == nil {
		return false
	}
	if n.initialBusy[name] {
		return true
	}
	n.initialBusy[name] = true
	defer delete(n.initialBusy, name)

	old := p.initial
	value = n.coerce(p, value)
	if h, ok := n.behavior.(InitialPropertyChangingHook); ok {
		if replaced := h.OnInitialPropertyChanging(name, old, value); replaced != nil {
			value = n.coerce(p, replaced)
		}
	}

	force := mode == PropagateForce
	if !force && ir.Equal(old, value) {
		return true
	}

	if ir.Equal(p.value, old) {
		n.SetProperty(name, value, PropagateDefault, false)
	}

	n.meta.Dirty = true
	p.initial = value

	if h, ok := n.behavior.(InitialPropertyChangedHook); ok {
		h.OnInitialPropertyChanged(name, old, value)
	}
	if n.comp != nil {
		n.comp.forwardInitial(name, value)
	}
	if p.opts.Linked {
		n.SetProperty(name, value, PropagateDefault, false)
	}

	p.OutputMeta.Flash = true
	if n.DebugBreak() || n.host.Stepping() {
		p.OutputMeta.Broken++
	}

	if mode != PropagateSilent {
		for _, peer := range p.Outputs {
			peer.Node.SetInitialProperty(peer.Name, value, PropagateDefault, false)
		}
	}
	if upstream {
		for _, peer := range p.Inputs {
			peer.Node.SetInitialProperty(peer.Name, value, PropagateDefault, true)
		}
	}
	return true
}

// ActivateProperty queues a value arriving over a data chain.
func (n *Node) ActivateProperty(name string, value ir.IRValue, upstream bool) {
	n.host.QueuePropertyPropagation(n, name, value, upstream)
	if p := n.Prop(name); p != nil {
		p.InputMeta.Flash = true
		if n.DebugBreak() || n.host.Stepping() {
			p.InputMeta.Broken++
		}
	}
}

// ConnectInput chains this node's property input to peer's output.
func (n *Node) ConnectInput(name string, peer *Node, peerName string) ConnectResult {
	if peer == nil {
		return NotFound
	}
	mine, theirs := n.Prop(name), peer.Prop(peerName)
	if mine == nil || theirs == nil {
		return NotFound
	}
	if hasPeer(mine.Inputs, peer, theirs.name) || hasPeer(theirs.Outputs, n, mine.name) {
		return AlreadyConnected
	}
	mine.Inputs = append(mine.Inputs, Peer{Node: peer, Name: theirs.name})
	theirs.Outputs = append(theirs.Outputs, Peer{Node: n, Name: mine.name})

	n.notifyConnect(true, mine.name, LinkInput, peer, theirs.name, LinkOutput)
	peer.notifyConnect(true, theirs.name, LinkOutput, n, mine.name, LinkInput)
	return Success
}

// ConnectOutput chains this node's property output to peer's input.
func (n *Node) ConnectOutput(name string, peer *Node, peerName string) ConnectResult {
	if peer == nil {
		return NotFound
	}
	mine, theirs := n.Prop(name), peer.Prop(peerName)
	if mine == nil || theirs == nil {
		return NotFound
	}
	if hasPeer(mine.Outputs, peer, theirs.name) || hasPeer(theirs.Inputs, n, mine.name) {
		return AlreadyConnected
	}
	mine.Outputs = append(mine.Outputs, Peer{Node: peer, Name: theirs.name})
	theirs.Inputs = append(theirs.Inputs, Peer{Node: n, Name: mine.name})

	n.notifyConnect(true, mine.name, LinkOutput, peer, theirs.name, LinkInput)
	peer.notifyConnect(true, theirs.name, LinkInput, n, mine.name, LinkOutput)
	return Success
}

// DisconnectInput removes chains from a property input.
func (n *Node) DisconnectInput(name string, peer *Node, peerName string) ConnectResult {
	p := n.Prop(name)
	if p == nil {
		return NotFound
	}
	var taken []Peer
	p.Inputs, taken = splitPeers(p.Inputs, peer, peerName)
	for _, t := range taken {
		t.Node.DisconnectOutput(t.Name, n, name)
		n.notifyConnect(false, name, LinkInput, t.Node, t.Name, LinkOutput)
	}
	return Success
}

// DisconnectOutput removes chains from a property output.
func (n *Node) DisconnectOutput(name string, peer *Node, peerName string) ConnectResult {
	p := n.Prop(name)
	if p == nil {
		return NotFound
	}
	var taken []Peer
	p.Outputs, taken = splitPeers(p.Outputs, peer, peerName)
	for _, t := range taken {
		t.Node.DisconnectInput(t.Name, n, name)
		n.notifyConnect(false, name, LinkOutput, t.Node, t.Name, LinkInput)
	}
	return Success
}

func splitPeers(peers []Peer, peer *Node, peerName string) (kept, taken []Peer) {
	l := &Link{Peers: peers}
	taken = takePeers(l, peer, peerName)
	return l.Peers, taken
}

// ListInputChains returns the chains on the named property input, or on
// every property when name is empty.
func (n *Node) ListInputChains(name string, ignore map[*Node]bool) []ir.ChainRecord {
	out := []ir.ChainRecord{}
	for _, p := range n.props {
		if name != "" && p.name != name {
			continue
		}
		for _, peer := range p.Inputs {
			if ignore[peer.Node] {
				continue
			}
			out = append(out, ir.ChainRecord{InName: p.name, InNodeID: n.id, OutName: peer.Name, OutNodeID: peer.Node.id})
		}
	}
	return out
}

// ListOutputChains returns the chains on the named property output, or on
// every property when name is empty.
func (n *Node) ListOutputChains(name string, ignore map[*Node]bool) []ir.ChainRecord {
	out := []ir.ChainRecord{}
	for _, p := range n.props {
		if name != "" && p.name != name {
			continue
		}
		for _, peer := range p.Outputs {
			if ignore[peer.Node] {
				continue
			}
			out = append(out, ir.ChainRecord{InName: peer.Name, InNodeID: peer.Node.id, OutName: p.name, OutNodeID: n.id})
		}
	}
	return out
}

// ListProperties serializes every property. Minimal listings omit the
// live value.
func (n *Node) ListProperties(minimal bool) []ir.PropertyRecord {
	out := make([]ir.PropertyRecord, 0, len(n.props))
	for _, p := range n.props {
		rec := ir.PropertyRecord{Name: p.name, InitialValue: ir.L(p.initial)}
		if !minimal {
			rec.Value = ir.LP(p.value)
		}
		if p.opts.ExportValue != nil {
			if v := p.opts.ExportValue(p.initial); v != nil {
				rec.InitialValue = ir.L(v)
			}
		}
		out = append(out, rec)
	}
	return out
}

// coerce applies the property type's constraint to v.
func (n *Node) coerce(p *Property, v ir.IRValue) ir.IRValue {
	switch p.typ {
	case Toggle:
		return ir.IRBool(ir.Truthy(v))
	case Number:
		num, ok := ir.ParseInt(v)
		if !ok {
			num = 0
		}
		return ir.IRInt(clamp(num, p.opts.Min, p.opts.Max))
	case String:
		s := ir.String(v)
		if p.opts.MaxLength > 0 {
			s = truncate(s, p.opts.MaxLength)
		}
		return ir.IRString(s)
	case Select:
		items := p.opts.Items
		if p.opts.ItemsFunc != nil {
			items = p.opts.ItemsFunc(n)
		}
		for _, it := range items {
			if ir.Loose(it.Value, v) {
				return it.Value
			}
		}
		if p.opts.HasNone {
			return p.opts.NoneValue
		}
		return ir.IRString("")
	default:
		if v == nil {
			return ir.IRNull{}
		}
		return v
	}
}

func clamp(v int64, lo, hi *int64) int64 {
	minV, maxV := int64(math.MinInt64), int64(math.MaxInt64)
	if lo != nil {
		minV = *lo
	}
	if hi != nil {
		maxV = *hi
	}
	return min(maxV, max(minV, v))
}

// truncate cuts s to at most n characters after NFC normalization, so a
// decomposed accent never counts as two.
func truncate(s string, n int) string {
	s = norm.NFC.String(s)
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
