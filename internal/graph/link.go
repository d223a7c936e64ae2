package graph

import (
	"slices"

	"github.com/roach88/nodeplay/internal/ir"
)

// Link is a named flow connection point. Peers hold the mirrored adjacency
// records; for an entry link they name exits on other nodes and vice versa.
type Link struct {
	Name  string
	Peers []Peer
	Meta  LinkMeta
}

func findLink(links []*Link, name string) *Link {
	for _, l := range links {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func hasPeer(peers []Peer, node *Node, name string) bool {
	for _, p := range peers {
		if p.Node == node && p.Name == name {
			return true
		}
	}
	return false
}

// Entry returns the named entry link, or nil.
func (n *Node) Entry(name string) *Link { return findLink(n.entries, name) }

// Exit returns the named exit link, or nil.
func (n *Node) Exit(name string) *Link { return findLink(n.exits, name) }

// Entries returns the node's entry links in display order.
func (n *Node) Entries() []*Link { return slices.Clone(n.entries) }

// Exits returns the node's exit links in display order.
func (n *Node) Exits() []*Link { return slices.Clone(n.exits) }

// CreateEntry adds an entry link. It fails if the name is taken.
func (n *Node) CreateEntry(name string, description ...string) bool {
	if n.Entry(name) != nil {
		return false
	}
	l := &Link{Name: name}
	if len(description) > 0 {
		l.Meta.Description = description[0]
	}
	n.entries = append(n.entries, l)
	n.meta.Dirty = true
	return true
}

// CreateExit adds an exit link. It fails if the name is taken.
func (n *Node) CreateExit(name string, description ...string) bool {
	if n.Exit(name) != nil {
		return false
	}
	l := &Link{Name: name}
	if len(description) > 0 {
		l.Meta.Description = description[0]
	}
	n.exits = append(n.exits, l)
	n.meta.Dirty = true
	return true
}

// RemoveEntry disconnects and deletes an entry link.
func (n *Node) RemoveEntry(name string) bool {
	if n.DisconnectEntry(name, nil, "") != Success {
		return false
	}
	n.entries = slices.DeleteFunc(n.entries, func(l *Link) bool { return l.Name == name })
	n.meta.Dirty = true
	return true
}

// RemoveExit disconnects and deletes an exit link.
func (n *Node) RemoveExit(name string) bool {
	if n.DisconnectExit(name, nil, "") != Success {
		return false
	}
	n.exits = slices.DeleteFunc(n.exits, func(l *Link) bool { return l.Name == name })
	n.meta.Dirty = true
	return true
}

// RenameEntry renames an entry link and keeps every chain attached. It
// fails if newName exists or oldName does not.
func (n *Node) RenameEntry(oldName, newName string) bool {
	l := n.Entry(oldName)
	if l == nil || n.Entry(newName) != nil {
		return false
	}
	peers := slices.Clone(l.Peers)
	n.DisconnectEntry(oldName, nil, "")
	l.Name = newName
	for _, p := range peers {
		n.ConnectEntry(newName, p.Node, p.Name)
	}
	n.meta.Dirty = true
	return true
}

// RenameExit renames an exit link and keeps every chain attached.
func (n *Node) RenameExit(oldName, newName string) bool {
	l := n.Exit(oldName)
	if l == nil || n.Exit(newName) != nil {
		return false
	}
	peers := slices.Clone(l.Peers)
	n.DisconnectExit(oldName, nil, "")
	l.Name = newName
	for _, p := range peers {
		n.ConnectExit(newName, p.Node, p.Name)
	}
	n.meta.Dirty = true
	return true
}

// ConnectEntry chains this node's entry link to peer's exit link.
func (n *Node) ConnectEntry(name string, peer *Node, peerName string) ConnectResult {
	if peer == nil {
		return NotFound
	}
	mine, theirs := n.Entry(name), peer.Exit(peerName)
	if mine == nil || theirs == nil {
		return NotFound
	}
	if hasPeer(mine.Peers, peer, theirs.Name) || hasPeer(theirs.Peers, n, mine.Name) {
		return AlreadyConnected
	}
	mine.Peers = append(mine.Peers, Peer{Node: peer, Name: theirs.Name})
	theirs.Peers = append(theirs.Peers, Peer{Node: n, Name: mine.Name})

	n.notifyConnect(true, mine.Name, LinkEntry, peer, theirs.Name, LinkExit)
	peer.notifyConnect(true, theirs.Name, LinkExit, n, mine.Name, LinkEntry)
	return Success
}

// ConnectExit chains this node's exit link to peer's entry link.
func (n *Node) ConnectExit(name string, peer *Node, peerName string) ConnectResult {
	if peer == nil {
		return NotFound
	}
	mine, theirs := n.Exit(name), peer.Entry(peerName)
	if mine == nil || theirs == nil {
		return NotFound
	}
	if hasPeer(mine.Peers, peer, theirs.Name) || hasPeer(theirs.Peers, n, mine.Name) {
		return AlreadyConnected
	}
	mine.Peers = append(mine.Peers, Peer{Node: peer, Name: theirs.Name})
	theirs.Peers = append(theirs.Peers, Peer{Node: n, Name: mine.Name})

	n.notifyConnect(true, mine.Name, LinkExit, peer, theirs.Name, LinkEntry)
	peer.notifyConnect(true, theirs.Name, LinkEntry, n, mine.Name, LinkExit)
	return Success
}

// DisconnectEntry removes chains from an entry link. A nil peer or empty
// peerName matches any.
func (n *Node) DisconnectEntry(name string, peer *Node, peerName string) ConnectResult {
	l := n.Entry(name)
	if l == nil {
		return NotFound
	}
	for _, p := range takePeers(l, peer, peerName) {
		p.Node.DisconnectExit(p.Name, n, name)
		n.notifyConnect(false, name, LinkEntry, p.Node, p.Name, LinkExit)
	}
	return Success
}

// DisconnectExit removes chains from an exit link. A nil peer or empty
// peerName matches any.
func (n *Node) DisconnectExit(name string, peer *Node, peerName string) ConnectResult {
	l := n.Exit(name)
	if l == nil {
		return NotFound
	}
	for _, p := range takePeers(l, peer, peerName) {
		p.Node.DisconnectEntry(p.Name, n, name)
		n.notifyConnect(false, name, LinkExit, p.Node, p.Name, LinkEntry)
	}
	return Success
}

// takePeers removes the matching peers from l and returns them.
func takePeers(l *Link, peer *Node, peerName string) []Peer {
	var taken []Peer
	l.Peers = slices.DeleteFunc(l.Peers, func(p Peer) bool {
		if (peer == nil || peer == p.Node) && (peerName == "" || peerName == p.Name) {
			taken = append(taken, p)
			return true
		}
		return false
	})
	return taken
}

func (n *Node) notifyConnect(connecting bool, name string, typ LinkType, peer *Node, peerName string, peerType LinkType) {
	if h, ok := n.behavior.(ConnectHook); ok {
		h.OnConnect(connecting, name, typ, peer, peerName, peerType)
	}
	// A new output chain pushes this side's current and initial value into
	// the input it was bound to.
	if connecting && typ == LinkOutput {
		peer.ActivateProperty(peerName, n.Property(name), false)
		peer.SetInitialProperty(peerName, n.InitialProperty(name), PropagateDefault, false)
	}
}

// ActivateEntry queues an activation of the named entry link. Node logic
// never runs synchronously from here. It fails if the link does not exist.
func (n *Node) ActivateEntry(name string, from *Node, fromName string) bool {
	if n.Entry(name) == nil {
		return false
	}
	n.host.QueueEntryActivation(n, name, from, fromName)
	return true
}

// ActivateExit queues an entry activation on every peer of the named exit
// link. It is a no-op on a disabled node. When the exit has no peers only
// the flash flags are set.
func (n *Node) ActivateExit(name string) bool {
	if !n.Enabled() {
		return false
	}
	l := n.Exit(name)
	if l == nil {
		return false
	}
	n.debugf("triggered exit link", "link", name)
	n.host.ExitActivated(n, name)

	queued := false
	for _, p := range l.Peers {
		if p.Node != nil {
			queued = true
			p.Node.ActivateEntry(p.Name, n, name)
		}
	}
	if !queued {
		l.Meta.Flash = true
		n.meta.Flash = true
	}
	return true
}

// ListEntryChains returns the chains on the named entry link, or on every
// entry link when name is empty. Chains to nodes in ignore are skipped.
func (n *Node) ListEntryChains(name string, ignore map[*Node]bool) []ir.ChainRecord {
	out := []ir.ChainRecord{}
	for _, l := range n.entries {
		if name != "" && l.Name != name {
			continue
		}
		for _, p := range l.Peers {
			if ignore[p.Node] {
				continue
			}
			out = append(out, ir.ChainRecord{InName: l.Name, InNodeID: n.id, OutName: p.Name, OutNodeID: p.Node.id})
		}
	}
	return out
}

// ListExitChains returns the chains on the named exit link, or on every
// exit link when name is empty.
func (n *Node) ListExitChains(name string, ignore map[*Node]bool) []ir.ChainRecord {
	out := []ir.ChainRecord{}
	for _, l := range n.exits {
		if name != "" && l.Name != name {
			continue
		}
		for _, p := range l.Peers {
			if ignore[p.Node] {
				continue
			}
			out = append(out, ir.ChainRecord{InName: p.Name, InNodeID: p.Node.id, OutName: l.Name, OutNodeID: n.id})
		}
	}
	return out
}
