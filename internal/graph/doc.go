// Package graph implements the node graph: links, properties, nodes,
// scripts, and composite nodes with nested graphs.
//
// MODEL:
//
// A Node has entry and exit links for control flow, and properties that
// carry data over input and output chains. Every connection is stored on
// both ends, so each side can list and tear down its own chains. Link
// operations report a ConnectResult and never fail with an error.
//
// Nodes never run each other's logic directly. Activating an exit queues
// an entry activation on each peer, and a property write queues the value
// to each output peer, both through the Host. The engine drains that queue
// one item at a time. Initial values are the exception: they propagate
// synchronously along output chains.
//
// COMPOSITES:
//
// A composite script node owns a nested Script. Each of its boundary links
// is backed by a surrogate node inside (CompositeEntry, CompositeExit,
// CompositeProperty) that bridges activations and values across the
// boundary. Compile serializes the nested graph; Decompile rebuilds it
// through the Registry. Extract turns a selection of nodes into a new
// composite, rerouting every chain that crossed the selection.
//
// The package is single-threaded: all calls must come from the engine loop.
// Node.Go is the one way to run work elsewhere, and its continuation is
// posted back to the loop.
package graph
