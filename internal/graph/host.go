package graph

import (
	"log/slog"
	"time"

	"github.com/roach88/nodeplay/internal/ir"
)

// Host is the runtime a graph is attached to. The engine implements it;
// tests use a recording fake. Nodes never mutate the queue or the id index
// directly, only through these calls.
type Host interface {
	// NextID allocates a fresh node id.
	NextID() int64
	// ReserveID makes sure future NextID calls return ids above id.
	ReserveID(id int64)
	// Track and Untrack maintain the flat id index.
	Track(n *Node)
	Untrack(n *Node)
	// NodeByID resolves an id anywhere in the graph, nested or not.
	NodeByID(id int64) *Node

	QueueEntryActivation(n *Node, link string, from *Node, fromLink string)
	QueuePropertyPropagation(n *Node, prop string, value ir.IRValue, upstream bool)

	// After schedules fn to run on the engine loop once d of engine time
	// has elapsed. The returned Thread pauses, resumes, and cancels it.
	After(n *Node, d time.Duration, fn func()) Thread
	// Post schedules fn to run on the engine loop. Safe from any goroutine.
	Post(n *Node, fn func())

	// ExitActivated is called whenever a node fires an exit link.
	ExitActivated(n *Node, link string)

	Debugging() bool
	Stepping() bool
	Silent() bool
	Registry() *Registry
	Logger() *slog.Logger
}
