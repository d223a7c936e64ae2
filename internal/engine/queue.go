package engine

import (
	"sync"

	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

// WorkType distinguishes queued work kinds.
type WorkType int

const (
	// WorkEntry is an entry link activation.
	WorkEntry WorkType = iota + 1
	// WorkProperty is a value arriving over a data chain.
	WorkProperty
	// WorkCallback is a timer expiry or a posted continuation.
	WorkCallback
)

func (t WorkType) String() string {
	switch t {
	case WorkEntry:
		return "entry"
	case WorkProperty:
		return "property"
	case WorkCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Work is one queued unit. A property propagation carries the path of
// property writes that queued it; every other item starts a fresh path.
type Work struct {
	Type     WorkType
	Seq      int64
	Path     *PropagationPath
	Node     *graph.Node
	Link     string
	From     *graph.Node
	FromLink string
	Value    ir.IRValue
	Upstream bool
	Fn       func()

	// Set once the item has held the engine at a breakpoint, so resuming
	// runs it instead of breaking again.
	released bool
}

// workQueue is the engine's FIFO activation queue.
//
// The queue is unbounded: an activation may fan out to any number of
// peers. It is safe for concurrent use so goroutines started by node
// threads can post continuations while the engine loop drains; the
// signal channel wakes the Run loop without polling.
type workQueue struct {
	mu     sync.Mutex
	items  []Work
	closed bool
	signal chan struct{}
}

func newWorkQueue() *workQueue {
	return &workQueue{
		items:  make([]Work, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends w. It returns false once the queue is closed.
func (q *workQueue) Enqueue(w Work) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, w)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Peek returns a copy of the front item without removing it.
func (q *workQueue) Peek() (Work, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Work{}, false
	}
	return q.items[0], true
}

// ReleaseFront marks the front item as having already held a breakpoint.
func (q *workQueue) ReleaseFront() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) > 0 {
		q.items[0].released = true
	}
}

// TryDequeue removes and returns the front item.
func (q *workQueue) TryDequeue() (Work, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Work{}, false
	}
	w := q.items[0]
	// Drop the slot's node and closure references.
	q.items[0] = Work{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return w, true
}

// Clear drops every queued item.
func (q *workQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.items)
	q.items = q.items[:0]
}

// Wait returns a channel that receives when work may be available.
func (q *workQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued items.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot copies the queued items in order.
func (q *workQueue) Snapshot() []Work {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Work, len(q.items))
	copy(out, q.items)
	return out
}

// Close stops further enqueues and wakes waiters.
func (q *workQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
