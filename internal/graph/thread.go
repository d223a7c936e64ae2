package graph

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Thread is an outstanding unit of asynchronous work owned by a node: a
// timer, an interval, an in-flight request, or a plain cancel func. A
// node is awake while it holds any thread.
type Thread interface {
	Pause()
	Resume()
	Cancel()
}

// OnCancel wraps a plain cancel func as a Thread that ignores pause.
func OnCancel(fn func()) Thread {
	return &cancelThread{fn: fn}
}

type cancelThread struct {
	fn func()
}

func (*cancelThread) Pause()    {}
func (*cancelThread) Resume()   {}
func (c *cancelThread) Cancel() { c.fn() }

// BeginThread registers t with the node and marks it awake. Threads are
// compared by identity, so t must be a pointer type.
func (n *Node) BeginThread(t Thread) Thread {
	n.threads = append(n.threads, t)
	n.meta.Flash = true
	n.meta.Awake = true
	return t
}

// FinishThread drops t without cancelling it. The node goes back to sleep
// once its last thread finishes.
func (n *Node) FinishThread(t Thread) {
	idx := slices.IndexFunc(n.threads, func(x Thread) bool { return x == t })
	if idx < 0 {
		return
	}
	n.threads = slices.Delete(n.threads, idx, idx+1)
	if len(n.threads) == 0 {
		n.meta.Awake = false
	}
}

// Threads returns the number of outstanding threads.
func (n *Node) Threads() int { return len(n.threads) }

// ResetThreads cancels every outstanding thread.
func (n *Node) ResetThreads() {
	threads := n.threads
	n.threads = nil
	for _, t := range threads {
		t.Cancel()
	}
	n.meta.Awake = false
}

// SetTimeout runs fn on the engine loop after d of engine time. The timer
// is a thread of the node: it pauses with the node and is cancelled by
// reset and destroy.
func (n *Node) SetTimeout(d time.Duration, fn func()) Thread {
	var t Thread
	t = n.host.After(n, d, func() {
		n.FinishThread(t)
		fn()
	})
	n.BeginThread(t)
	if n.meta.Paused {
		t.Pause()
	}
	return t
}

// SetInterval runs fn every d of engine time until the node's threads are
// reset.
func (n *Node) SetInterval(d time.Duration, fn func()) {
	var tick func()
	tick = func() {
		fn()
		if !n.destroyed {
			n.SetTimeout(d, tick)
		}
	}
	n.SetTimeout(d, tick)
}

// Go runs work on its own goroutine as a thread of the node. The
// continuation work returns is posted back to the engine loop, so it runs
// in queue order like any other activation. Cancelling the thread cancels
// ctx and drops the continuation.
func (n *Node) Go(work func(ctx context.Context) func()) Thread {
	ctx, cancel := context.WithCancel(context.Background())
	t := &request{cancel: cancel}
	n.BeginThread(t)

	go func() {
		cont := work(ctx)
		n.host.Post(n, func() {
			n.FinishThread(t)
			if t.cancelled() || cont == nil {
				return
			}
			cont()
		})
	}()
	return t
}

type request struct {
	mu     sync.Mutex
	done   bool
	cancel context.CancelFunc
}

func (r *request) Pause()  {}
func (r *request) Resume() {}

func (r *request) Cancel() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
	r.cancel()
}

func (r *request) cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}
