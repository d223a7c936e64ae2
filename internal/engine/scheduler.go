package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

// State is the engine's run state. Stepping is orthogonal: it is only
// allowed while Paused.
type State int

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// State returns the current run state.
func (e *Engine) State() State { return e.state }

// Start begins a new run.
//
// Queued work and timers from any previous run are dropped, globals and
// every node's properties return to their initial values (nested
// composites included), the engine moves to Running, and every node's
// start hook runs. A start entry queues its "out" activation here; it
// executes on the next Update.
func (e *Engine) Start() {
	if e.state != Stopped {
		e.halt()
	}
	e.queue.Clear()
	e.timers.reset()
	e.held = nil
	e.tick = 0
	e.now = 0
	e.traceSeq.Reset()
	e.runID = e.runIDs.Generate()
	e.resetGlobals()

	for _, n := range e.root.Nodes() {
		n.Reset()
	}
	e.state = Running
	e.log.Info("engine started", "run_id", e.runID, "nodes", len(e.nodes))
	e.emit(ir.TraceEvent{Kind: ir.TraceStart}, nil)

	e.root.Notify(func(n *graph.Node) { n.Start() })
}

// Stop ends the run: stop hooks run, every thread is cancelled, and
// queued work is dropped.
func (e *Engine) Stop() {
	if e.state == Stopped {
		return
	}
	e.halt()
	e.log.Info("engine stopped", "run_id", e.runID, "ticks", e.tick)
}

func (e *Engine) halt() {
	e.root.Notify(func(n *graph.Node) {
		n.Stop()
		n.ResetThreads()
	})
	e.queue.Clear()
	e.timers.reset()
	e.stepArmed = false
	if e.held != nil {
		e.held.ReleaseBroken()
		e.held = nil
	}
	e.state = Stopped
	e.emit(ir.TraceEvent{Kind: ir.TraceStop}, nil)
}

// Pause pauses or resumes the run. Pausing pauses every node's timer
// threads, so their remaining delay is kept; resuming releases a node
// held at a breakpoint. It is a no-op while stopped.
func (e *Engine) Pause(paused bool) {
	switch {
	case e.state == Stopped:
		return
	case paused && e.state == Running:
		e.state = Paused
		for _, n := range e.root.Nodes() {
			n.Pause(true)
		}
		e.emit(ir.TraceEvent{Kind: ir.TracePause}, e.held)
	case !paused && e.state == Paused:
		e.stepArmed = false
		e.releaseHeld()
		for _, n := range e.root.Nodes() {
			n.Pause(false)
		}
		e.state = Running
		e.emit(ir.TraceEvent{Kind: ir.TraceResume}, nil)
	}
}

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool { return e.state == Paused }

// Step executes exactly one queued item while paused, stepping past a
// breakpoint if the engine is held at one. It reports whether an item ran.
func (e *Engine) Step() (bool, error) {
	if e.state != Paused {
		return false, NewStateError("step", e.state)
	}
	e.releaseHeld()
	w, ok := e.queue.TryDequeue()
	if !ok {
		return false, nil
	}
	e.stepping = true
	e.execute(w)
	e.stepping = false
	return true, nil
}

// SetStepping arms or cancels a single step. While armed, the next Update
// executes one queued item through Step and the engine stays paused.
// Arming requires the engine to be paused; cancelling always succeeds.
func (e *Engine) SetStepping(on bool) error {
	if on && e.state != Paused {
		return NewStateError("step", e.state)
	}
	e.stepArmed = on
	return nil
}

func (e *Engine) releaseHeld() {
	if e.held != nil {
		e.held.ReleaseBroken()
		e.held = nil
	}
}

// Update advances the engine by one tick of elapsed engine time.
//
// While running, due timers fire in order and then the queue drains up to
// the update limit; leftover work waits for the next tick. While paused
// only the tick counter moves, unless a single step is armed.
func (e *Engine) Update(elapsed time.Duration) {
	if e.state == Stopped {
		return
	}
	e.tick++
	if e.state != Running {
		if e.stepArmed {
			e.stepArmed = false
			_, _ = e.Step()
		}
		return
	}
	if elapsed > 0 {
		e.now += elapsed
		e.timers.advance(elapsed, e.fire)
	}
	e.drain()
}

// Advance runs Update in steps of step until total engine time has
// passed. Useful for driving a graph on a virtual clock.
func (e *Engine) Advance(total, step time.Duration) {
	if step <= 0 {
		step = e.tickRate
	}
	for total > 0 && e.state != Stopped {
		d := min(step, total)
		e.Update(d)
		total -= d
	}
}

func (e *Engine) fire(t *timer) {
	if t.node != nil && t.node.Destroyed() {
		return
	}
	e.path = nil
	t.fn()
}

// drain executes queued work in FIFO order until the queue is empty, the
// update limit is hit, or a breakpoint pauses the engine.
func (e *Engine) drain() {
	quota := NewQuotaEnforcer(e.updateLimit)
	for e.state == Running {
		w, ok := e.queue.Peek()
		if !ok {
			break
		}
		if e.breakAt(w) {
			return
		}
		if err := quota.Check(e.tick); err != nil {
			rerr := NewQuotaError(e.runID, e.tick, quota.Current(), quota.MaxSteps())
			e.log.Debug("update limit reached, deferring work",
				"tick", e.tick,
				"pending", e.queue.Len(),
				"error", rerr)
			e.emit(ir.TraceEvent{Kind: ir.TraceQuota}, nil)
			return
		}
		e.queue.TryDequeue()
		e.execute(w)
	}
}

// breakAt holds the engine before w if w's node has an armed breakpoint.
// An item that already held the engine once runs on resume.
func (e *Engine) breakAt(w Work) bool {
	if w.released || w.Type == WorkCallback || w.Node == nil || !w.Node.DebugBreak() {
		return false
	}
	e.queue.ReleaseFront()
	w.Node.MarkBroken()
	e.held = w.Node
	e.log.Info("breakpoint hit", "node", w.Node.String(), "link", w.Link)
	e.emit(ir.TraceEvent{Kind: ir.TraceBreak, Link: w.Link}, w.Node)
	e.Pause(true)
	return true
}

// execute runs one work item. Failures are logged and recorded, never
// returned: one misbehaving item must not stall the queue.
func (e *Engine) execute(w Work) {
	e.path = nil
	defer func() { e.path = nil }()

	switch w.Type {
	case WorkEntry:
		e.executeEntry(w)
	case WorkProperty:
		e.executeProperty(w)
	case WorkCallback:
		if w.Node != nil && w.Node.Destroyed() {
			return
		}
		if w.Fn != nil {
			w.Fn()
		}
	default:
		e.log.Error("unknown work type", "type", int(w.Type), "seq", w.Seq)
	}
}

func (e *Engine) executeEntry(w Work) {
	n := w.Node
	if n == nil || n.Destroyed() {
		return
	}
	ev := ir.TraceEvent{Kind: ir.TraceEntry, Link: w.Link, FromLink: w.FromLink}
	if w.From != nil {
		ev.FromID = w.From.ID()
	}
	if !n.Enabled() {
		if !e.silent {
			e.log.Debug("skipping activation of disabled node", "node", n.String(), "link", w.Link)
		}
		ev.Kind = ir.TraceSkip
		e.emit(ev, n)
		return
	}
	e.emit(ev, n)
	n.Trigger(w.Link)
}

func (e *Engine) executeProperty(w Work) {
	n := w.Node
	if n == nil || n.Destroyed() {
		return
	}
	hash, err := ir.ValueHash(w.Value)
	if err != nil {
		hash = ir.String(w.Value)
	}
	key := propagationKey(n.ID(), w.Link, hash, w.Upstream)
	if w.Path.Contains(key) {
		rerr := NewCycleError(e.runID, n.ID(), w.Link, hash)
		e.log.Warn("dropping repeated property propagation", "error", rerr)
		e.emit(ir.TraceEvent{Kind: ir.TraceCycle, Link: w.Link, Value: ir.LP(w.Value), Upstream: w.Upstream}, n)
		return
	}
	e.path = w.Path.Extend(key)

	e.emit(ir.TraceEvent{Kind: ir.TraceProperty, Link: w.Link, Value: ir.LP(w.Value), Upstream: w.Upstream}, n)
	n.SetProperty(w.Link, w.Value, graph.PropagateDefault, w.Upstream)
}

// Run drives the engine in real time until ctx is cancelled or the engine
// is closed: every tick rate interval it calls Update with the wall time
// elapsed since the previous tick, and work posted from other goroutines
// is drained as soon as it arrives.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine loop starting", "tick_rate", e.tickRate.String())

	ticker := time.NewTicker(e.tickRate)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine loop stopping: context cancelled")
			return ctx.Err()

		case now := <-ticker.C:
			e.Update(now.Sub(last))
			last = now

		case _, ok := <-e.queue.Wait():
			if !ok {
				e.log.Info("engine loop stopping: engine closed")
				return nil
			}
			if e.posted.Swap(false) && e.state == Running {
				e.drain()
			}
		}
	}
}
