package engine

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

// Engine is the single authority over a graph's pending work.
//
// The engine owns the root script, the flat id index, the FIFO activation
// queue, the virtual timer set, and the debug state. Node code reaches it
// only through the graph.Host interface.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - everything else: must be called from the goroutine driving Update
//     or Run
//
// INVARIANTS:
//   - Work executes in the order it was queued, across all nodes
//   - A work item finishes its synchronous logic before the next begins
//   - Engine time moves only inside Update, and never while paused
type Engine struct {
	log      *slog.Logger
	reg      *graph.Registry
	library  []string
	root     *graph.Script
	nodes    map[int64]*graph.Node
	recorder Recorder
	runIDs   RunIDGenerator

	ids      *Clock
	workSeq  *Clock
	traceSeq *Clock

	queue  *workQueue
	posted atomic.Bool
	timers *timerSet

	globals []*global

	state       State
	debugging   bool
	silent      bool
	stepping    bool
	stepArmed   bool
	tickRate    time.Duration
	updateLimit int

	runID string
	tick  int64
	now   time.Duration
	path  *PropagationPath
	held  *graph.Node
}

const (
	// DefaultTickRate is the real-time interval between Run ticks.
	DefaultTickRate = time.Second / 30

	// DefaultUpdateLimit is the default maximum work items per tick.
	DefaultUpdateLimit = 100
)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTickRate sets the interval Run ticks at.
func WithTickRate(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.tickRate = d
		}
	}
}

// WithUpdateLimit sets the maximum number of work items drained per tick.
// Zero or less means unlimited.
func WithUpdateLimit(n int) EngineOption {
	return func(e *Engine) {
		e.updateLimit = n
	}
}

// WithDebugging arms node breakpoints.
func WithDebugging(on bool) EngineOption {
	return func(e *Engine) {
		e.debugging = on
	}
}

// WithSilent suppresses per-node debug logging.
func WithSilent(on bool) EngineOption {
	return func(e *Engine) {
		e.silent = on
	}
}

// WithRecorder sends every trace event to r.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRegistry replaces the node-type registry. The engine registers no
// types of its own beyond the composite built-ins every registry carries.
func WithRegistry(r *graph.Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.reg = r
		}
	}
}

// WithLibrary restricts decompilation to the named classes.
func WithLibrary(classNames []string) EngineOption {
	return func(e *Engine) {
		e.library = classNames
	}
}

// WithRunIDGenerator sets the generator naming each Start.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.runIDs = g
		}
	}
}

// New creates a stopped engine with an empty root script.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		log:         slog.Default(),
		reg:         graph.NewRegistry(),
		nodes:       make(map[int64]*graph.Node),
		runIDs:      UUIDv7Generator{},
		ids:         NewClock(),
		workSeq:     NewClock(),
		traceSeq:    NewClock(),
		queue:       newWorkQueue(),
		timers:      newTimerSet(),
		tickRate:    DefaultTickRate,
		updateLimit: DefaultUpdateLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.library != nil {
		e.reg.SetLibrary(e.library)
	}
	e.root = graph.NewScript(e)
	return e
}

// Root returns the top-level script.
func (e *Engine) Root() *graph.Script { return e.root }

// RegisterNodeType adds a node type to the engine's registry.
func (e *Engine) RegisterNodeType(typ graph.NodeType) error {
	return e.reg.Register(typ)
}

// Create instantiates a registered class in the root script.
func (e *Engine) Create(className string, opts ...graph.NodeOption) (*graph.Node, error) {
	return e.reg.Create(e.root, className, opts...)
}

// RunID returns the id of the current run, or "" before the first Start.
func (e *Engine) RunID() string { return e.runID }

// Tick returns the number of Update calls since Start.
func (e *Engine) Tick() int64 { return e.tick }

// Now returns the engine time elapsed since Start.
func (e *Engine) Now() time.Duration { return e.now }

// TickRate returns the interval Run ticks at.
func (e *Engine) TickRate() time.Duration { return e.tickRate }

// UpdateLimit returns the per-tick work limit.
func (e *Engine) UpdateLimit() int { return e.updateLimit }

// SetUpdateLimit changes the per-tick work limit.
func (e *Engine) SetUpdateLimit(n int) { e.updateLimit = n }

// Pending returns the number of queued work items.
func (e *Engine) Pending() int { return e.queue.Len() }

// Queue returns a copy of the queued work in execution order.
func (e *Engine) Queue() []Work { return e.queue.Snapshot() }

// Timers returns the number of live timers.
func (e *Engine) Timers() int { return e.timers.Len() }

// Idle reports whether nothing is queued and no timer is outstanding.
func (e *Engine) Idle() bool {
	return e.queue.Len() == 0 && e.timers.Len() == 0
}

// Held returns the node the engine is paused at, or nil.
func (e *Engine) Held() *graph.Node { return e.held }

// --- graph.Host ---

// NextID allocates a fresh node id.
func (e *Engine) NextID() int64 { return e.ids.Next() }

// ReserveID keeps future ids above id.
func (e *Engine) ReserveID(id int64) { e.ids.AtLeast(id) }

// Track adds n to the id index.
func (e *Engine) Track(n *graph.Node) { e.nodes[n.ID()] = n }

// Untrack removes n from the id index.
func (e *Engine) Untrack(n *graph.Node) {
	if e.nodes[n.ID()] == n {
		delete(e.nodes, n.ID())
	}
}

// NodeByID resolves an id anywhere in the graph in O(1).
func (e *Engine) NodeByID(id int64) *graph.Node { return e.nodes[id] }

// QueueEntryActivation appends an entry activation to the queue.
func (e *Engine) QueueEntryActivation(n *graph.Node, link string, from *graph.Node, fromLink string) {
	e.enqueue(Work{
		Type:     WorkEntry,
		Node:     n,
		Link:     link,
		From:     from,
		FromLink: fromLink,
	})
}

// QueuePropertyPropagation appends a data-chain value delivery to the
// queue.
func (e *Engine) QueuePropertyPropagation(n *graph.Node, prop string, value ir.IRValue, upstream bool) {
	e.enqueue(Work{
		Type:     WorkProperty,
		Node:     n,
		Link:     prop,
		Value:    value,
		Upstream: upstream,
	})
}

func (e *Engine) enqueue(w Work) {
	w.Seq = e.workSeq.Next()
	if w.Type == WorkProperty {
		w.Path = e.path
	}
	if !e.queue.Enqueue(w) {
		e.log.Warn("work dropped: engine closed", "type", w.Type.String(), "node", nodeLabel(w.Node))
	}
}

// After schedules fn on the virtual clock.
func (e *Engine) After(n *graph.Node, d time.Duration, fn func()) graph.Thread {
	return e.timers.add(n, d, fn)
}

// Post queues fn as a callback. Safe from any goroutine.
func (e *Engine) Post(n *graph.Node, fn func()) {
	w := Work{Type: WorkCallback, Node: n, Fn: fn}
	w.Seq = e.workSeq.Next()
	e.posted.Store(true)
	if !e.queue.Enqueue(w) {
		e.log.Warn("callback dropped: engine closed", "node", nodeLabel(n))
	}
}

// ExitActivated records an exit firing in the trace.
func (e *Engine) ExitActivated(n *graph.Node, link string) {
	e.emit(ir.TraceEvent{Kind: ir.TraceExit, Link: link}, n)
}

// Debugging reports whether breakpoints are armed.
func (e *Engine) Debugging() bool { return e.debugging }

// SetDebugging arms or disarms breakpoints.
func (e *Engine) SetDebugging(on bool) { e.debugging = on }

// Stepping reports whether a single step is executing.
func (e *Engine) Stepping() bool { return e.stepping }

// StepArmed reports whether the next Update will execute a single step.
func (e *Engine) StepArmed() bool { return e.stepArmed }

// Silent reports whether per-node debug logging is suppressed.
func (e *Engine) Silent() bool { return e.silent }

// SetSilent suppresses or restores per-node debug logging.
func (e *Engine) SetSilent(on bool) { e.silent = on }

// Registry returns the node-type registry.
func (e *Engine) Registry() *graph.Registry { return e.reg }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.log }

// Close stops accepting work. Run returns once the queue is closed.
func (e *Engine) Close() {
	e.queue.Close()
}

func nodeLabel(n *graph.Node) string {
	if n == nil {
		return ""
	}
	return n.String()
}

// emit stamps ev and hands it to the recorder.
func (e *Engine) emit(ev ir.TraceEvent, n *graph.Node) {
	if e.recorder == nil {
		return
	}
	ev.RunID = e.runID
	ev.Seq = e.traceSeq.Next()
	ev.Tick = e.tick
	if n != nil {
		ev.NodeID = n.ID()
		ev.ClassName = n.ClassName()
		ev.NodeName = n.Name()
	}
	if err := e.recorder.Record(ev); err != nil {
		e.log.Error("trace record failed",
			"kind", string(ev.Kind),
			"seq", ev.Seq,
			"error", err)
	}
}
