package graph

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeplay/internal/ir"
)

// work is one queued activation recorded by fakeHost.
type work struct {
	entry    bool
	node     *Node
	name     string
	value    ir.IRValue
	upstream bool
	from     *Node
}

// fakeHost records queued work instead of running it. drain executes the
// queue the way the engine does, minus breakpoints and quotas.
type fakeHost struct {
	next      int64
	nodes     map[int64]*Node
	queue     []work
	reg       *Registry
	timers    []*fakeTimer
	posted    chan func()
	exits     []string
	debugging bool
	stepping  bool
	log       *slog.Logger
}

func newFakeHost() *fakeHost {
	h := &fakeHost{
		nodes:  make(map[int64]*Node),
		reg:    NewRegistry(),
		posted: make(chan func(), 16),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	h.reg.MustRegister(testTypes()...)
	return h
}

func (h *fakeHost) NextID() int64 {
	h.next++
	return h.next
}

func (h *fakeHost) ReserveID(id int64) {
	if id > h.next {
		h.next = id
	}
}

func (h *fakeHost) Track(n *Node)   { h.nodes[n.ID()] = n }
func (h *fakeHost) Untrack(n *Node) { delete(h.nodes, n.ID()) }

func (h *fakeHost) NodeByID(id int64) *Node { return h.nodes[id] }

func (h *fakeHost) QueueEntryActivation(n *Node, link string, from *Node, _ string) {
	h.queue = append(h.queue, work{entry: true, node: n, name: link, from: from})
}

func (h *fakeHost) QueuePropertyPropagation(n *Node, prop string, value ir.IRValue, upstream bool) {
	h.queue = append(h.queue, work{node: n, name: prop, value: value, upstream: upstream})
}

func (h *fakeHost) After(_ *Node, d time.Duration, fn func()) Thread {
	t := &fakeTimer{remaining: d, fn: fn}
	h.timers = append(h.timers, t)
	return t
}

func (h *fakeHost) Post(_ *Node, fn func()) { h.posted <- fn }

func (h *fakeHost) ExitActivated(n *Node, link string) {
	h.exits = append(h.exits, n.Name()+"."+link)
}

func (h *fakeHost) Debugging() bool      { return h.debugging }
func (h *fakeHost) Stepping() bool       { return h.stepping }
func (h *fakeHost) Silent() bool         { return false }
func (h *fakeHost) Registry() *Registry  { return h.reg }
func (h *fakeHost) Logger() *slog.Logger { return h.log }

// drain runs queued work until the queue is empty.
func (h *fakeHost) drain(t *testing.T) {
	t.Helper()
	for steps := 0; len(h.queue) > 0; steps++ {
		require.Less(t, steps, 10000, "queue did not settle")
		w := h.queue[0]
		h.queue = h.queue[1:]
		if w.node.Destroyed() {
			continue
		}
		if w.entry {
			if w.node.Enabled() {
				w.node.Trigger(w.name)
			}
			continue
		}
		w.node.SetProperty(w.name, w.value, PropagateDefault, w.upstream)
	}
}

// advance moves virtual time forward and fires due timers in order.
func (h *fakeHost) advance(d time.Duration) {
	timers := h.timers
	h.timers = nil
	for _, t := range timers {
		if t.cancelled {
			continue
		}
		if t.paused {
			h.timers = append(h.timers, t)
			continue
		}
		t.remaining -= d
		if t.remaining > 0 {
			h.timers = append(h.timers, t)
			continue
		}
		t.fn()
	}
}

// nextPost waits for the next posted continuation and runs it.
func (h *fakeHost) nextPost(t *testing.T) {
	t.Helper()
	select {
	case fn := <-h.posted:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatal("no continuation posted")
	}
}

type fakeTimer struct {
	remaining time.Duration
	fn        func()
	paused    bool
	cancelled bool
}

func (t *fakeTimer) Pause()  { t.paused = true }
func (t *fakeTimer) Resume() { t.paused = false }
func (t *fakeTimer) Cancel() { t.cancelled = true }

// recorder is a behavior that records hook calls and forwards every entry
// activation to the "out" exit.
type recorder struct {
	n         *Node
	activated []string
	changed   []string
	connects  int
	destroyed bool
}

func (r *recorder) OnActivated(link string) {
	r.activated = append(r.activated, link)
	r.n.ActivateExit("out")
}

func (r *recorder) OnPropertyChanged(name string, _, next ir.IRValue) {
	r.changed = append(r.changed, name+"="+ir.String(next))
}

func (r *recorder) OnConnect(bool, string, LinkType, *Node, string, LinkType) { r.connects++ }

func (r *recorder) OnDestroying() { r.destroyed = true }

func testTypes() []NodeType {
	return []NodeType{
		{
			ClassName: "TestEntry",
			Kind:      KindEntry,
			Init:      func(n *Node) Behavior { return &recorder{n: n} },
		},
		{
			ClassName: "TestProcess",
			Kind:      KindProcess,
			Init: func(n *Node) Behavior {
				n.CreateProperty("value", Number, ir.IRInt(3), Options{Min: Int(1), Max: Int(5), Input: true, Output: true})
				n.CreateProperty("text", String, ir.IRString(""), Options{MaxLength: 4, Input: true, Output: true})
				return &recorder{n: n}
			},
		},
		{
			ClassName: "TestStorage",
			Kind:      KindStorage,
			Init: func(n *Node) Behavior {
				n.CreateProperty("value", Dynamic, ir.IRNull{}, Options{Input: true, Output: true})
				return &recorder{n: n}
			},
		},
	}
}

// newNode creates a registered test node in s.
func newNode(t *testing.T, s *Script, className, name string) *Node {
	t.Helper()
	n, err := s.Host().Registry().Create(s, className, WithName(name))
	require.NoError(t, err)
	return n
}

func rec(n *Node) *recorder { return n.Behavior().(*recorder) }

// queuedNames renders the queue as "node.link" strings.
func (h *fakeHost) queuedNames() []string {
	out := make([]string, 0, len(h.queue))
	for _, w := range h.queue {
		out = append(out, w.node.Name()+"."+w.name)
	}
	return out
}
