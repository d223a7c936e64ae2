package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// journal collects activations across every test node in execution order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// relay records its activation and forwards to "out".
type relay struct {
	n *graph.Node
	j *journal
}

func (r *relay) OnActivated(string) {
	r.j.add(r.n.Name())
	r.n.ActivateExit("out")
}

// starter fires on start.
type starter struct {
	n *graph.Node
}

func (s *starter) OnStart() { s.n.Fire() }

// flip writes (in+1)%2 to out whenever in changes.
type flip struct {
	n *graph.Node
}

func (f *flip) OnPropertyChanged(name string, _, next ir.IRValue) {
	if name != "in" {
		return
	}
	v, _ := ir.ParseInt(next)
	f.n.SetProperty("out", ir.IRInt((v+1)%2), graph.PropagateDefault, false)
}

// pass copies in to out.
type pass struct {
	n *graph.Node
}

func (p *pass) OnPropertyChanged(name string, _, next ir.IRValue) {
	if name == "in" {
		p.n.SetProperty("out", next, graph.PropagateDefault, false)
	}
}

func inOut(n *graph.Node) {
	n.CreateProperty("in", graph.Number, ir.IRInt(-1), graph.Options{Input: true})
	n.CreateProperty("out", graph.Number, ir.IRInt(-1), graph.Options{Output: true})
}

func registerTestTypes(j *journal) func(*graph.Registry) error {
	return func(r *graph.Registry) error {
		types := []graph.NodeType{
			{
				ClassName:   "Relay",
				DisplayName: "Relay",
				Kind:        graph.KindProcess,
				Init:        func(n *graph.Node) graph.Behavior { return &relay{n: n, j: j} },
			},
			{
				ClassName:   "Begin",
				DisplayName: "Begin",
				Kind:        graph.KindEntry,
				Init:        func(n *graph.Node) graph.Behavior { return &starter{n: n} },
			},
			{
				ClassName:   "Flip",
				DisplayName: "Flip",
				Kind:        graph.KindProcess,
				Init: func(n *graph.Node) graph.Behavior {
					inOut(n)
					return &flip{n: n}
				},
			},
			{
				ClassName:   "Pass",
				DisplayName: "Pass",
				Kind:        graph.KindProcess,
				Init: func(n *graph.Node) graph.Behavior {
					inOut(n)
					return &pass{n: n}
				},
			},
			{
				ClassName:   "Cell",
				DisplayName: "Cell",
				Kind:        graph.KindStorage,
				Init: func(n *graph.Node) graph.Behavior {
					n.CreateProperty("value", graph.Dynamic, ir.IRNull{}, graph.Options{Input: true, Output: true})
					return nil
				},
			},
		}
		for _, typ := range types {
			if err := r.Register(typ); err != nil {
				return err
			}
		}
		return nil
	}
}

type testRig struct {
	e   *Engine
	rec *MemoryRecorder
	j   *journal
}

func newTestRig(t *testing.T, opts ...EngineOption) *testRig {
	t.Helper()
	r := &testRig{rec: NewMemoryRecorder(), j: &journal{}}
	opts = append([]EngineOption{
		WithRecorder(r.rec),
		WithLogger(discardLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-1", "run-2", "run-3", "run-4")),
	}, opts...)
	r.e = New(opts...)
	require.NoError(t, registerTestTypes(r.j)(r.e.Registry()))
	return r
}

func (r *testRig) node(t *testing.T, className, name string) *graph.Node {
	t.Helper()
	n, err := r.e.Create(className, graph.WithName(name))
	require.NoError(t, err)
	return n
}

// chain creates relays named after names, each wired out -> in to the next.
func (r *testRig) chain(t *testing.T, names ...string) []*graph.Node {
	t.Helper()
	var out []*graph.Node
	for i, name := range names {
		n := r.node(t, "Relay", name)
		if i > 0 {
			require.Equal(t, graph.Success, out[i-1].ConnectExit("out", n, "in"))
		}
		out = append(out, n)
	}
	return out
}

func kinds(events []ir.TraceEvent) []ir.TraceKind {
	out := make([]ir.TraceKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestEngine_FIFOAcrossNodes(t *testing.T) {
	r := newTestRig(t)
	nodes := r.chain(t, "A", "B", "D")
	c := r.node(t, "Relay", "C")
	require.Equal(t, graph.Success, nodes[0].ConnectExit("out", c, "in"))

	r.e.Start()
	nodes[0].ActivateEntry("in", nil, "")
	r.e.Update(0)

	// B was queued before C; D, queued by B, waits behind C.
	assert.Equal(t, []string{"A", "B", "C", "D"}, r.j.list())
	assert.Equal(t, 0, r.e.Pending())
}

func TestEngine_ActivationIsQueuedNotSynchronous(t *testing.T) {
	r := newTestRig(t)
	nodes := r.chain(t, "A", "B")

	r.e.Start()
	nodes[0].ActivateEntry("in", nil, "")
	assert.Empty(t, r.j.list(), "nothing runs until the engine updates")
	assert.Equal(t, 1, r.e.Pending())

	q := r.e.Queue()
	require.Len(t, q, 1)
	assert.Equal(t, WorkEntry, q[0].Type)
	assert.Equal(t, "in", q[0].Link)
	assert.Same(t, nodes[0], q[0].Node)
}

func TestEngine_StartEntryRunsOnFirstUpdate(t *testing.T) {
	r := newTestRig(t)
	begin := r.node(t, "Begin", "begin")
	a := r.node(t, "Relay", "A")
	begin.ConnectExit("out", a, "in")

	r.e.Start()
	assert.Equal(t, Running, r.e.State())
	assert.Empty(t, r.j.list())

	r.e.Update(0)
	assert.Equal(t, []string{"A"}, r.j.list())

	evs := r.rec.Events()
	require.NotEmpty(t, evs)
	assert.Equal(t, ir.TraceStart, evs[0].Kind)
	assert.Equal(t, "run-1", evs[0].RunID)
	for i := 1; i < len(evs); i++ {
		assert.Greater(t, evs[i].Seq, evs[i-1].Seq, "trace seq is strictly increasing")
	}
}

func TestEngine_StartResetsState(t *testing.T) {
	r := newTestRig(t)
	cell := r.node(t, "Cell", "cell")
	cell.SetInitialProperty("value", ir.IRInt(1), graph.PropagateDefault, false)
	require.True(t, r.e.CreateGlobal("score", ir.IRInt(0)))

	r.e.Start()
	cell.SetProperty("value", ir.IRInt(42), graph.PropagateDefault, false)
	r.e.SetGlobal("score", ir.IRInt(9))
	r.e.Update(10 * time.Millisecond)

	r.e.Start()
	assert.Equal(t, "run-2", r.e.RunID())
	assert.Equal(t, ir.IRInt(1), cell.Property("value"))
	v, ok := r.e.Global("score")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(0), v)
	assert.Equal(t, int64(0), r.e.Tick())
	assert.Equal(t, time.Duration(0), r.e.Now())
}

func TestEngine_Breakpoint(t *testing.T) {
	r := newTestRig(t, WithDebugging(true))
	nodes := r.chain(t, "A", "B", "C")
	nodes[1].SetBreakpoint(true)

	r.e.Start()
	nodes[0].ActivateEntry("in", nil, "")
	r.e.Update(0)

	assert.Equal(t, []string{"A"}, r.j.list(), "B's activation is held")
	assert.Equal(t, Paused, r.e.State())
	assert.Same(t, nodes[1], r.e.Held())
	assert.True(t, nodes[1].IsBroken())
	require.Len(t, r.rec.OfKind(ir.TraceBreak), 1)
	assert.Equal(t, nodes[1].ID(), r.rec.OfKind(ir.TraceBreak)[0].NodeID)

	r.e.Update(time.Second)
	assert.Equal(t, []string{"A"}, r.j.list(), "nothing runs while paused")
	assert.True(t, nodes[1].IsBroken(), "still held until resumed or stepped")

	r.e.Pause(false)
	assert.False(t, nodes[1].IsBroken())
	assert.Nil(t, r.e.Held())

	r.e.Update(0)
	assert.Equal(t, []string{"A", "B", "C"}, r.j.list(), "the held item runs once, without breaking again")
}

func TestEngine_BreakpointIgnoredWhenNotDebugging(t *testing.T) {
	r := newTestRig(t)
	nodes := r.chain(t, "A", "B")
	nodes[1].SetBreakpoint(true)

	r.e.Start()
	nodes[0].ActivateEntry("in", nil, "")
	r.e.Update(0)

	assert.Equal(t, []string{"A", "B"}, r.j.list())
	assert.Equal(t, Running, r.e.State())
}

func TestEngine_StepPastBreakpoint(t *testing.T) {
	r := newTestRig(t, WithDebugging(true))
	nodes := r.chain(t, "A", "B", "C")
	nodes[1].SetBreakpoint(true)

	r.e.Start()
	nodes[0].ActivateEntry("in", nil, "")
	r.e.Update(0)
	require.True(t, nodes[1].IsBroken())

	ran, err := r.e.Step()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, nodes[1].IsBroken())
	assert.Equal(t, []string{"A", "B"}, r.j.list())
	assert.Equal(t, Paused, r.e.State(), "stepping stays paused")

	ran, err = r.e.Step()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"A", "B", "C"}, r.j.list())

	ran, err = r.e.Step()
	require.NoError(t, err)
	assert.False(t, ran, "nothing left to step")
}

func TestEngine_SetSteppingRunsOneItemPerUpdate(t *testing.T) {
	r := newTestRig(t)
	nodes := r.chain(t, "A", "B", "C")

	r.e.Start()
	r.e.Pause(true)
	nodes[0].ActivateEntry("in", nil, "")

	r.e.Update(0)
	assert.Empty(t, r.j.list(), "paused without a step armed")

	require.NoError(t, r.e.SetStepping(true))
	assert.True(t, r.e.StepArmed())
	r.e.Update(0)
	assert.Equal(t, []string{"A"}, r.j.list())
	assert.False(t, r.e.StepArmed(), "a step is consumed by one update")
	assert.Equal(t, Paused, r.e.State())

	require.NoError(t, r.e.SetStepping(true))
	require.NoError(t, r.e.SetStepping(false))
	r.e.Update(0)
	assert.Equal(t, []string{"A"}, r.j.list(), "cancelled step does not run")

	r.e.Pause(false)
	err := r.e.SetStepping(true)
	assert.True(t, IsStateError(err))
	r.e.Update(0)
	assert.Equal(t, []string{"A", "B", "C"}, r.j.list())
}

func TestEngine_StepRequiresPause(t *testing.T) {
	r := newTestRig(t)

	_, err := r.e.Step()
	require.Error(t, err)
	assert.True(t, IsStateError(err))

	r.e.Start()
	_, err = r.e.Step()
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE: cannot step while running", err.Error())
}

func TestEngine_DisabledNodeSkipped(t *testing.T) {
	r := newTestRig(t)
	nodes := r.chain(t, "A", "B", "C")

	r.e.Start()
	nodes[1].SetEnabled(false)
	nodes[0].ActivateEntry("in", nil, "")
	r.e.Update(0)

	assert.Equal(t, []string{"A"}, r.j.list())
	skips := r.rec.OfKind(ir.TraceSkip)
	require.Len(t, skips, 1)
	assert.Equal(t, "B", skips[0].NodeName)
	assert.Equal(t, nodes[0].ID(), skips[0].FromID)
}

func TestEngine_UpdateLimitDefersWork(t *testing.T) {
	r := newTestRig(t, WithUpdateLimit(3))
	nodes := r.chain(t, "A", "B", "C", "D", "E")

	r.e.Start()
	nodes[0].ActivateEntry("in", nil, "")
	r.e.Update(0)

	assert.Equal(t, []string{"A", "B", "C"}, r.j.list())
	assert.Equal(t, 1, r.e.Pending())
	assert.Len(t, r.rec.OfKind(ir.TraceQuota), 1)

	r.e.Update(0)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, r.j.list())
	assert.Len(t, r.rec.OfKind(ir.TraceQuota), 1)
}

func TestEngine_UnlimitedUpdates(t *testing.T) {
	r := newTestRig(t, WithUpdateLimit(0))
	names := make([]string, 150)
	for i := range names {
		names[i] = string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	nodes := r.chain(t, names...)

	r.e.Start()
	nodes[0].ActivateEntry("in", nil, "")
	r.e.Update(0)

	assert.Len(t, r.j.list(), 150)
	assert.Empty(t, r.rec.OfKind(ir.TraceQuota))
}

func TestEngine_PropertyCycleDropped(t *testing.T) {
	r := newTestRig(t)
	x := r.node(t, "Flip", "x")
	y := r.node(t, "Pass", "y")
	require.Equal(t, graph.Success, x.ConnectOutput("out", y, "in"))
	require.Equal(t, graph.Success, y.ConnectOutput("out", x, "in"))

	r.e.Start()
	x.SetProperty("in", ir.IRInt(1), graph.PropagateDefault, false)
	r.e.Update(0)

	// y.in=0, x.in=0, y.in=1, x.in=1, then y.in=0 repeats on its own path.
	assert.Len(t, r.rec.OfKind(ir.TraceProperty), 4)
	cycles := r.rec.OfKind(ir.TraceCycle)
	require.Len(t, cycles, 1)
	assert.Equal(t, "y", cycles[0].NodeName)
	assert.Equal(t, "in", cycles[0].Link)
	assert.Equal(t, 0, r.e.Pending())
}

func TestEngine_SeparateWritesMayRepeatValues(t *testing.T) {
	r := newTestRig(t)
	a := r.node(t, "Cell", "a")
	b := r.node(t, "Cell", "b")
	a.ConnectOutput("value", b, "value")

	r.e.Start()
	a.SetProperty("value", ir.IRInt(1), graph.PropagateDefault, false)
	r.e.Update(0)
	b.SetProperty("value", ir.IRInt(0), graph.PropagateDefault, false)
	a.SetProperty("value", ir.IRInt(2), graph.PropagateDefault, false)
	a.SetProperty("value", ir.IRInt(1), graph.PropagateDefault, false)
	r.e.Update(0)

	assert.Empty(t, r.rec.OfKind(ir.TraceCycle))
	assert.Equal(t, ir.IRInt(1), b.Property("value"))
}

func TestEngine_PauseFreezesTime(t *testing.T) {
	r := newTestRig(t)
	a := r.node(t, "Relay", "A")
	fired := 0
	r.e.Start()
	a.SetTimeout(100*time.Millisecond, func() { fired++ })

	r.e.Update(60 * time.Millisecond)
	r.e.Pause(true)
	assert.True(t, a.Paused())
	r.e.Update(time.Second)
	assert.Equal(t, 0, fired)
	assert.Equal(t, 60*time.Millisecond, r.e.Now())

	r.e.Pause(false)
	r.e.Update(39 * time.Millisecond)
	assert.Equal(t, 0, fired)
	r.e.Update(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, int64(4), r.e.Tick())
}

func TestEngine_StopCancelsWork(t *testing.T) {
	r := newTestRig(t)
	nodes := r.chain(t, "A", "B")
	fired := false

	r.e.Start()
	nodes[0].ActivateEntry("in", nil, "")
	nodes[1].SetTimeout(time.Millisecond, func() { fired = true })
	r.e.Stop()

	assert.Equal(t, Stopped, r.e.State())
	assert.True(t, r.e.Idle())
	assert.Equal(t, 0, nodes[1].Threads())

	r.e.Update(time.Second)
	assert.False(t, fired)
	assert.Empty(t, r.j.list())
	assert.Equal(t, []ir.TraceKind{ir.TraceStart, ir.TraceStop}, kinds(r.rec.Events()))
}

func TestEngine_PostFromGoroutine(t *testing.T) {
	r := newTestRig(t, WithTickRate(5*time.Millisecond))
	a := r.node(t, "Relay", "A")
	b := r.node(t, "Relay", "B")
	a.ConnectExit("out", b, "in")
	r.e.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- r.e.Run(ctx) }()

	a.Go(func(ctx context.Context) func() {
		return func() { a.ActivateExit("out") }
	})

	require.Eventually(t, func() bool {
		return len(r.j.list()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"B"}, r.j.list())

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEngine_RunReturnsOnClose(t *testing.T) {
	r := newTestRig(t, WithTickRate(5*time.Millisecond))
	errc := make(chan error, 1)
	go func() { errc <- r.e.Run(context.Background()) }()

	r.e.Close()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestEngine_Globals(t *testing.T) {
	r := newTestRig(t)

	require.True(t, r.e.CreateGlobal("lives", ir.IRInt(3)))
	assert.False(t, r.e.CreateGlobal("lives", ir.IRInt(4)), "names are unique")
	assert.False(t, r.e.CreateGlobal("", ir.IRInt(4)))

	require.True(t, r.e.SetGlobalInitial("lives", ir.IRInt(5)))
	v, _ := r.e.Global("lives")
	assert.Equal(t, ir.IRInt(5), v, "an untouched live value follows the initial value")

	r.e.SetGlobal("lives", ir.IRInt(1))
	r.e.SetGlobalInitial("lives", ir.IRInt(7))
	v, _ = r.e.Global("lives")
	assert.Equal(t, ir.IRInt(1), v)

	assert.Equal(t, []ir.GlobalRecord{{Name: "lives", InitialValue: ir.L(ir.IRInt(7))}}, r.e.Globals())

	assert.True(t, r.e.RemoveGlobal("lives"))
	assert.False(t, r.e.RemoveGlobal("lives"))
	_, ok := r.e.Global("lives")
	assert.False(t, ok)
	assert.False(t, r.e.SetGlobal("lives", ir.IRInt(1)))
}

func TestEngine_SaveLoadRoundTrip(t *testing.T) {
	r := newTestRig(t)
	begin := r.node(t, "Begin", "begin")
	nodes := r.chain(t, "A", "B")
	begin.ConnectExit("out", nodes[0], "in")
	cell := r.node(t, "Cell", "cell")
	cell.SetInitialProperty("value", ir.IRString("hello"), graph.PropagateDefault, false)
	r.e.CreateGlobal("speed", ir.IRFloat(1.5))

	saved := r.e.Save()
	assert.Equal(t, ir.FormatVersion, saved.Version)
	require.Len(t, saved.Nodes, 4)

	other := newTestRig(t)
	require.Empty(t, other.e.Load(saved))
	assert.Equal(t, saved, other.e.Save())

	loaded := other.e.NodeByID(cell.ID())
	require.NotNil(t, loaded)
	assert.Equal(t, ir.IRString("hello"), loaded.Property("value"))

	other.e.Start()
	other.e.Update(0)
	assert.Equal(t, []string{"A", "B"}, other.j.list())
}

func TestEngine_LoadSkipsUnknownClasses(t *testing.T) {
	r := newTestRig(t)
	a := r.node(t, "Relay", "A")
	b := r.node(t, "Relay", "B")
	a.ConnectExit("out", b, "in")
	saved := r.e.Save()
	saved.Nodes[1].ClassName = "Missing"

	other := newTestRig(t)
	errs := other.e.Load(saved)
	require.Len(t, errs, 1)
	assert.Len(t, other.e.Root().Nodes(), 1)
	assert.Empty(t, other.e.Root().Nodes()[0].Exit("out").Peers)
}

func TestEngine_Clear(t *testing.T) {
	r := newTestRig(t)
	r.chain(t, "A", "B")
	r.e.CreateGlobal("g", ir.IRInt(1))
	r.e.Start()

	r.e.Clear()
	assert.Equal(t, Stopped, r.e.State())
	assert.Empty(t, r.e.Root().Nodes())
	assert.Empty(t, r.e.Globals())

	n := r.node(t, "Relay", "fresh")
	assert.Equal(t, int64(1), n.ID(), "ids start over")
}

func TestEngine_ReserveIDAfterLoad(t *testing.T) {
	r := newTestRig(t)
	rec := ir.GraphRecord{
		Version: ir.FormatVersion,
		Nodes: []ir.NodeRecord{
			{ID: 40, ClassName: "Relay", Name: "A"},
		},
	}
	require.Empty(t, r.e.Load(rec))
	n := r.node(t, "Relay", "B")
	assert.Greater(t, n.ID(), int64(40))
}

func TestReplay_Deterministic(t *testing.T) {
	j := &journal{}
	r := newTestRig(t)
	begin := r.node(t, "Begin", "begin")
	nodes := r.chain(t, "A", "B", "C")
	begin.ConnectExit("out", nodes[0], "in")
	extra := r.node(t, "Relay", "D")
	begin.ConnectExit("out", extra, "in")
	saved := r.e.Save()

	first, err := Replay(saved, registerTestTypes(j), "replay", time.Second, 100*time.Millisecond, WithLogger(discardLogger()))
	require.NoError(t, err)
	second, err := Replay(saved, registerTestTypes(j), "replay", time.Second, 100*time.Millisecond, WithLogger(discardLogger()))
	require.NoError(t, err)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, ir.TraceStart, first[0].Kind)
	assert.Equal(t, ir.TraceStop, first[len(first)-1].Kind)
	for _, ev := range first {
		assert.Equal(t, "replay", ev.RunID)
	}
}

func TestReplay_DecodeFailure(t *testing.T) {
	saved := ir.GraphRecord{
		Version: ir.FormatVersion,
		Nodes:   []ir.NodeRecord{{ID: 1, ClassName: "Nope"}},
	}
	_, err := Replay(saved, nil, "replay", time.Second, 0, WithLogger(discardLogger()))
	require.Error(t, err)

	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeDecodeFailed, rerr.Code)
}

func TestTimerSet_OrderAndTies(t *testing.T) {
	s := newTimerSet()
	var order []string
	s.add(nil, 30*time.Millisecond, func() { order = append(order, "c") })
	s.add(nil, 10*time.Millisecond, func() { order = append(order, "a") })
	s.add(nil, 10*time.Millisecond, func() { order = append(order, "b") })
	zero := s.add(nil, 0, func() { order = append(order, "zero") })
	assert.Equal(t, minDelay, zero.remaining)

	run := func(t *timer) { t.fn() }
	s.advance(10*time.Millisecond, run)
	assert.Equal(t, []string{"zero", "a", "b"}, order)
	assert.Equal(t, 1, s.Len())

	s.advance(20*time.Millisecond, run)
	assert.Equal(t, []string{"zero", "a", "b", "c"}, order)
	assert.Equal(t, 0, s.Len())
}

func TestTimerSet_PauseAndCancel(t *testing.T) {
	s := newTimerSet()
	fired := map[string]bool{}
	p := s.add(nil, 10*time.Millisecond, func() { fired["p"] = true })
	c := s.add(nil, 10*time.Millisecond, func() { fired["c"] = true })

	p.Pause()
	c.Cancel()
	c.Cancel()
	assert.Equal(t, 1, s.Len())

	run := func(t *timer) { t.fn() }
	s.advance(time.Second, run)
	assert.Empty(t, fired)

	p.Resume()
	s.advance(9*time.Millisecond, run)
	assert.False(t, fired["p"], "paused time did not count")
	s.advance(time.Millisecond, run)
	assert.True(t, fired["p"])
	assert.False(t, fired["c"])
}

func TestTimerSet_ChainedTimersCountFromFiring(t *testing.T) {
	s := newTimerSet()
	var at []time.Duration
	var elapsed time.Duration
	var tick func()
	tick = func() {
		at = append(at, elapsed)
		if len(at) < 5 {
			s.add(nil, 20*time.Millisecond, tick)
		}
	}
	s.add(nil, 20*time.Millisecond, tick)

	for i := 0; i < 10; i++ {
		elapsed += 10 * time.Millisecond
		s.advance(10*time.Millisecond, func(t *timer) { t.fn() })
	}
	assert.Len(t, at, 5)
}

func TestMultiRecorder(t *testing.T) {
	a, b := NewMemoryRecorder(), NewMemoryRecorder()
	m := MultiRecorder{a, b}
	require.NoError(t, m.Record(ir.TraceEvent{Kind: ir.TraceStart, Seq: 1}))
	require.NoError(t, m.Record(ir.TraceEvent{Kind: ir.TraceStop, Seq: 2}))

	assert.Equal(t, a.Events(), b.Events())
	assert.Len(t, a.OfKind(ir.TraceStop), 1)
	a.Reset()
	assert.Empty(t, a.Events())
}
