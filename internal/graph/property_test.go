package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeplay/internal/ir"
)

func TestSetProperty_NumberClamp(t *testing.T) {
	tests := []struct {
		name string
		in   ir.IRValue
		want ir.IRValue
	}{
		{"above max", ir.IRInt(100), ir.IRInt(5)},
		{"below min", ir.IRInt(-100), ir.IRInt(1)},
		{"not a number", ir.IRString("abc"), ir.IRInt(1)},
		{"numeric string", ir.IRString("4"), ir.IRInt(4)},
		{"leading digits", ir.IRString("2px"), ir.IRInt(2)},
		{"float truncates", ir.IRFloat(4.9), ir.IRInt(4)},
		{"huge float clamps to max", ir.IRFloat(1e20), ir.IRInt(5)},
		{"huge negative float clamps to min", ir.IRFloat(-1e20), ir.IRInt(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFakeHost()
			n := newNode(t, NewScript(h), "TestProcess", "n")

			require.True(t, n.SetProperty("value", tt.in, PropagateDefault, false))
			assert.Equal(t, tt.want, n.Property("value"))
		})
	}
}

func TestSetProperty_UnboundedNumberSaturates(t *testing.T) {
	h := newFakeHost()
	n := newNode(t, NewScript(h), "TestProcess", "n")
	n.CreateProperty("big", Number, ir.IRInt(0), Options{})

	require.True(t, n.SetProperty("big", ir.IRFloat(1e20), PropagateDefault, false))
	assert.Equal(t, ir.IRInt(math.MaxInt64), n.Property("big"), "keeps its sign")
	require.True(t, n.SetProperty("big", ir.IRFloat(-1e20), PropagateDefault, false))
	assert.Equal(t, ir.IRInt(math.MinInt64), n.Property("big"))
}

func TestSetProperty_StringTruncatesCharacters(t *testing.T) {
	h := newFakeHost()
	n := newNode(t, NewScript(h), "TestProcess", "n")

	n.SetProperty("text", ir.IRString("abcdefg"), PropagateDefault, false)
	assert.Equal(t, ir.IRString("abcd"), n.Property("text"))

	// "e" + combining acute composes to one character.
	n.SetProperty("text", ir.IRString("e\u0301xyzw"), PropagateDefault, false)
	assert.Equal(t, ir.IRString("\u00e9xyz"), n.Property("text"))

	n.SetProperty("text", ir.IRInt(12), PropagateDefault, false)
	assert.Equal(t, ir.IRString("12"), n.Property("text"))
}

func TestSetProperty_Toggle(t *testing.T) {
	h := newFakeHost()
	n := newNode(t, NewScript(h), "TestProcess", "n")

	for _, tt := range []struct {
		in   ir.IRValue
		want bool
	}{
		{ir.IRString(""), false},
		{ir.IRString("x"), true},
		{ir.IRInt(0), false},
		{ir.IRNull{}, false},
		{ir.IRInt(7), true},
	} {
		n.SetProperty(PropertyEnabled, tt.in, PropagateDefault, false)
		assert.Equal(t, ir.IRBool(tt.want), n.Property(PropertyEnabled), "input %v", tt.in)
	}
}

func TestSetProperty_Select(t *testing.T) {
	h := newFakeHost()
	n := newNode(t, NewScript(h), "TestStorage", "n")
	items := []Item{{Name: "one", Value: ir.IRInt(1)}, {Name: "two", Value: ir.IRInt(2)}}
	n.CreateProperty("choice", Select, ir.IRInt(1), Options{Items: items})

	n.SetProperty("choice", ir.IRString("2"), PropagateDefault, false)
	assert.Equal(t, ir.IRInt(2), n.Property("choice"), "matches loosely and stores the item value")

	n.SetProperty("choice", ir.IRInt(9), PropagateDefault, false)
	assert.Equal(t, ir.IRString(""), n.Property("choice"))

	n.SetPropertyOptions("choice", Options{Items: items, HasNone: true, NoneValue: ir.IRInt(0)})
	n.SetProperty("choice", ir.IRInt(9), PropagateDefault, false)
	assert.Equal(t, ir.IRInt(0), n.Property("choice"))
}

func TestSetProperty_SelectItemsFunc(t *testing.T) {
	h := newFakeHost()
	n := newNode(t, NewScript(h), "TestProcess", "n")
	n.CreateProperty("pick", Select, ir.IRInt(1), Options{ItemsFunc: func(n *Node) []Item {
		top, _ := ir.ParseInt(n.Property("value"))
		var out []Item
		for i := int64(1); i <= top; i++ {
			out = append(out, Item{Name: ir.String(ir.IRInt(i)), Value: ir.IRInt(i)})
		}
		return out
	}})

	n.SetProperty("pick", ir.IRInt(3), PropagateDefault, false)
	assert.Equal(t, ir.IRInt(3), n.Property("pick"))

	n.SetProperty("pick", ir.IRInt(4), PropagateDefault, false)
	assert.Equal(t, ir.IRString(""), n.Property("pick"), "4 is outside the items derived from value=3")
}

func TestSetProperty_QueuesOutputs(t *testing.T) {
	h := newFakeHost()
	root := NewScript(h)
	a := newNode(t, root, "TestProcess", "a")
	b := newNode(t, root, "TestProcess", "b")
	require.Equal(t, Success, a.ConnectOutput("value", b, "value"))
	h.queue = nil

	a.SetProperty("value", ir.IRInt(4), PropagateDefault, false)
	require.Len(t, h.queue, 1)
	assert.Equal(t, ir.IRInt(4), h.queue[0].value)
	assert.Equal(t, ir.IRInt(3), b.Property("value"), "the write reaches b only when the queue drains")

	h.drain(t)
	assert.Equal(t, ir.IRInt(4), b.Property("value"))

	t.Run("unchanged value is not propagated", func(t *testing.T) {
		a.SetProperty("value", ir.IRInt(4), PropagateDefault, false)
		assert.Empty(t, h.queue)
	})
	t.Run("force propagates unchanged value", func(t *testing.T) {
		a.SetProperty("value", ir.IRInt(4), PropagateForce, false)
		assert.Len(t, h.queue, 1)
		h.queue = nil
	})
	t.Run("silent commits without propagating", func(t *testing.T) {
		a.SetProperty("value", ir.IRInt(2), PropagateSilent, false)
		assert.Equal(t, ir.IRInt(2), a.Property("value"))
		assert.Empty(t, h.queue)
	})
	t.Run("upstream reaches inputs", func(t *testing.T) {
		b.SetProperty("value", ir.IRInt(5), PropagateDefault, true)
		require.Len(t, h.queue, 1)
		assert.Equal(t, "a.value", h.queuedNames()[0])
		assert.True(t, h.queue[0].upstream)
	})
}

func TestSetProperty_Hooks(t *testing.T) {
	h := newFakeHost()
	n := newNode(t, NewScript(h), "TestProcess", "n")

	n.SetProperty("value", ir.IRInt(4), PropagateDefault, false)
	n.SetProperty("value", ir.IRInt(4), PropagateDefault, false)
	assert.Equal(t, []string{"value=4"}, rec(n).changed)
	assert.False(t, n.SetProperty("missing", ir.IRInt(1), PropagateDefault, false))
}

type doubler struct{}

func (doubler) OnPropertyChanging(_ string, _, next ir.IRValue) ir.IRValue {
	v, _ := ir.ParseInt(next)
	return ir.IRInt(v * 2)
}

func TestSetProperty_ChangingHookReplacesValue(t *testing.T) {
	h := newFakeHost()
	h.reg.MustRegister(NodeType{ClassName: "Doubler", Kind: KindStorage, Init: func(n *Node) Behavior {
		n.CreateProperty("v", Number, ir.IRInt(0), Options{Max: Int(100)})
		return doubler{}
	}})
	n := newNode(t, NewScript(h), "Doubler", "d")

	n.SetProperty("v", ir.IRInt(21), PropagateDefault, false)
	assert.Equal(t, ir.IRInt(42), n.Property("v"))

	n.SetProperty("v", ir.IRInt(70), PropagateDefault, false)
	assert.Equal(t, ir.IRInt(100), n.Property("v"), "replacement is coerced again")
}

func TestSetInitialProperty_ResyncsValue(t *testing.T) {
	h := newFakeHost()
	n := newNode(t, NewScript(h), "TestProcess", "n")

	require.True(t, n.SetInitialProperty("value", ir.IRInt(4), PropagateDefault, false))
	assert.Equal(t, ir.IRInt(4), n.InitialProperty("value"))
	assert.Equal(t, ir.IRInt(4), n.Property("value"), "value equal to the old initial follows it")

	n.SetProperty("value", ir.IRInt(2), PropagateDefault, false)
	n.SetInitialProperty("value", ir.IRInt(5), PropagateDefault, false)
	assert.Equal(t, ir.IRInt(5), n.InitialProperty("value"))
	assert.Equal(t, ir.IRInt(2), n.Property("value"), "a diverged value is left alone")

	n.Reset()
	assert.Equal(t, ir.IRInt(5), n.Property("value"))
}

func TestSetInitialProperty_PropagatesSynchronously(t *testing.T) {
	h := newFakeHost()
	root := NewScript(h)
	a := newNode(t, root, "TestProcess", "a")
	b := newNode(t, root, "TestProcess", "b")
	c := newNode(t, root, "TestProcess", "c")
	a.ConnectOutput("value", b, "value")
	b.ConnectOutput("value", c, "value")
	// A cycle back to a must not recurse forever.
	c.ConnectOutput("value", a, "value")

	a.SetInitialProperty("value", ir.IRInt(5), PropagateDefault, false)

	assert.Equal(t, ir.IRInt(5), b.InitialProperty("value"))
	assert.Equal(t, ir.IRInt(5), c.InitialProperty("value"))
}

func TestConnectOutput_PushesValueAndInitial(t *testing.T) {
	h := newFakeHost()
	root := NewScript(h)
	a := newNode(t, root, "TestProcess", "a")
	b := newNode(t, root, "TestProcess", "b")
	a.SetInitialProperty("value", ir.IRInt(2), PropagateDefault, false)
	a.SetProperty("value", ir.IRInt(4), PropagateDefault, false)

	require.Equal(t, Success, b.ConnectInput("value", a, "value"))

	assert.Equal(t, ir.IRInt(2), b.InitialProperty("value"), "initial value is pushed synchronously")
	assert.Equal(t, []string{"b.value"}, h.queuedNames(), "live value is queued")
	h.drain(t)
	assert.Equal(t, ir.IRInt(4), b.Property("value"))
}

func TestRenameProperty_KeepsChains(t *testing.T) {
	h := newFakeHost()
	root := NewScript(h)
	a := newNode(t, root, "TestProcess", "a")
	b := newNode(t, root, "TestProcess", "b")
	a.ConnectOutput("value", b, "value")

	require.True(t, a.RenameProperty("value", "level"))
	assert.Nil(t, a.Prop("value"))
	assert.Equal(t, []Peer{{Node: b, Name: "value"}}, a.Prop("level").Outputs)
	assert.Equal(t, []Peer{{Node: a, Name: "level"}}, b.Prop("value").Inputs)

	require.True(t, a.RemoveProperty("level"))
	assert.Empty(t, b.Prop("value").Inputs)
}

func TestListProperties(t *testing.T) {
	h := newFakeHost()
	n := newNode(t, NewScript(h), "TestStorage", "n")
	n.CreateProperty("secret", String, ir.IRString("hunter2"), Options{
		ExportValue: func(ir.IRValue) ir.IRValue { return ir.IRString("") },
	})
	n.SetProperty("value", ir.IRString("live"), PropagateDefault, false)

	full := n.ListProperties(false)
	require.Len(t, full, 3)
	assert.Equal(t, PropertyEnabled, full[0].Name)
	assert.Equal(t, ir.IRString("live"), full[1].Value.Value)
	assert.Equal(t, ir.IRString(""), full[2].InitialValue.Value)

	for _, p := range n.ListProperties(true) {
		assert.Nil(t, p.Value, "minimal listing omits %s's live value", p.Name)
	}
}
