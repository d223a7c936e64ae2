package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name())
	}
	return out
}

func TestScript_NodesInCompileOrder(t *testing.T) {
	h := newFakeHost()
	root := NewScript(h)
	newNode(t, root, "TestProcess", "p1")
	newNode(t, root, "TestStorage", "s1")
	newNode(t, root, "TestEntry", "e1")
	newNode(t, root, ClassCompositeScript, "c1")
	newNode(t, root, "TestProcess", "p2")

	assert.Equal(t, []string{"c1", "e1", "s1", "p1", "p2"}, names(root.Nodes()))
	assert.Equal(t, 5, root.Len())
	assert.Equal(t, []string{"p1", "p2"}, names(root.NodesOfKind(KindProcess)))
}

func TestScript_NotifyOrder(t *testing.T) {
	h := newFakeHost()
	root := NewScript(h)
	newNode(t, root, "TestEntry", "e1")
	box := newNode(t, root, ClassCompositeScript, "c1")
	newNode(t, root, "TestProcess", "p1")
	newNode(t, root, "TestStorage", "s1")
	newNode(t, box.Composite().Script(), "TestProcess", "inner")

	var got []string
	root.Notify(func(n *Node) { got = append(got, n.Name()) })

	assert.Equal(t, []string{"s1", "p1", "e1", "c1", "inner"}, got)
}

func TestScript_Search(t *testing.T) {
	h := newFakeHost()
	root := NewScript(h)
	box := newNode(t, root, ClassCompositeScript, "Group")
	newNode(t, root, "TestProcess", "Adder")
	newNode(t, box.Composite().Script(), "TestProcess", "nested adder")

	// Nested nodes follow their composite, which sorts before process nodes.
	assert.Equal(t, []string{"nested adder", "Adder"}, names(root.NodesByClassName("TestProcess")))
	assert.Equal(t, []string{"nested adder", "Adder"}, names(root.NodesBySearch("ADDER")))
	assert.Equal(t, []string{"Group"}, names(root.NodesBySearch("composite")), "matches the display name too")

	var walked int
	root.Walk(func(*Node) bool {
		walked++
		return walked < 2
	})
	assert.Equal(t, 2, walked, "walk stops when fn returns false")
}
