package nodes

import (
	"fmt"

	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

func exampleProperties() graph.NodeType {
	return graph.NodeType{
		ClassName:   ClassExampleProperties,
		DisplayName: "Example Properties",
		Category:    "Example",
		Kind:        graph.KindProcess,
		Color:       colorProcess,
		Description: "This node demonstrates an example of the different property types and how their values can be limited.",
		Init:        newExampleProperties,
	}
}

func newExampleProperties(n *graph.Node) graph.Behavior {
	// The flow links do nothing here.
	n.RemoveEntry("in")
	n.RemoveExit("out")

	n.CreateProperty("toggle", graph.Toggle, ir.IRBool(true), graph.Options{
		Description: "Demonstration of the toggle property type.",
	})
	n.CreateProperty("number", graph.Number, ir.IRInt(3), graph.Options{
		Description: "Demonstration of the number property type with a clamped range of 1-5.",
		Min:         graph.Int(1),
		Max:         graph.Int(5),
	})
	n.CreateProperty("string", graph.String, ir.IRString("Text"), graph.Options{
		Description: "Demonstration of the string property with a max character length of 10.",
		MaxLength:   10,
	})
	n.CreateProperty("select", graph.Select, ir.IRInt(3), graph.Options{
		Description: "Demonstration of the select property with a dynamic number of options based on the 'number' property.",
		ItemsFunc:   selectItems,
	})
	return nil
}

// selectItems offers "Option 1" through "Option N" where N is the current
// value of the number property.
func selectItems(n *graph.Node) []graph.Item {
	count, _ := ir.ParseInt(n.Property("number"))
	items := make([]graph.Item, 0, count)
	for i := int64(1); i <= count; i++ {
		items = append(items, graph.Item{Name: fmt.Sprintf("Option %d", i), Value: ir.IRInt(i)})
	}
	return items
}
