package nodes

import (
	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

func storageTypes() []graph.NodeType {
	return []graph.NodeType{
		storageType(ClassNumber, "Number", "Stores a number.", graph.Number, ir.IRInt(0)),
		storageType(ClassToggle, "Toggle", "Stores a boolean (on/off) value.", graph.Toggle, ir.IRBool(false)),
		storageType(ClassString, "String", "Stores a string.", graph.String, ir.IRString("")),
	}
}

// storageType builds a storage class holding a single two-way "value".
// Storage nodes have no flow links and no logic: writes arrive over data
// chains and leave the same way.
func storageType(className, display, desc string, typ graph.PropertyType, initial ir.IRValue) graph.NodeType {
	return graph.NodeType{
		ClassName:   className,
		DisplayName: display,
		Category:    "Data Storage",
		Kind:        graph.KindStorage,
		Color:       colorStorage,
		Description: desc,
		Init: func(n *graph.Node) graph.Behavior {
			n.CreateProperty("value", typ, initial, graph.Options{
				Description: "The current value.",
				Input:       true,
				Output:      true,
			})
			return nil
		},
	}
}
