package nodes

import (
	"time"

	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
)

func processTypes() []graph.NodeType {
	return []graph.NodeType{
		{
			ClassName:   ClassDelay,
			DisplayName: "Delay",
			Category:    "Flow Control",
			Kind:        graph.KindProcess,
			Color:       colorProcess,
			Description: "Waits for a specified amount of time before continuing the flow chain.",
			Init:        newDelay,
		},
		{
			ClassName:   ClassConsoleLog,
			DisplayName: "Console Log",
			Category:    "Debugging",
			Kind:        graph.KindProcess,
			Color:       colorProcess,
			Description: "Writes a message to the log.",
			Init:        newConsoleLog,
		},
		{
			ClassName:   ClassOperation,
			DisplayName: "Operation",
			Category:    "Data Manipulation",
			Kind:        graph.KindProcess,
			Color:       colorProcess,
			Description: "Performs a simple math operation on two values.",
			Init:        newOperation,
		},
		{
			ClassName:   ClassStrCat,
			DisplayName: "String Concatenation",
			Category:    "Data Manipulation",
			Kind:        graph.KindProcess,
			Color:       colorProcess,
			Description: "Concatenates two strings.",
			Init:        newStrCat,
		},
	}
}

type delay struct {
	n *graph.Node
}

func newDelay(n *graph.Node) graph.Behavior {
	n.CreateProperty("milliseconds", graph.Number, ir.IRInt(1000), graph.Options{
		Description: `The time delay, in milliseconds, to wait before firing the "out" Exit link.`,
		Input:       true,
	})
	return &delay{n: n}
}

func (d *delay) OnActivated(string) {
	ms, _ := ir.ParseInt(d.n.Property("milliseconds"))
	d.n.SetTimeout(time.Duration(ms)*time.Millisecond, func() {
		d.n.ActivateExit("out")
	})
}

type consoleLog struct {
	n *graph.Node
}

func newConsoleLog(n *graph.Node) graph.Behavior {
	n.CreateProperty("message", graph.String, ir.IRString("msg"), graph.Options{
		Description: "The message that will appear in the log.",
		Input:       true,
	})
	return &consoleLog{n: n}
}

func (c *consoleLog) OnActivated(string) {
	if !c.n.Host().Silent() {
		c.n.Logger().Info(ir.String(c.n.Property("message")))
	}
	c.n.ActivateExit("out")
}

// operation computes result from valueA and valueB; the entry link that
// fired picks the operator.
type operation struct {
	n *graph.Node
}

func newOperation(n *graph.Node) graph.Behavior {
	n.RemoveEntry("in")
	n.CreateEntry("add", "result = valueA + valueB")
	n.CreateEntry("sub", "result = valueA - valueB")
	n.CreateEntry("mul", "result = valueA * valueB")
	n.CreateEntry("div", "result = valueA / valueB")

	n.CreateProperty("valueA", graph.Number, ir.IRInt(0), graph.Options{Description: "Left hand value.", Input: true})
	n.CreateProperty("valueB", graph.Number, ir.IRInt(0), graph.Options{Description: "Right hand value.", Input: true})
	n.CreateProperty("result", graph.Number, ir.IRInt(0), graph.Options{Description: "The result of the operation.", Output: true})
	return &operation{n: n}
}

func (o *operation) OnActivated(link string) {
	a, _ := ir.ParseInt(o.n.Property("valueA"))
	b, _ := ir.ParseInt(o.n.Property("valueB"))

	var result int64
	switch link {
	case "add":
		result = a + b
	case "sub":
		result = a - b
	case "mul":
		result = a * b
	case "div":
		if b == 0 {
			o.n.Logger().Warn("division by zero", "valueA", a)
			break
		}
		result = a / b
	default:
		return
	}
	o.n.SetProperty("result", ir.IRInt(result), graph.PropagateDefault, false)
	o.n.ActivateExit("out")
}

type strCat struct {
	n *graph.Node
}

func newStrCat(n *graph.Node) graph.Behavior {
	n.CreateProperty("valueA", graph.String, ir.IRString(""), graph.Options{Description: "Left hand string.", Input: true})
	n.CreateProperty("valueB", graph.String, ir.IRString(""), graph.Options{Description: "Right hand string.", Input: true})
	n.CreateProperty("result", graph.String, ir.IRString(""), graph.Options{Description: "The concatenated result.", Output: true})
	return &strCat{n: n}
}

func (s *strCat) OnActivated(string) {
	result := ir.String(s.n.Property("valueA")) + ir.String(s.n.Property("valueB"))
	s.n.SetProperty("result", ir.IRString(result), graph.PropagateDefault, false)
	s.n.ActivateExit("out")
}
