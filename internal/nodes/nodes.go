// Package nodes is the standard node library: start and remote entries,
// an interval entry, flow control, logging, arithmetic, string building,
// and storage nodes.
package nodes

import (
	"fmt"

	"github.com/roach88/nodeplay/internal/graph"
)

// Class names.
const (
	ClassStart             = "EntryStart"
	ClassRemote            = "EntryRemote"
	ClassUpdate            = "EntryUpdate"
	ClassCallRemote        = "EntryCallRemote"
	ClassDelay             = "ProcessDelay"
	ClassConsoleLog        = "ProcessConsoleLog"
	ClassOperation         = "ProcessOperation"
	ClassStrCat            = "ProcessStrCat"
	ClassNumber            = "StorageNumber"
	ClassToggle            = "StorageToggle"
	ClassString            = "StorageString"
	ClassExampleProperties = "ProcessExampleProperties"
)

// Display colors by kind.
const (
	colorEntry   = "#CCCC00"
	colorProcess = "#007ACC"
	colorStorage = "#009900"
)

// Types returns every node type in the library.
func Types() []graph.NodeType {
	var out []graph.NodeType
	out = append(out, entryTypes()...)
	out = append(out, processTypes()...)
	out = append(out, storageTypes()...)
	out = append(out, exampleProperties())
	return out
}

// Register adds the library to r.
func Register(r *graph.Registry) error {
	for _, t := range Types() {
		if err := r.Register(t); err != nil {
			return fmt.Errorf("register standard nodes: %w", err)
		}
	}
	return nil
}

// ClassNames lists the library's class names, for restricting a registry
// to it with SetLibrary.
func ClassNames() []string {
	types := Types()
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.ClassName)
	}
	return out
}
