package engine

import "fmt"

// PropagationPath is the chain of property writes a queued propagation
// arrived through, newest first.
//
// A write is identified by (node, property, value hash, direction). When
// a propagation's own key is already on its path, the value has gone
// around a loop without settling and the write is dropped.
//
// Example cycle:
//
//	select.value -> label.value (upstream) -> select.value
//	-> label.value ... <- CYCLE DETECTED on the second label write
//
// Paths start empty at every entry activation, timer and callback, so an
// acyclic flow chain may write the same value to the same property any
// number of times.
type PropagationPath struct {
	key    string
	parent *PropagationPath
	depth  int
}

// propagationKey identifies one property write.
func propagationKey(nodeID int64, prop, valueHash string, upstream bool) string {
	return fmt.Sprintf("%d:%s:%s:%t", nodeID, prop, valueHash, upstream)
}

// Contains reports whether key is on the path. A nil path is empty.
func (p *PropagationPath) Contains(key string) bool {
	for ; p != nil; p = p.parent {
		if p.key == key {
			return true
		}
	}
	return false
}

// Extend returns the path with key appended. p is not modified, so
// sibling propagations can share a prefix.
func (p *PropagationPath) Extend(key string) *PropagationPath {
	return &PropagationPath{key: key, parent: p, depth: p.Len() + 1}
}

// Len returns the number of writes on the path.
func (p *PropagationPath) Len() int {
	if p == nil {
		return 0
	}
	return p.depth
}
