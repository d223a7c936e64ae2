package testutil

import (
	"fmt"
	"sync"
)

// SequenceRunIDGenerator names runs prefix, prefix-2, prefix-3, ...
//
// Unlike engine.FixedGenerator it never runs out, so a scenario may start
// as many runs as it likes and still produce a stable trace.
type SequenceRunIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceRunIDGenerator returns a generator starting at prefix.
func NewSequenceRunIDGenerator(prefix string) *SequenceRunIDGenerator {
	return &SequenceRunIDGenerator{prefix: prefix}
}

// Generate returns the next run id.
func (g *SequenceRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n == 1 {
		return g.prefix
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
