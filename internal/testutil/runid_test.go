package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceRunIDGenerator(t *testing.T) {
	gen := NewSequenceRunIDGenerator("run")

	assert.Equal(t, "run", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Equal(t, "run-3", gen.Generate())
}

func TestSequenceRunIDGenerator_Independent(t *testing.T) {
	a := NewSequenceRunIDGenerator("a")
	b := NewSequenceRunIDGenerator("b")

	a.Generate()
	assert.Equal(t, "b", b.Generate())
	assert.Equal(t, "a-2", a.Generate())
}
