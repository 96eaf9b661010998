package toposet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/toposet"
)

func TestSortOrdersByEdges(t *testing.T) {
	a, b, c := gstate.Symbol(10), gstate.Symbol(11), gstate.Symbol(12)
	tp := toposet.New()
	tp.AddEdge(c, b) // c must come after b
	tp.AddEdge(b, a) // b must come after a
	tp.Sort()

	assert.False(t, tp.Cyclic())
	assert.Less(t, tp.Index(a), tp.Index(b))
	assert.Less(t, tp.Index(b), tp.Index(c))
}

func TestIsolatedNodeKeptWithoutEdges(t *testing.T) {
	a := gstate.Symbol(20)
	tp := toposet.New()
	tp.AddNode(a)
	tp.Sort()
	assert.Equal(t, 0, tp.Index(a))
}

func TestCycleDetected(t *testing.T) {
	a, b := gstate.Symbol(30), gstate.Symbol(31)
	tp := toposet.New()
	tp.AddEdge(a, b)
	tp.AddEdge(b, a)
	tp.Sort()
	assert.True(t, tp.Cyclic())
	assert.NotEmpty(t, tp.Cycles())
}
