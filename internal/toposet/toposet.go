// Package toposet computes a topological order over gstate.Symbol nodes,
// used by Resolver to fix an order for ancestor linearization (spec.md
// §4.3). CFG's own forward/backward block ordering (§4.4.2) does not reuse
// this package: a CFG's block graph legitimately contains cycles (loops),
// where toposet's Cyclic detection would be the wrong tool — CFGBuilder
// instead computes those orders with a direct DFS postorder, the same way
// spec.md §4.4.2 describes it.
//
// Grounded on grailbio-gql's columnsorter package, which performs the same
// add-edges-then-sort dance over symbol.ID to compute a column order;
// generalized here from symbol.ID to gstate.Symbol and extended with a
// Cyclic method, since a class-ancestor graph (unlike a table's columns)
// can legitimately contain a cycle that Resolver must detect and report
// rather than silently resolve (spec.md §9 "Cyclic class graphs").
//
// Legal call sequence: New, AddEdge*, Sort, then (Order|Index|Cyclic)*.
package toposet

import (
	"v.io/x/lib/toposort"

	"github.com/sorbetgo/checker/internal/gstate"
)

type edge struct{ from, to gstate.Symbol }

// T accumulates ordering constraints over a set of symbols and sorts them.
type T struct {
	sorter     toposort.Sorter
	edgesAdded map[edge]bool

	sorted  []gstate.Symbol
	index   map[gstate.Symbol]int
	cycles  [][]gstate.Symbol
}

// New creates an empty sorter.
func New() *T {
	return &T{edgesAdded: map[edge]bool{}}
}

// AddNode registers a symbol with no ordering constraint of its own, so it
// still appears in the sorted output even if it has no edges.
func (t *T) AddNode(s gstate.Symbol) {
	t.sorter.AddNode(s)
}

// AddEdge records that to must appear before from in the sorted output
// (e.g. "to" is a direct ancestor that must resolve before "from").
func (t *T) AddEdge(from, to gstate.Symbol) {
	e := edge{from, to}
	if t.edgesAdded[e] {
		return
	}
	t.edgesAdded[e] = true
	t.sorter.AddEdge(from, to)
}

// Sort computes the topological order. Any cycles found are recorded for
// Cyclic/Cycles rather than causing a panic: the caller reports them as
// diagnostics instead (spec.md §9).
func (t *T) Sort() {
	sorted, cycles := t.sorter.Sort()
	t.sorted = make([]gstate.Symbol, 0, len(sorted))
	for _, s := range sorted {
		t.sorted = append(t.sorted, s.(gstate.Symbol))
	}
	t.index = make(map[gstate.Symbol]int, len(t.sorted))
	for i, s := range t.sorted {
		t.index[s] = i
	}
	t.cycles = make([][]gstate.Symbol, 0, len(cycles))
	for _, c := range cycles {
		cyc := make([]gstate.Symbol, 0, len(c))
		for _, s := range c {
			cyc = append(cyc, s.(gstate.Symbol))
		}
		t.cycles = append(t.cycles, cyc)
	}
}

// Order returns the sorted symbols.
//
// REQUIRES: Sort has been called.
func (t *T) Order() []gstate.Symbol { return t.sorted }

// Index returns s's position in the sorted order, or -1 if s was never
// added.
//
// REQUIRES: Sort has been called.
func (t *T) Index(s gstate.Symbol) int {
	i, ok := t.index[s]
	if !ok {
		return -1
	}
	return i
}

// Cyclic reports whether Sort found any cycle among the added edges.
//
// REQUIRES: Sort has been called.
func (t *T) Cyclic() bool { return len(t.cycles) > 0 }

// Cycles returns every cycle Sort found, each as the loop of symbols
// forming it.
//
// REQUIRES: Sort has been called.
func (t *T) Cycles() [][]gstate.Symbol { return t.cycles }
