package infer

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/gstate"
)

// KnowledgeFilter precomputes which locals ever need TestedKnowledge
// materialized: a local feeding a branch condition, a hard_assert argument,
// or reached from one of those through an Ident copy or a `!`/`==` send
// (spec.md §4.5.2). Environment still carries a knowledge slot for every
// local, but synthesizeKnowledge/propagateIdentKnowledge skip populating it when
// IsNeeded is false, the same pruning the filter exists to express.
type KnowledgeFilter struct {
	used map[ast.LocalVar]bool
}

// NewKnowledgeFilter walks c once to a fixpoint.
func NewKnowledgeFilter(gs *gstate.GlobalState, c *cfg.CFG) *KnowledgeFilter {
	used := map[ast.LocalVar]bool{}
	mark := func(v ast.LocalVar) {
		if !v.IsSentinel() {
			used[v] = true
		}
	}

	for _, bb := range c.BasicBlocks {
		if !bb.Bexit.Unconditional() {
			mark(bb.Bexit.Cond)
		}
	}
	for _, bb := range c.BasicBlocks {
		for _, e := range bb.Exprs {
			if s, ok := e.Value.(cfg.Send); ok && gs.Text(s.Fun) == "hard_assert" && len(s.Args) >= 1 {
				mark(s.Args[0])
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, bb := range c.BasicBlocks {
			for _, e := range bb.Exprs {
				if !used[e.Bind] {
					continue
				}
				switch v := e.Value.(type) {
				case cfg.Ident:
					if !used[v.What] {
						used[v.What] = true
						changed = true
					}
				case cfg.Send:
					name := gs.Text(v.Fun)
					if !((name == "!" && len(v.Args) == 0) || (name == "==" && len(v.Args) == 1)) {
						continue
					}
					if !used[v.Recv] {
						used[v.Recv] = true
						changed = true
					}
					for _, a := range v.Args {
						if !used[a] {
							used[a] = true
							changed = true
						}
					}
				}
			}
		}
	}

	return &KnowledgeFilter{used: used}
}

// IsNeeded reports whether v's TestedKnowledge is ever consulted.
func (k *KnowledgeFilter) IsNeeded(v ast.LocalVar) bool { return k.used[v] }
