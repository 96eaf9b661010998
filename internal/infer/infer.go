// Package infer implements Inference (spec.md §4.5): it walks a method's
// CFG in backward-topological order, threading an Environment of
// per-local computed types and flow-sensitive knowledge through each
// block, filling in every Binding's ComputedType and reporting mismatches
// through the GlobalState's diagnostic queue.
//
// Grounded on original_source/infer/inference.cc's Inference::run (the
// backward-topo driver loop and its populateFrom/withCond/mergeWith
// sequencing at block entry) and environment.{h,cc} (the
// Environment/TestedKnowledge/KnowledgeFact shapes); error reporting goes
// through internal/diag rather than environment.cc's direct ctx.state
// calls, the same substitution internal/types.Universe already makes for
// dispatch errors.
package infer

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// Run types every reachable Binding in c, filling in ComputedType, and
// pushes any mismatch it finds to gs.Errors.
func Run(gs *gstate.GlobalState, u *types.Universe, c *cfg.CFG) {
	methodSym := c.Symbol
	ownerLoc := gs.Symbol(methodSym).Loc
	selfType := methodSelfType(gs, methodSym)
	filter := NewKnowledgeFilter(gs, c)

	envs := make(map[int]*Environment, len(c.BasicBlocks))
	visited := make(map[int]bool, len(c.BasicBlocks))

	for _, bb := range c.BackwardTopo {
		if bb.HasFlag(cfg.FlagDead) {
			continue
		}

		cur := newEnvironment(gs, ownerLoc)
		for _, a := range bb.Args {
			cur.state(a)
		}

		switch {
		case len(bb.BackEdges) == 1:
			parent := bb.BackEdges[0]
			taken := parent.Bexit.Thenb == bb
			seen := withCond(u, gs, envs[parent.ID], parent.Bexit.Cond, taken)
			populateFrom(cur, seen)

		default:
			cur.isDead = bb != c.Entry()
			var pinEnvs []*Environment
			for _, parent := range bb.BackEdges {
				if !visited[parent.ID] {
					continue
				}
				taken := parent.Bexit.Thenb == bb
				seen := withCond(u, gs, envs[parent.ID], parent.Bexit.Cond, taken)
				pinEnvs = append(pinEnvs, seen)
				if !seen.isDead {
					mergeWith(u, cur, seen, bb.OuterLoops, c.MaxLoopWrite)
				}
			}
			computePins(u, cur, pinEnvs, c.MinLoops, c.MaxLoopWrite, bb.OuterLoops)
		}

		visited[bb.ID] = true
		envs[bb.ID] = cur

		if cur.isDead {
			if len(bb.Exprs) > 0 && !isSyntheticFinalReturn(bb.Exprs) {
				report(gs, diag.InferDeadBranchInferencer, bb.Exprs[0].Loc, "this code is unreachable")
			}
			continue
		}

		for i := range bb.Exprs {
			bind := &bb.Exprs[i]
			bind.ComputedType = processBinding(gs, u, cur, methodSym, selfType, bind, bb.OuterLoops, c.MinLoops, c.MaxLoopWrite, filter)
			if cur.isDead {
				break
			}
		}
	}
}

// isSyntheticFinalReturn reports whether exprs is exactly the single
// Return CFGBuilder appends to every method's implicit fallthrough, so a
// dead block consisting only of it doesn't get flagged as unreachable code
// (spec.md §4.5.9).
func isSyntheticFinalReturn(exprs []cfg.Binding) bool {
	if len(exprs) != 1 {
		return false
	}
	_, ok := exprs[0].Value.(cfg.Return)
	return ok && exprs[0].Bind == ast.FinalReturnVar()
}

func methodSelfType(gs *gstate.GlobalState, methodSym gstate.Symbol) types.Type {
	return types.NewClass(gs.Symbol(methodSym).Owner)
}
