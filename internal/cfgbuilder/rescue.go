package cfgbuilder

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/gstate"
)

// walkRescue lowers Rescue{body, cases, else, ensure} (spec.md §4.4.1):
// rescueStart branches on an Unanalyzable-valued local standing for "did the
// protected body raise", to bodyBlock or the handler chain; each RescueCase
// tests its exception classes against that same local via `is_a?`, routing
// a match to the case body and a non-match to the next handler (or dead, on
// the last handler); every surviving path (body/else, and each handled
// case) rejoins before Ensure runs.
func (b *builder) walkRescue(blk *cfg.BasicBlock, n *ast.Rescue, target ast.LocalVar) *cfg.BasicBlock {
	loc := n.Loc()
	rescueStart := b.c.FreshBlock(b.loopDepth, loc)
	b.jumpUnconditional(blk, rescueStart, loc)

	condVar := b.freshLocal(b.gs.InternUTF8("<rescueCond>"))
	b.bind(rescueStart, loc, condVar, cfg.Unanalyzable{})

	bodyBlock := b.c.FreshBlock(b.loopDepth, loc)
	handlersEntry := b.c.FreshBlock(b.loopDepth, loc)
	b.jumpConditional(rescueStart, condVar, bodyBlock, handlersEntry, loc)

	s, hasEnclosing := b.currentScope()
	next, brk := (*cfg.BasicBlock)(nil), (*cfg.BasicBlock)(nil)
	if hasEnclosing {
		next, brk = s.next, s.brk
	}
	b.pushScope(scope{next: next, brk: brk, rescue: rescueStart})
	bodyTarget := b.freshLocal(b.gs.InternUTF8("<rescueBody>"))
	bodyOut := b.walk(bodyBlock, n.Body, bodyTarget)
	b.popScope()

	type survivor struct {
		blk   *cfg.BasicBlock
		value ast.LocalVar
	}
	var survivors []survivor

	if bodyOut != b.c.Dead() {
		if n.ElseClause != nil {
			elseTarget := b.freshLocal(b.gs.InternUTF8("<rescueElse>"))
			elseOut := b.walk(bodyOut, n.ElseClause, elseTarget)
			if elseOut != b.c.Dead() {
				survivors = append(survivors, survivor{elseOut, elseTarget})
			}
		} else {
			survivors = append(survivors, survivor{bodyOut, bodyTarget})
		}
	}

	cur := handlersEntry
	for i, rc := range n.Cases {
		var nextHandler *cfg.BasicBlock
		if i == len(n.Cases)-1 {
			nextHandler = b.c.Dead()
		} else {
			nextHandler = b.c.FreshBlock(b.loopDepth, loc)
		}
		caseBody := b.c.FreshBlock(b.loopDepth, rc.Loc())
		cur = b.tryExceptions(cur, condVar, rc.Exceptions, caseBody, nextHandler, rc.Loc())

		if rc.Var != ast.NoVariable() {
			b.bind(caseBody, rc.Loc(), rc.Var, cfg.Ident{What: condVar})
		}
		caseTarget := b.freshLocal(b.gs.InternUTF8("<rescueCase>"))
		caseOut := b.walk(caseBody, rc.Body, caseTarget)
		if caseOut != b.c.Dead() {
			survivors = append(survivors, survivor{caseOut, caseTarget})
		}
		cur = nextHandler
	}
	if len(n.Cases) == 0 {
		b.jumpToDead(handlersEntry)
	}

	if len(survivors) == 0 {
		return b.c.Dead()
	}
	var ret *cfg.BasicBlock
	if len(survivors) == 1 {
		ret = survivors[0].blk
		b.bind(ret, loc, target, cfg.Ident{What: survivors[0].value})
	} else {
		ret = b.c.FreshBlock(b.loopDepth, loc)
		for _, sv := range survivors {
			b.bind(sv.blk, loc, target, cfg.Ident{What: sv.value})
			b.jumpUnconditional(sv.blk, ret, loc)
		}
	}

	if n.Ensure != nil {
		ensureTarget := b.freshLocal(b.gs.InternUTF8("<ensure>"))
		out := b.walk(ret, n.Ensure, ensureTarget)
		return out
	}
	return ret
}

// tryExceptions wires a chain testing condVar against each of excNodes (or
// the implicit StandardError when excNodes is empty, spec.md §4.1.12): a
// match jumps to caseBody, the final non-match falls through to nextHandler.
// Returns the block reached if every listed exception type fails to match
// (only relevant when excNodes is empty, since the loop otherwise ends at
// nextHandler itself).
func (b *builder) tryExceptions(cur *cfg.BasicBlock, condVar ast.LocalVar, excNodes []ast.Node, caseBody, nextHandler *cfg.BasicBlock, loc gstate.Loc) *cfg.BasicBlock {
	if len(excNodes) == 0 {
		excT := b.classLiteralLocal(cur, b.gs.WellKnown.StandardError, loc)
		testT := b.freshLocal(b.gs.InternUTF8("<isA>"))
		b.bind(cur, loc, testT, cfg.Send{Recv: condVar, Fun: b.gs.InternUTF8("is_a?"), Args: []ast.LocalVar{excT}})
		b.jumpConditional(cur, testT, caseBody, nextHandler, loc)
		return nextHandler
	}
	for i, excNode := range excNodes {
		excT := b.freshLocal(b.gs.InternUTF8("<excClass>"))
		next := b.walk(cur, excNode, excT)
		if next == b.c.Dead() {
			return nextHandler
		}
		falseTarget := nextHandler
		if i != len(excNodes)-1 {
			falseTarget = b.c.FreshBlock(b.loopDepth, loc)
		}
		testT := b.freshLocal(b.gs.InternUTF8("<isA>"))
		b.bind(next, loc, testT, cfg.Send{Recv: condVar, Fun: b.gs.InternUTF8("is_a?"), Args: []ast.LocalVar{excT}})
		b.jumpConditional(next, testT, caseBody, falseTarget, loc)
		cur = falseTarget
	}
	return nextHandler
}

// classLiteralLocal aliases sym (a class symbol) into a local the way a
// literal `ClassName` constant reference would, reusing the method-wide
// global2Local cache.
func (b *builder) classLiteralLocal(blk *cfg.BasicBlock, sym gstate.Symbol, loc gstate.Loc) ast.LocalVar {
	local, ok := b.global2Local[sym]
	if !ok {
		local = b.freshLocal(b.gs.Symbol(sym).Name)
		b.global2Local[sym] = local
		b.bind(blk, loc, local, cfg.Alias{What: sym})
	}
	return local
}
