package cfgbuilder

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// resolvedType reads a TypeExpr.Resolved value (opaque interface{}, set by
// Resolver, to avoid package types importing ast) back out as a types.Type,
// defaulting to Untyped if Resolver never filled it in.
func resolvedType(v interface{}) types.Type {
	if t, ok := v.(types.Type); ok {
		return t
	}
	return types.Untyped
}

// walk lowers n into blk, binding its value to target, and returns the block
// evaluation continues in (spec.md §4.4.1's translation table). A branch
// whose every arm jumps to dead returns b.c.Dead() so callers can detect
// "control never reaches here" and skip emitting a trailing binding.
func (b *builder) walk(blk *cfg.BasicBlock, n ast.Node, target ast.LocalVar) *cfg.BasicBlock {
	if blk == b.c.Dead() {
		return blk
	}
	switch v := n.(type) {
	case *ast.EmptyTree:
		b.bind(blk, v.Loc(), target, cfg.Literal{LKind: cfg.LiteralNil})
		return blk
	case *ast.NilLit:
		b.bind(blk, v.Loc(), target, cfg.Literal{LKind: cfg.LiteralNil})
		return blk
	case *ast.TrueLit:
		b.bind(blk, v.Loc(), target, cfg.Literal{LKind: cfg.LiteralTrue})
		return blk
	case *ast.FalseLit:
		b.bind(blk, v.Loc(), target, cfg.Literal{LKind: cfg.LiteralFalse})
		return blk
	case *ast.IntLit:
		b.bind(blk, v.Loc(), target, cfg.Literal{LKind: cfg.LiteralInt, Int: v.Value})
		return blk
	case *ast.FloatLit:
		b.bind(blk, v.Loc(), target, cfg.Literal{LKind: cfg.LiteralFloat, Float: v.Value})
		return blk
	case *ast.StringLit:
		b.bind(blk, v.Loc(), target, cfg.Literal{LKind: cfg.LiteralString, Name: v.Value})
		return blk
	case *ast.SymbolLit:
		b.bind(blk, v.Loc(), target, cfg.Literal{LKind: cfg.LiteralSymbol, Name: v.Value})
		return blk
	case *ast.LocalRef:
		b.bind(blk, v.Loc(), target, cfg.Ident{What: v.Var})
		return blk
	case *ast.SelfLit:
		b.bind(blk, v.Loc(), target, cfg.Self{Class: v.Class})
		return blk
	case *ast.ConstantLit:
		return b.walkSymbolRef(blk, v.Loc(), v.Symbol, target)
	case *ast.Assign:
		return b.walkAssign(blk, v, target)
	case *ast.InsSeq:
		return b.walkInsSeq(blk, v, target)
	case *ast.If:
		return b.walkIf(blk, v, target)
	case *ast.While:
		return b.walkWhile(blk, v, target)
	case *ast.Return:
		return b.walkReturn(blk, v)
	case *ast.Break:
		return b.walkBreak(blk, v)
	case *ast.Next:
		return b.walkNext(blk, v)
	case *ast.Retry:
		return b.walkRetry(blk, v)
	case *ast.Yield:
		return b.walkYield(blk, v, target)
	case *ast.Send:
		return b.walkSend(blk, v, target)
	case *ast.Rescue:
		return b.walkRescue(blk, v, target)
	case *ast.Array:
		return b.walkArray(blk, v, target)
	case *ast.Hash:
		return b.walkHash(blk, v, target)
	case *ast.Cast:
		return b.walkCast(blk, v, target)
	case *ast.ClassDef, *ast.MethodDef:
		b.report(diag.InternalError, n.Loc(), "nested class/method definition reached CFGBuilder unhoisted")
		b.bind(blk, n.Loc(), target, cfg.Unanalyzable{})
		return blk
	default:
		// Anything else (a leftover UnresolvedIdent/UnresolvedConstant, or
		// syntax CFGBuilder has no lowering for) is partial lowering (spec.md
		// §9 "Partial lowering on unsupported syntax").
		b.bind(blk, n.Loc(), target, cfg.Unanalyzable{})
		return blk
	}
}

// walkSymbolRef lowers a resolved symbol reference (constant, field, or
// global — Resolver/Namer fold all three into ConstantLit, see
// resolver_walk.go's walkIdent and namer_rewrite.go's nameIdent) to
// `bind target = Ident(globalToLocal(sym))`, recording a prefix Alias
// binding the first time this method touches sym (spec.md §4.4.1 "Ident
// (sym)").
func (b *builder) walkSymbolRef(blk *cfg.BasicBlock, loc gstate.Loc, sym gstate.Symbol, target ast.LocalVar) *cfg.BasicBlock {
	local, ok := b.global2Local[sym]
	if !ok {
		local = b.freshLocal(b.gs.Symbol(sym).Name)
		b.global2Local[sym] = local
		b.bind(blk, loc, local, cfg.Alias{What: sym})
	}
	b.bind(blk, loc, target, cfg.Ident{What: local})
	return blk
}

func (b *builder) walkAssign(blk *cfg.BasicBlock, n *ast.Assign, target ast.LocalVar) *cfg.BasicBlock {
	lhsLocal, lhsSym, isSym := b.assignTargetLocal(n.LHS)
	next := b.walk(blk, n.RHS, lhsLocal)
	if next == b.c.Dead() {
		return next
	}
	if isSym {
		// Writing through an alias also needs the RHS value visible to later
		// Ident(sym) reads in this method; global2Local already maps sym to
		// lhsLocal (assignTargetLocal reuses/creates the same alias slot a
		// walkSymbolRef read would).
		_ = lhsSym
	}
	b.bind(next, n.Loc(), target, cfg.Ident{What: lhsLocal})
	return next
}

// assignTargetLocal resolves n.LHS (a LocalRef or a ConstantLit standing for
// a field/global/constant) to the local the RHS should be walked into.
func (b *builder) assignTargetLocal(n ast.Node) (ast.LocalVar, gstate.Symbol, bool) {
	switch v := n.(type) {
	case *ast.LocalRef:
		return v.Var, gstate.NoSymbol, false
	case *ast.ConstantLit:
		local, ok := b.global2Local[v.Symbol]
		if !ok {
			local = b.freshLocal(b.gs.Symbol(v.Symbol).Name)
			b.global2Local[v.Symbol] = local
		}
		return local, v.Symbol, true
	default:
		return b.freshLocal(b.gs.InternUTF8("<badlhs>")), gstate.NoSymbol, false
	}
}

func (b *builder) walkInsSeq(blk *cfg.BasicBlock, n *ast.InsSeq, target ast.LocalVar) *cfg.BasicBlock {
	cur := blk
	for _, stat := range n.Stats {
		temp := b.freshLocal(b.gs.InternUTF8("<stat>"))
		cur = b.walk(cur, stat, temp)
		if cur == b.c.Dead() {
			return cur
		}
	}
	if n.Expr == nil {
		b.bind(cur, n.Loc(), target, cfg.Literal{LKind: cfg.LiteralNil})
		return cur
	}
	return b.walk(cur, n.Expr, target)
}

func (b *builder) walkIf(blk *cfg.BasicBlock, n *ast.If, target ast.LocalVar) *cfg.BasicBlock {
	condT := b.freshLocal(b.gs.InternUTF8("<ifCond>"))
	cur := b.walk(blk, n.Cond, condT)
	if cur == b.c.Dead() {
		return cur
	}

	thenBlock := b.c.FreshBlock(b.loopDepth, n.Loc())
	elseBlock := b.c.FreshBlock(b.loopDepth, n.Loc())
	b.jumpConditional(cur, condT, thenBlock, elseBlock, n.Loc())

	thenOut := b.walk(thenBlock, n.Then, target)
	elseOut := b.walk(elseBlock, n.Else, target)

	deadThen := thenOut == b.c.Dead()
	deadElse := elseOut == b.c.Dead()
	switch {
	case deadThen && deadElse:
		return b.c.Dead()
	case deadThen:
		return elseOut
	case deadElse:
		return thenOut
	default:
		join := b.c.FreshBlock(b.loopDepth, n.Loc())
		b.jumpUnconditional(thenOut, join, n.Loc())
		b.jumpUnconditional(elseOut, join, n.Loc())
		return join
	}
}

func (b *builder) walkWhile(blk *cfg.BasicBlock, n *ast.While, target ast.LocalVar) *cfg.BasicBlock {
	header := b.c.FreshBlock(b.loopDepth+1, n.Loc())
	continueBlock := b.c.FreshBlock(b.loopDepth, n.Loc())
	b.jumpUnconditional(blk, header, n.Loc())

	b.loopDepth++
	condT := b.freshLocal(b.gs.InternUTF8("<whileCond>"))
	condOut := b.walk(header, n.Cond, condT)
	bodyBlock := b.c.FreshBlock(b.loopDepth, n.Loc())
	if condOut != b.c.Dead() {
		b.jumpConditional(condOut, condT, bodyBlock, continueBlock, n.Loc())
	}

	b.pushScope(scope{next: header, brk: continueBlock, rescue: b.currentRescueScope()})
	bodyTarget := b.freshLocal(b.gs.InternUTF8("<whileBody>"))
	bodyOut := b.walk(bodyBlock, n.Body, bodyTarget)
	b.popScope()
	if bodyOut != b.c.Dead() {
		b.jumpUnconditional(bodyOut, header, n.Loc())
	}
	b.loopDepth--

	b.bind(continueBlock, n.Loc(), target, cfg.Literal{LKind: cfg.LiteralNil})
	return continueBlock
}

func (b *builder) currentRescueScope() *cfg.BasicBlock {
	if s, ok := b.currentScope(); ok {
		return s.rescue
	}
	return nil
}

func (b *builder) walkReturn(blk *cfg.BasicBlock, n *ast.Return) *cfg.BasicBlock {
	retT := b.freshLocal(b.gs.InternUTF8("<ret>"))
	cur := b.walk(blk, n.Expr, retT)
	if cur == b.c.Dead() {
		return cur
	}
	b.bind(cur, n.Loc(), ast.FinalReturnVar(), cfg.Return{What: retT})
	b.jumpToDead(cur)
	return b.c.Dead()
}

func (b *builder) walkBreak(blk *cfg.BasicBlock, n *ast.Break) *cfg.BasicBlock {
	brT := b.freshLocal(b.gs.InternUTF8("<break>"))
	cur := b.walk(blk, n.Expr, brT)
	if cur == b.c.Dead() {
		return cur
	}
	s, ok := b.currentScope()
	if !ok || s.brk == nil {
		b.report(diag.CFGNoBreakScope, n.Loc(), "no `do`/block/loop to `break` out of")
		b.jumpToDead(cur)
		return b.c.Dead()
	}
	if link := b.activeLink(); link != nil {
		b.bind(cur, n.Loc(), b.freshLocal(b.gs.InternUTF8("<discard>")), cfg.BlockReturn{Link: link, What: brT})
	}
	b.jumpUnconditional(cur, s.brk, n.Loc())
	return b.c.Dead()
}

func (b *builder) walkNext(blk *cfg.BasicBlock, n *ast.Next) *cfg.BasicBlock {
	nT := b.freshLocal(b.gs.InternUTF8("<next>"))
	cur := b.walk(blk, n.Expr, nT)
	if cur == b.c.Dead() {
		return cur
	}
	s, ok := b.currentScope()
	if !ok || s.next == nil {
		b.report(diag.CFGNoNextScope, n.Loc(), "no block/loop to `next` out of")
		b.jumpToDead(cur)
		return b.c.Dead()
	}
	if link := b.activeLink(); link != nil {
		b.bind(cur, n.Loc(), b.freshLocal(b.gs.InternUTF8("<discard>")), cfg.BlockReturn{Link: link, What: nT})
	}
	b.jumpUnconditional(cur, s.next, n.Loc())
	return b.c.Dead()
}

func (b *builder) walkRetry(blk *cfg.BasicBlock, n *ast.Retry) *cfg.BasicBlock {
	s, ok := b.currentScope()
	if !ok || s.rescue == nil {
		b.report(diag.CFGNoRescueScope, n.Loc(), "`retry` used outside of `rescue`")
		b.jumpToDead(blk)
		return b.c.Dead()
	}
	b.jumpUnconditional(blk, s.rescue, n.Loc())
	return b.c.Dead()
}

// walkYield lowers `yield(args)` as a Send of the method's own synthetic
// `<yield>` selector on self (no row for this in spec.md §4.4.1's table;
// builder_walk.cc's real handling threads it through the method's own
// BlockArgument instead of a Send, which this simplification forgoes —
// documented in DESIGN.md as a known gap since a bare control-flow lowering
// of `yield` has no direct spec.md-described shape to follow).
func (b *builder) walkYield(blk *cfg.BasicBlock, n *ast.Yield, target ast.LocalVar) *cfg.BasicBlock {
	recv := ast.LocalVar{Name: b.gs.InternUTF8("<self>")}
	cur := blk
	argTs := make([]ast.LocalVar, len(n.Args))
	for i, a := range n.Args {
		argTs[i] = b.freshLocal(b.gs.InternUTF8("<yieldArg>"))
		cur = b.walk(cur, a, argTs[i])
		if cur == b.c.Dead() {
			return cur
		}
	}
	b.bind(cur, n.Loc(), target, cfg.Send{Recv: recv, Fun: b.gs.InternUTF8("<yield>"), Args: argTs, Flags: ast.SendSelf})
	return cur
}

func (b *builder) walkArray(blk *cfg.BasicBlock, n *ast.Array, target ast.LocalVar) *cfg.BasicBlock {
	cur := blk
	elemTs := make([]ast.LocalVar, len(n.Elems))
	for i, e := range n.Elems {
		elemTs[i] = b.freshLocal(b.gs.InternUTF8("<elem>"))
		cur = b.walk(cur, e, elemTs[i])
		if cur == b.c.Dead() {
			return cur
		}
	}
	recv := b.magicLocal(cur, n.Loc())
	b.bind(cur, n.Loc(), target, cfg.Send{Recv: recv, Fun: b.gs.InternUTF8("buildArray"), Args: elemTs})
	return cur
}

func (b *builder) walkHash(blk *cfg.BasicBlock, n *ast.Hash, target ast.LocalVar) *cfg.BasicBlock {
	cur := blk
	pairTs := make([]ast.LocalVar, 0, len(n.Keys)*2)
	for i := range n.Keys {
		kT := b.freshLocal(b.gs.InternUTF8("<key>"))
		cur = b.walk(cur, n.Keys[i], kT)
		if cur == b.c.Dead() {
			return cur
		}
		vT := b.freshLocal(b.gs.InternUTF8("<val>"))
		cur = b.walk(cur, n.Values[i], vT)
		if cur == b.c.Dead() {
			return cur
		}
		pairTs = append(pairTs, kT, vT)
	}
	recv := b.magicLocal(cur, n.Loc())
	b.bind(cur, n.Loc(), target, cfg.Send{Recv: recv, Fun: b.gs.InternUTF8("buildHash"), Args: pairTs})
	return cur
}

// magicLocal returns the aliased local for gs.WellKnown.Magic, emitting its
// Alias binding the first time any literal in this method needs it.
func (b *builder) magicLocal(blk *cfg.BasicBlock, loc gstate.Loc) ast.LocalVar {
	local, ok := b.global2Local[b.gs.WellKnown.Magic]
	if !ok {
		local = b.freshLocal(b.gs.InternConstant("Magic"))
		b.global2Local[b.gs.WellKnown.Magic] = local
		b.bind(blk, loc, local, cfg.Alias{What: b.gs.WellKnown.Magic})
	}
	return local
}

func (b *builder) walkCast(blk *cfg.BasicBlock, n *ast.Cast, target ast.LocalVar) *cfg.BasicBlock {
	vT := b.freshLocal(b.gs.InternUTF8("<castVal>"))
	cur := b.walk(blk, n.Expr, vT)
	if cur == b.c.Dead() {
		return cur
	}
	b.bind(cur, n.Loc(), target, cfg.Cast{
		Value: vT,
		Type:  resolvedType(n.TypeExpr.Resolved),
		Kind:  n.CastKind,
		Must:  n.TypeExpr.Source == nil,
	})
	if n.CastKind == ast.CastLet {
		b.c.MinLoops[target] = cfg.MinLoopLet
	}
	return cur
}
