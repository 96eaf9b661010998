package desugar

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/parsetree"
)

// ---- Strings and symbols (spec.md §4.1.1) ----

// desugarDString folds an interpolated string/symbol's pieces by concat,
// coercing non-literal pieces through to_s. The reference implementation
// decides whether to wrap each piece in to_s by checking only whether the
// *first* piece is a plain string literal, not each piece individually; this
// is preserved here rather than fixed (SPEC_FULL Open Question).
func (d *state) desugarDString(n *parsetree.Node, loc gstate.Loc, isSymbol bool) ast.Node {
	pieces := n.Children
	if len(pieces) == 0 {
		return ast.NewStringLit(loc, d.gs.InternUTF8(""))
	}
	firstIsStrLit := pieces[0].K == parsetree.KindStr
	wrap := func(e ast.Node) ast.Node {
		if firstIsStrLit {
			return e
		}
		return ast.NewSend(loc, e, d.ident("to_s"), nil, 0, nil)
	}
	acc := wrap(d.expr(pieces[0]))
	for _, p := range pieces[1:] {
		piece := wrap(d.expr(p))
		acc = ast.NewSend(loc, acc, d.ident("concat"), []ast.Node{piece}, 0, nil)
	}
	if isSymbol {
		acc = ast.NewSend(loc, acc, d.ident("intern"), nil, 0, nil)
	}
	return acc
}

// ---- Constants (spec.md §4.1.6) ----

func (d *state) desugarConst(n *parsetree.Node, loc gstate.Loc) ast.Node {
	var scope ast.Node
	if n.Child(0) != nil {
		scope = d.expr(n.Child(0))
	}
	return ast.NewUnresolvedConstant(loc, scope, d.gs.InternConstant(n.Str))
}

// ---- Sequencing ----

func (d *state) desugarBegin(n *parsetree.Node, loc gstate.Loc) ast.Node {
	if len(n.Children) == 0 {
		return ast.NewEmptyTree(loc)
	}
	stats := make([]ast.Node, 0, len(n.Children)-1)
	for _, c := range n.Children[:len(n.Children)-1] {
		stats = append(stats, d.expr(c))
	}
	last := d.expr(n.Children[len(n.Children)-1])
	if len(stats) == 0 {
		return last
	}
	return ast.NewInsSeq(loc, stats, last)
}

// ---- Assignment targets (shared by plain assign, masgn, for) ----

// assignSimpleTarget builds the Assign (or nested destructure) that stores
// value into a single lvalue parse node: spec.md §4.1.5/§4.1.7.
func (d *state) assignSimpleTarget(target *parsetree.Node, loc gstate.Loc, value ast.Node) ast.Node {
	switch target.K {
	case parsetree.KindLVAsgn:
		return ast.NewAssign(loc, ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident(target.Str)), value)
	case parsetree.KindIVAsgn:
		return ast.NewAssign(loc, ast.NewUnresolvedIdent(loc, ast.IdentInstance, d.ident(target.Str)), value)
	case parsetree.KindCVAsgn:
		return ast.NewAssign(loc, ast.NewUnresolvedIdent(loc, ast.IdentClass, d.ident(target.Str)), value)
	case parsetree.KindGVAsgn:
		return ast.NewAssign(loc, ast.NewUnresolvedIdent(loc, ast.IdentGlobal, d.ident(target.Str)), value)
	case parsetree.KindCAsgn:
		d.report(diag.DesugarNoConstantReassign, loc, "Constants cannot be reassigned")
		return ast.NewEmptyTree(loc)
	case parsetree.KindMLHS:
		return d.assignDestructure(target, loc, value)
	case parsetree.KindSend:
		recv := d.expr(target.Child(0))
		args := make([]ast.Node, 0, len(target.Children))
		for _, a := range target.Children[1:] {
			args = append(args, d.expr(a))
		}
		args = append(args, value)
		return ast.NewSend(loc, recv, d.ident(target.Str+"="), args, 0, nil)
	default:
		d.report(diag.DesugarUnsupportedNode, loc, "unsupported assignment target: %s", target.K)
		return ast.NewEmptyTree(loc)
	}
}

func (d *state) desugarAssign(n *parsetree.Node, loc gstate.Loc, kind ast.IdentKind) ast.Node {
	rhs := d.expr(n.Child(0))
	lhs := ast.NewUnresolvedIdent(loc, kind, d.gs.InternUTF8(n.Str))
	return ast.NewAssign(loc, lhs, rhs)
}

func (d *state) desugarConstAssign(n *parsetree.Node, loc gstate.Loc) ast.Node {
	rhsIdx := len(n.Children) - 1
	var scope ast.Node
	if rhsIdx == 1 {
		scope = d.expr(n.Child(0))
	}
	rhs := d.expr(n.Child(rhsIdx))
	lhs := ast.NewUnresolvedConstant(loc, scope, d.gs.InternConstant(n.Str))
	return ast.NewAssign(loc, lhs, rhs)
}

// lowerAsgnTargetLocal reports whether target is a non-constant, non-send
// lvalue, returning the IdentKind/Name to build an UnresolvedIdent from.
func (d *state) lowerAsgnTargetLocal(target *parsetree.Node) (kind ast.IdentKind, name gstate.Name, ok bool) {
	switch target.K {
	case parsetree.KindLVAsgn:
		return ast.IdentLocal, d.ident(target.Str), true
	case parsetree.KindIVAsgn:
		return ast.IdentInstance, d.ident(target.Str), true
	case parsetree.KindCVAsgn:
		return ast.IdentClass, d.ident(target.Str), true
	case parsetree.KindGVAsgn:
		return ast.IdentGlobal, d.ident(target.Str), true
	default:
		return 0, gstate.NoName, false
	}
}

// desugarSendOpAsgn lowers `r.m(args) op= rhs` into a bind-then-call form
// per spec.md §4.1.5: evaluate receiver and arguments into temporaries once,
// call the getter, combine via makeNewVal, call the setter.
func (d *state) desugarSendOpAsgn(target *parsetree.Node, loc gstate.Loc, makeNewVal func(read ast.Node) ast.Node) ast.Node {
	recvVar := d.freshLocal(gstate.UniqueStatementTemp)
	stats := []ast.Node{ast.NewAssign(loc, ast.NewLocalRef(loc, recvVar), d.expr(target.Child(0)))}
	argRefs := make([]ast.Node, 0, len(target.Children)-1)
	for _, a := range target.Children[1:] {
		v := d.freshLocal(gstate.UniqueStatementTemp)
		stats = append(stats, ast.NewAssign(loc, ast.NewLocalRef(loc, v), d.expr(a)))
		argRefs = append(argRefs, ast.NewLocalRef(loc, v))
	}
	method := d.ident(target.Str)
	readExpr := ast.NewSend(loc, ast.NewLocalRef(loc, recvVar), method, argRefs, 0, nil)
	newVal := makeNewVal(readExpr)
	newValVar := d.freshLocal(gstate.UniqueStatementTemp)
	stats = append(stats, ast.NewAssign(loc, ast.NewLocalRef(loc, newValVar), newVal))
	writeArgs := append(append([]ast.Node{}, argRefs...), ast.NewLocalRef(loc, newValVar))
	writeCall := ast.NewSend(loc, ast.NewLocalRef(loc, recvVar), d.ident(target.Str+"="), writeArgs, 0, nil)
	return ast.NewInsSeq(loc, stats, writeCall)
}

func (d *state) desugarOpAsgn(n *parsetree.Node, loc gstate.Loc) ast.Node {
	target := n.Child(0)
	rhs := d.expr(n.Child(1))
	op := d.ident(n.Str)
	if target.K == parsetree.KindCAsgn {
		d.report(diag.DesugarNoConstantReassign, loc, "Constants cannot be reassigned")
		return ast.NewEmptyTree(loc)
	}
	if kind, name, ok := d.lowerAsgnTargetLocal(target); ok {
		lhs := ast.NewUnresolvedIdent(loc, kind, name)
		read := ast.NewUnresolvedIdent(loc, kind, name)
		newVal := ast.NewSend(loc, read, op, []ast.Node{rhs}, 0, nil)
		return ast.NewAssign(loc, lhs, newVal)
	}
	return d.desugarSendOpAsgn(target, loc, func(read ast.Node) ast.Node {
		return ast.NewSend(loc, read, op, []ast.Node{rhs}, 0, nil)
	})
}

// desugarSendOpAsgnShortCircuit lowers `r.m(args) &&= rhs` / `||= rhs`: unlike
// a plain op=, rhs must only be evaluated when the branch is taken.
func (d *state) desugarSendOpAsgnShortCircuit(target *parsetree.Node, loc gstate.Loc, rhs ast.Node, isAnd bool) ast.Node {
	recvVar := d.freshLocal(gstate.UniqueStatementTemp)
	stats := []ast.Node{ast.NewAssign(loc, ast.NewLocalRef(loc, recvVar), d.expr(target.Child(0)))}
	argRefs := make([]ast.Node, 0, len(target.Children)-1)
	for _, a := range target.Children[1:] {
		v := d.freshLocal(gstate.UniqueStatementTemp)
		stats = append(stats, ast.NewAssign(loc, ast.NewLocalRef(loc, v), d.expr(a)))
		argRefs = append(argRefs, ast.NewLocalRef(loc, v))
	}
	method := d.ident(target.Str)
	readVar := d.freshLocal(gstate.UniqueAndOrTemp)
	readExpr := ast.NewSend(loc, ast.NewLocalRef(loc, recvVar), method, argRefs, 0, nil)
	stats = append(stats, ast.NewAssign(loc, ast.NewLocalRef(loc, readVar), readExpr))

	writeArgs := append(append([]ast.Node{}, argRefs...), rhs)
	writeCall := ast.NewSend(loc, ast.NewLocalRef(loc, recvVar), d.ident(target.Str+"="), writeArgs, 0, nil)

	var branch ast.Node
	if isAnd {
		branch = ast.NewIf(loc, ast.NewLocalRef(loc, readVar), writeCall, ast.NewLocalRef(loc, readVar))
	} else {
		branch = ast.NewIf(loc, ast.NewLocalRef(loc, readVar), ast.NewLocalRef(loc, readVar), writeCall)
	}
	return ast.NewInsSeq(loc, stats, branch)
}

func (d *state) desugarAndOrAsgn(n *parsetree.Node, loc gstate.Loc, isAnd bool) ast.Node {
	target := n.Child(0)
	rhs := d.expr(n.Child(1))
	if target.K == parsetree.KindCAsgn {
		d.report(diag.DesugarNoConstantReassign, loc, "Constants cannot be reassigned")
		return ast.NewEmptyTree(loc)
	}
	if kind, name, ok := d.lowerAsgnTargetLocal(target); ok {
		cond := ast.NewUnresolvedIdent(loc, kind, name)
		assign := ast.NewAssign(loc, ast.NewUnresolvedIdent(loc, kind, name), rhs)
		result := ast.NewUnresolvedIdent(loc, kind, name)
		if isAnd {
			return ast.NewIf(loc, cond, assign, result)
		}
		return ast.NewIf(loc, cond, result, assign)
	}
	return d.desugarSendOpAsgnShortCircuit(target, loc, rhs, isAnd)
}

// ---- Multiple assignment (spec.md §4.1.7) ----

func (d *state) assignDestructure(mlhs *parsetree.Node, loc gstate.Loc, value ast.Node) ast.Node {
	targets := mlhs.Children
	splatIdx := -1
	for i, t := range targets {
		if t.K == parsetree.KindSplat {
			splatIdx = i
		}
	}
	nBefore, nAfter := len(targets), 0
	if splatIdx >= 0 {
		nBefore, nAfter = splatIdx, len(targets)-splatIdx-1
	}
	tmpVar := d.freshLocal(gstate.UniqueDestructureArg)
	expandCall := d.desugarMagicCall(loc, "expandSplat",
		[]ast.Node{value, ast.NewIntLit(loc, int64(nBefore)), ast.NewIntLit(loc, int64(nAfter))})
	stats := []ast.Node{ast.NewAssign(loc, ast.NewLocalRef(loc, tmpVar), expandCall)}

	for i, t := range targets {
		realTarget := t
		var v ast.Node
		switch {
		case splatIdx >= 0 && i == splatIdx:
			realTarget = t.Child(0)
			exclusiveEnd := nAfter > 0
			rangeNew := ast.NewSend(loc, d.constRef(loc, "Range"), d.ident("new"),
				[]ast.Node{
					ast.NewIntLit(loc, int64(i)),
					ast.NewIntLit(loc, int64(-(nAfter+1))),
					d.boolLit(loc, exclusiveEnd),
				}, 0, nil)
			v = ast.NewSend(loc, ast.NewLocalRef(loc, tmpVar), d.ident("slice"), []ast.Node{rangeNew}, 0, nil)
		case splatIdx >= 0 && i > splatIdx:
			v = ast.NewSend(loc, ast.NewLocalRef(loc, tmpVar), d.ident("[]"),
				[]ast.Node{ast.NewIntLit(loc, int64(i-len(targets)))}, 0, nil)
		default:
			v = ast.NewSend(loc, ast.NewLocalRef(loc, tmpVar), d.ident("[]"),
				[]ast.Node{ast.NewIntLit(loc, int64(i))}, 0, nil)
		}
		stats = append(stats, d.assignSimpleTarget(realTarget, loc, v))
	}
	return ast.NewInsSeq(loc, stats, ast.NewLocalRef(loc, tmpVar))
}

func (d *state) desugarMasgn(n *parsetree.Node, loc gstate.Loc) ast.Node {
	rhs := d.expr(n.Child(1))
	return d.assignDestructure(n.Child(0), loc, rhs)
}

// ---- Boolean connectives (spec.md §4.1.3/§4.1.4) ----

func (d *state) desugarAndOr(n *parsetree.Node, loc gstate.Loc, isAnd bool) ast.Node {
	a := d.expr(n.Child(0))
	b := d.expr(n.Child(1))
	if isReference(a) {
		if isAnd {
			return ast.NewIf(loc, a, b, a)
		}
		return ast.NewIf(loc, a, a, b)
	}
	tmp := d.freshLocal(gstate.UniqueAndOrTemp)
	assign := ast.NewAssign(loc, ast.NewLocalRef(loc, tmp), a)
	cond := ast.NewLocalRef(loc, tmp)
	var ifNode ast.Node
	if isAnd {
		ifNode = ast.NewIf(loc, cond, b, ast.NewLocalRef(loc, tmp))
	} else {
		ifNode = ast.NewIf(loc, cond, ast.NewLocalRef(loc, tmp), b)
	}
	return ast.NewInsSeq(loc, []ast.Node{assign}, ifNode)
}

// ---- Conditionals and loops (spec.md §4.1.8/§4.1.10) ----

func (d *state) desugarIf(n *parsetree.Node, loc gstate.Loc) ast.Node {
	cond := d.expr(n.Child(0))
	then := d.exprOrNil(n.Child(1), loc)
	els := d.exprOrNil(n.Child(2), loc)
	return ast.NewIf(loc, cond, then, els)
}

func (d *state) desugarWhile(n *parsetree.Node, loc gstate.Loc, condN, bodyN *parsetree.Node, negate bool) ast.Node {
	cond := d.expr(condN)
	if negate {
		cond = ast.NewSend(loc, cond, d.ident("!"), nil, 0, nil)
	}
	body := d.exprOrNil(bodyN, loc)
	return ast.NewWhile(loc, cond, body)
}

// desugarPostCondLoop lowers `begin ... end while/until cond`: the body runs
// at least once (spec.md §4.1.10), via `while true; t = body; break t if
// <exit>; end`.
func (d *state) desugarPostCondLoop(n *parsetree.Node, loc gstate.Loc, negate bool) ast.Node {
	cond := d.expr(n.Child(0))
	body := d.exprOrNil(n.Child(1), loc)
	tmp := d.freshLocal(gstate.UniqueStatementTemp)
	assign := ast.NewAssign(loc, ast.NewLocalRef(loc, tmp), body)
	var breakCond ast.Node
	if negate {
		breakCond = cond
	} else {
		breakCond = ast.NewSend(loc, cond, d.ident("!"), nil, 0, nil)
	}
	breakStmt := ast.NewIf(loc, breakCond, ast.NewBreak(loc, ast.NewLocalRef(loc, tmp)), ast.NewNilLit(loc))
	loopBody := ast.NewInsSeq(loc, []ast.Node{assign, breakStmt}, ast.NewNilLit(loc))
	return ast.NewWhile(loc, ast.NewTrueLit(loc), loopBody)
}

// desugarFor lowers `for x in e; body; end` to `e.each { |t| x = t; body }`
// (spec.md §4.1.9).
func (d *state) desugarFor(n *parsetree.Node, loc gstate.Loc) ast.Node {
	targetN := n.Child(0)
	iter := d.expr(n.Child(1))
	body := d.exprOrNil(n.Child(2), loc)

	tmp := d.freshLocal(gstate.UniqueBlockPassTemp)
	var assignTarget ast.Node
	if targetN.K == parsetree.KindMLHS {
		assignTarget = d.assignDestructure(targetN, loc, ast.NewLocalRef(loc, tmp))
	} else {
		assignTarget = d.assignSimpleTarget(targetN, loc, ast.NewLocalRef(loc, tmp))
	}
	blockBody := ast.NewInsSeq(loc, []ast.Node{assignTarget}, body)
	block := ast.NewBlock(loc, []ast.Node{ast.NewLocalRef(loc, tmp)}, blockBody)
	return ast.NewSend(loc, iter, d.ident("each"), nil, 0, block)
}

// desugarCase lowers `case scrutinee; when p1, p2; body; ...; else; end` to
// nested ifs, each `when` pattern tested with `===` (spec.md §4.1.11). With
// no scrutinee, each pattern is used directly as the condition.
func (d *state) desugarCase(n *parsetree.Node, loc gstate.Loc) ast.Node {
	hasScrutinee := n.Child(0) != nil
	var scrutinee ast.Node
	if hasScrutinee {
		scrutinee = d.expr(n.Child(0))
	}
	elseClause := n.Children[len(n.Children)-1]
	var result ast.Node
	if elseClause != nil {
		result = d.expr(elseClause)
	} else {
		result = ast.NewNilLit(loc)
	}

	whenNodes := n.Children[1 : len(n.Children)-1]
	for i := len(whenNodes) - 1; i >= 0; i-- {
		w := whenNodes[i]
		patterns := w.Children[:len(w.Children)-1]
		body := d.exprOrNil(w.Children[len(w.Children)-1], loc)

		var cond ast.Node
		for _, p := range patterns {
			pat := d.expr(p)
			var test ast.Node
			if hasScrutinee {
				test = ast.NewSend(loc, pat, d.ident("==="), []ast.Node{scrutinee}, 0, nil)
			} else {
				test = pat
			}
			if cond == nil {
				cond = test
				continue
			}
			condTmp := d.freshLocal(gstate.UniqueAndOrTemp)
			assign := ast.NewAssign(loc, ast.NewLocalRef(loc, condTmp), cond)
			orExpr := ast.NewIf(loc, ast.NewLocalRef(loc, condTmp), ast.NewLocalRef(loc, condTmp), test)
			cond = ast.NewInsSeq(loc, []ast.Node{assign}, orExpr)
		}
		result = ast.NewIf(loc, cond, body, result)
	}
	return result
}

// ---- Sends, splats, blocks (spec.md §4.1.1/§4.1.17) ----

type argPair struct {
	node  ast.Node
	splat bool
}

func (d *state) desugarArgPairs(argNodes []*parsetree.Node) (pairs []argPair, hasSplat bool) {
	for _, a := range argNodes {
		if a.K == parsetree.KindSplat {
			hasSplat = true
			pairs = append(pairs, argPair{node: d.expr(a.Child(0)), splat: true})
		} else {
			pairs = append(pairs, argPair{node: d.expr(a), splat: false})
		}
	}
	return pairs, hasSplat
}

// buildArgsArray folds argument pairs into a single array value, the same
// way an Array literal folds splat and plain elements (spec.md §4.1.15).
func (d *state) buildArgsArray(loc gstate.Loc, pairs []argPair) ast.Node {
	var inline []ast.Node
	var acc ast.Node
	flush := func() {
		if len(inline) == 0 {
			return
		}
		built := d.desugarMagicCall(loc, "buildArray", inline)
		if acc == nil {
			acc = built
		} else {
			acc = ast.NewSend(loc, acc, d.ident("concat"), []ast.Node{built}, 0, nil)
		}
		inline = nil
	}
	for _, p := range pairs {
		if p.splat {
			flush()
			toA := ast.NewSend(loc, p.node, d.ident("to_a"), nil, 0, nil)
			if acc == nil {
				acc = toA
			} else {
				acc = ast.NewSend(loc, acc, d.ident("concat"), []ast.Node{toA}, 0, nil)
			}
			continue
		}
		inline = append(inline, p.node)
	}
	flush()
	if acc == nil {
		acc = d.desugarMagicCall(loc, "buildArray", nil)
	}
	return acc
}

func (d *state) desugarSplatCall(loc gstate.Loc, recv ast.Node, method gstate.Name, pairs []argPair, block *ast.Block) ast.Node {
	arr := d.buildArgsArray(loc, pairs)
	args := []ast.Node{recv, ast.NewSymbolLit(loc, method), arr}
	return ast.NewSend(loc, d.magicRecv(loc), d.ident("callWithSplat"), args, 0, block)
}

// tUnsafeMarkerName is the constant name T.unsafe lowers its annotation to;
// internal/resolver's resolveTypeSyntax recognizes this exact spelling
// (its own untypedMarkerName) without a lexical lookup, since "$" can't
// start a real Ruby constant. Kept in sync by hand: desugar cannot import
// resolver (resolver already imports ast; desugar runs before any symbol
// table exists to look "$untyped" up against).
const tUnsafeMarkerName = "$untyped"

// tryDesugarTCast recognizes `T.let`/`T.cast`/`T.assert_type!`/`T.must`/
// `T.unsafe` sends on a bare `T` receiver and lowers them to ast.Cast
// (SPEC_FULL SUPPLEMENTED FEATURES #4). The type argument is desugared like
// any other expression; Resolver (not Desugar) turns its resulting syntax
// into a concrete type.
func (d *state) tryDesugarTCast(n *parsetree.Node, loc gstate.Loc) (ast.Node, bool) {
	recvN := n.Child(0)
	if recvN == nil || recvN.K != parsetree.KindConst || recvN.Str != "T" || recvN.Child(0) != nil {
		return nil, false
	}
	args := n.Children[1:]
	switch n.Str {
	case "let":
		if len(args) != 2 {
			return nil, false
		}
		return ast.NewCast(loc, d.expr(args[0]), ast.NewTypeExpr(loc, d.expr(args[1])), ast.CastLet), true
	case "cast":
		if len(args) != 2 {
			return nil, false
		}
		return ast.NewCast(loc, d.expr(args[0]), ast.NewTypeExpr(loc, d.expr(args[1])), ast.CastPlain), true
	case "assert_type!":
		if len(args) != 2 {
			return nil, false
		}
		return ast.NewCast(loc, d.expr(args[0]), ast.NewTypeExpr(loc, d.expr(args[1])), ast.CastAssertType), true
	case "must":
		// TypeExpr.Source left nil: Resolver resolves this to Untyped and
		// Infer special-cases the nil marker into "operand type minus NilClass".
		if len(args) != 1 {
			return nil, false
		}
		return ast.NewCast(loc, d.expr(args[0]), ast.NewTypeExpr(loc, nil), ast.CastPlain), true
	case "unsafe":
		if len(args) != 1 {
			return nil, false
		}
		marker := ast.NewUnresolvedConstant(loc, nil, d.gs.InternConstant(tUnsafeMarkerName))
		return ast.NewCast(loc, d.expr(args[0]), ast.NewTypeExpr(loc, marker), ast.CastPlain), true
	default:
		return nil, false
	}
}

// desugarSendNode lowers a `send`/`super`/`zsuper` parse node into a Send,
// folding a splat argument through Magic.callWithSplat (spec.md §4.1.1).
func (d *state) desugarSendNode(n *parsetree.Node, loc gstate.Loc, block *ast.Block) ast.Node {
	if n.K == parsetree.KindSend && block == nil {
		if cast, ok := d.tryDesugarTCast(n, loc); ok {
			return cast
		}
	}
	if n.K == parsetree.KindZSuper {
		return ast.NewSend(loc, ast.NewSelfLit(loc), d.ident("super"), []ast.Node{&ast.ZSuperArgs{}}, ast.SendSelf, block)
	}
	if n.K == parsetree.KindSuper {
		pairs, hasSplat := d.desugarArgPairs(n.Children)
		if hasSplat {
			return d.desugarSplatCall(loc, ast.NewSelfLit(loc), d.ident("super"), pairs, block)
		}
		args := make([]ast.Node, 0, len(pairs))
		for _, p := range pairs {
			args = append(args, p.node)
		}
		return ast.NewSend(loc, ast.NewSelfLit(loc), d.ident("super"), args, ast.SendSelf, block)
	}

	recvN := n.Child(0)
	var recv ast.Node
	flags := ast.SendFlags(0)
	if recvN == nil {
		recv = ast.NewSelfLit(loc)
		flags |= ast.SendSelf | ast.SendPrivateOK
	} else {
		recv = d.expr(recvN)
	}
	method := d.ident(n.Str)
	pairs, hasSplat := d.desugarArgPairs(n.Children[1:])
	if hasSplat {
		return d.desugarSplatCall(loc, recv, method, pairs, block)
	}
	args := make([]ast.Node, 0, len(pairs))
	for _, p := range pairs {
		args = append(args, p.node)
	}
	return ast.NewSend(loc, recv, method, args, flags, block)
}

// desugarCSend lowers `x&.foo(args)` to `t = x; if t.nil? then nil else
// t.foo(args) end` (spec.md §4.1.1, SPEC_FULL Open Question: safe-nav always
// checks `nil?`, even when the receiver is a bare reference that could be
// tested directly — kept as the reference implementation does it, one extra
// temp in the common case).
func (d *state) desugarCSend(n *parsetree.Node, loc gstate.Loc) ast.Node {
	tmp := d.freshLocal(gstate.UniqueStatementTemp)
	assign := ast.NewAssign(loc, ast.NewLocalRef(loc, tmp), d.expr(n.Child(0)))
	method := d.ident(n.Str)
	pairs, hasSplat := d.desugarArgPairs(n.Children[1:])
	var call ast.Node
	if hasSplat {
		call = d.desugarSplatCall(loc, ast.NewLocalRef(loc, tmp), method, pairs, nil)
	} else {
		args := make([]ast.Node, 0, len(pairs))
		for _, p := range pairs {
			args = append(args, p.node)
		}
		call = ast.NewSend(loc, ast.NewLocalRef(loc, tmp), method, args, 0, nil)
	}
	isNil := ast.NewSend(loc, ast.NewLocalRef(loc, tmp), d.ident("nil?"), nil, 0, nil)
	branch := ast.NewIf(loc, isNil, ast.NewNilLit(loc), call)
	return ast.NewInsSeq(loc, []ast.Node{assign}, branch)
}

// desugarBlockWrap attaches a block to the send/super it wraps (spec.md
// §4.1.1: a `block` parse node is the send plus its block, kept separate in
// the parser so a block can be attached to any callable form).
func (d *state) desugarBlockWrap(n *parsetree.Node, loc gstate.Loc) ast.Node {
	innerNode := n.Child(0)
	argsNode := n.Child(1)
	bodyNode := n.Child(2)

	var blockArgs []ast.Node
	if argsNode != nil {
		for _, a := range argsNode.Children {
			blockArgs = append(blockArgs, d.desugarArgSpec(a))
		}
	}
	blockBody := d.exprOrNil(bodyNode, loc)
	block := ast.NewBlock(loc, blockArgs, blockBody)

	if innerNode.K == parsetree.KindCSend {
		// `x&.foo { ... }`: lower the send/csend first, then thread the block
		// into the inner call by rebuilding with desugarSendNode's logic.
		tmp := d.freshLocal(gstate.UniqueStatementTemp)
		assign := ast.NewAssign(loc, ast.NewLocalRef(loc, tmp), d.expr(innerNode.Child(0)))
		method := d.ident(innerNode.Str)
		pairs, hasSplat := d.desugarArgPairs(innerNode.Children[1:])
		var call ast.Node
		if hasSplat {
			call = d.desugarSplatCall(loc, ast.NewLocalRef(loc, tmp), method, pairs, block)
		} else {
			args := make([]ast.Node, 0, len(pairs))
			for _, p := range pairs {
				args = append(args, p.node)
			}
			call = ast.NewSend(loc, ast.NewLocalRef(loc, tmp), method, args, 0, block)
		}
		isNil := ast.NewSend(loc, ast.NewLocalRef(loc, tmp), d.ident("nil?"), nil, 0, nil)
		branch := ast.NewIf(loc, isNil, ast.NewNilLit(loc), call)
		return ast.NewInsSeq(loc, []ast.Node{assign}, branch)
	}
	return d.desugarSendNode(innerNode, loc, block)
}

// desugarArgSpec lowers one formal-argument node in an `args` list, keeping
// the parser's wrapper shape as the corresponding ast wrapper (spec.md
// §3.3's RestArg/KeywordArg/OptionalArg/BlockArg/ShadowArg).
func (d *state) desugarArgSpec(a *parsetree.Node) ast.Node {
	loc := d.loc(a.Pos)
	switch a.K {
	case parsetree.KindArg:
		return ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident(a.Str))
	case parsetree.KindOptArg, parsetree.KindKwOptArg:
		inner := ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident(a.Str))
		def := d.exprOrNil(a.Child(0), loc)
		wrapped := ast.NewOptionalArg(loc, inner, def)
		if a.K == parsetree.KindKwOptArg {
			return ast.NewKeywordArg(loc, wrapped)
		}
		return wrapped
	case parsetree.KindRestArg:
		return ast.NewRestArg(loc, ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident(a.Str)))
	case parsetree.KindKwArg:
		return ast.NewKeywordArg(loc, ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident(a.Str)))
	case parsetree.KindKwRestArg:
		return ast.NewRestArg(loc, ast.NewKeywordArg(loc, ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident(a.Str))))
	case parsetree.KindBlockArg:
		return ast.NewBlockArg(loc, ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident(a.Str)))
	case parsetree.KindShadowArg:
		return ast.NewShadowArg(loc, ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident(a.Str)))
	case parsetree.KindMLHS:
		// destructuring block parameter `|(a, b)|`: represent as a shadow-free
		// plain arg named `$destructure`; the destructure itself is not
		// expanded, so only this one local is bound.
		return ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident("$destructure"))
	default:
		d.report(diag.DesugarUnsupportedNode, loc, "unsupported argument node: %s", a.K)
		return ast.NewUnresolvedIdent(loc, ast.IdentLocal, d.ident("$arg"))
	}
}

func (d *state) desugarYield(n *parsetree.Node, loc gstate.Loc) ast.Node {
	args := make([]ast.Node, 0, len(n.Children))
	for _, a := range n.Children {
		args = append(args, d.expr(a))
	}
	return ast.NewYield(loc, args)
}

// ---- Classes, modules, methods (spec.md §4.1.2) ----

func (d *state) desugarClass(n *parsetree.Node, loc gstate.Loc, kind ast.ClassKind) ast.Node {
	name := d.expr(n.Child(0))
	var ancestors []ast.Node
	if n.Child(1) != nil {
		ancestors = []ast.Node{d.expr(n.Child(1))}
	}
	body := n.Child(2)
	var rhs []ast.Node
	if body == nil {
		rhs = nil
	} else if seq, ok := d.expr(body).(*ast.InsSeq); ok {
		rhs = append(append([]ast.Node{}, seq.Stats...), seq.Expr)
	} else {
		rhs = []ast.Node{d.expr(body)}
	}
	return ast.NewClassDef(loc, name, ancestors, rhs, kind)
}

// desugarSClass handles `class << self; ...; end`; any other singleton
// target (`class << other_expr`) is rejected (spec.md §4.1.2).
func (d *state) desugarSClass(n *parsetree.Node, loc gstate.Loc) ast.Node {
	target := n.Child(0)
	if target.K != parsetree.KindSelf {
		d.report(diag.DesugarInvalidSingletonDef, loc, "`class << expr` is only supported for `class << self`")
		return ast.NewEmptyTree(loc)
	}
	body := n.Child(1)
	var rhs []ast.Node
	if body != nil {
		if seq, ok := d.expr(body).(*ast.InsSeq); ok {
			rhs = append(append([]ast.Node{}, seq.Stats...), seq.Expr)
		} else {
			rhs = []ast.Node{d.expr(body)}
		}
	}
	// Represented as a nameless singleton class attached under the current
	// scope; Namer recognizes a ClassKindSingleton body and enters its
	// methods onto the owner's singleton class (spec.md §4.2).
	return ast.NewClassDef(loc, ast.NewUnresolvedConstant(loc, nil, d.ident("<<self")), nil, rhs, ast.ClassKindSingleton)
}

// desugarDef handles both `def m; end` (self) and `def recv.m; end`
// (singleton). Only `def self.m` is supported for the latter; any other
// explicit receiver is rejected (spec.md §4.1.2).
func (d *state) desugarDef(n *parsetree.Node, loc gstate.Loc, isSingleton bool) ast.Node {
	var flags ast.MethodDefFlags
	nameIdx := 0
	if isSingleton {
		recv := n.Child(0)
		nameIdx = 1
		if recv.K != parsetree.KindSelf {
			d.report(diag.DesugarInvalidSingletonDef, loc, "method definitions are only supported on `self`")
			return ast.NewEmptyTree(loc)
		}
		flags |= ast.MethodSelf
	}
	argsNode := n.Child(nameIdx)
	bodyNode := n.Child(nameIdx + 1)
	var args []ast.Node
	if argsNode != nil {
		for _, a := range argsNode.Children {
			args = append(args, d.desugarArgSpec(a))
		}
	}
	body := d.exprOrNil(bodyNode, loc)
	return ast.NewMethodDef(loc, d.ident(n.Str), args, body, flags)
}

// ---- Exceptions (spec.md §4.1.12, SUPPLEMENTED FEATURES #1) ----

func (d *state) desugarRescue(n *parsetree.Node, loc gstate.Loc) ast.Node {
	body := d.exprOrNil(n.Child(0), loc)
	resbodies := n.Children[1 : len(n.Children)-1]
	elseNode := n.Children[len(n.Children)-1]

	cases := make([]*ast.RescueCase, 0, len(resbodies))
	for _, rb := range resbodies {
		excList := rb.Child(0)
		var exceptions []ast.Node
		if excList != nil {
			for _, e := range excList.Children {
				exceptions = append(exceptions, d.expr(e))
			}
		}
		// A bare `rescue` with no class list keeps an empty list here;
		// CFGBuilder's tryExceptions tests it against StandardError
		// (SUPPLEMENTED FEATURES #1).
		rbLoc := d.loc(rb.Pos)
		var v ast.LocalVar
		if varNode := rb.Child(1); varNode != nil {
			v = ast.LocalVar{Name: d.ident(varNode.Str), UniqueID: d.gs.FreshID()}
		}
		rbody := d.exprOrNil(rb.Child(2), loc)
		cases = append(cases, ast.NewRescueCase(rbLoc, exceptions, v, rbody))
	}
	var elseExpr ast.Node
	if elseNode != nil {
		elseExpr = d.expr(elseNode)
	}
	return ast.NewRescue(loc, body, cases, elseExpr, nil)
}

// desugarEnsure merges a trailing `ensure` clause into the enclosing Rescue,
// creating an empty one if the body carried none (spec.md §4.1.12).
func (d *state) desugarEnsure(n *parsetree.Node, loc gstate.Loc) ast.Node {
	body := d.expr(n.Child(0))
	ensure := d.exprOrNil(n.Child(1), loc)
	if r, ok := body.(*ast.Rescue); ok {
		r.Ensure = ensure
		return r
	}
	return ast.NewRescue(loc, body, nil, nil, ensure)
}

// ---- Collections (spec.md §4.1.15) ----

func (d *state) desugarArray(n *parsetree.Node, loc gstate.Loc) ast.Node {
	pairs, hasSplat := d.desugarArgPairs(n.Children)
	if !hasSplat {
		elems := make([]ast.Node, 0, len(pairs))
		for _, p := range pairs {
			elems = append(elems, p.node)
		}
		return ast.NewArray(loc, elems)
	}
	return d.buildArgsArray(loc, pairs)
}

func (d *state) desugarHash(n *parsetree.Node, loc gstate.Loc) ast.Node {
	var keys, values []ast.Node
	var acc ast.Node
	flushKV := func() {
		if len(keys) == 0 {
			return
		}
		built := d.desugarMagicCall(loc, "buildHash", append(append([]ast.Node{}, keys...), values...))
		if acc == nil {
			acc = built
		} else {
			acc = ast.NewSend(loc, acc, d.ident("merge"), []ast.Node{built}, 0, nil)
		}
		keys, values = nil, nil
	}
	for _, c := range n.Children {
		if c.K == parsetree.KindSplat {
			// `**other` double-splat: merge the hash in directly.
			flushKV()
			other := d.expr(c.Child(0))
			if acc == nil {
				acc = other
			} else {
				acc = ast.NewSend(loc, acc, d.ident("merge"), []ast.Node{other}, 0, nil)
			}
			continue
		}
		keys = append(keys, d.expr(c.Child(0)))
		values = append(values, d.expr(c.Child(1)))
	}
	flushKV()
	if acc == nil {
		acc = d.desugarMagicCall(loc, "buildHash", nil)
	}
	return acc
}

// ---- Regexp literals (spec.md §4.1.14) ----

// desugarRegexp lowers a (possibly interpolated) regexp literal to
// Magic.buildRegexp(source, flagsInt); encoding flags (u/n/e/s) are ignored,
// only behavioral flags (i/x/m) are kept (SPEC_FULL Open Question).
func (d *state) desugarRegexp(n *parsetree.Node, loc gstate.Loc) ast.Node {
	parts := n.Children[:len(n.Children)-1]
	var source ast.Node
	if len(parts) == 1 && parts[0].K == parsetree.KindStr {
		source = ast.NewStringLit(loc, d.gs.InternUTF8(parts[0].Str))
	} else {
		synthetic := &parsetree.Node{K: parsetree.KindDStr, Pos: n.Pos, Children: parts}
		source = d.desugarDString(synthetic, loc, false)
	}
	flags := int64(0)
	for _, f := range n.RegexpFlags {
		switch f {
		case 'i':
			flags |= 1
		case 'x':
			flags |= 2
		case 'm':
			flags |= 4
		}
	}
	return d.desugarMagicCall(loc, "buildRegexp", []ast.Node{source, ast.NewIntLit(loc, flags)})
}

// ---- Block pass (spec.md §4.1.17) ----

// desugarBlockPass lowers `&expr` to `expr.to_proc` wrapped as a BlockArg,
// except for the `&:sym` shorthand, which the parser already hands us as a
// plain symbol literal so `:sym.to_proc` covers both forms uniformly.
func (d *state) desugarBlockPass(n *parsetree.Node, loc gstate.Loc) ast.Node {
	inner := d.expr(n.Child(0))
	toProc := ast.NewSend(loc, inner, d.ident("to_proc"), nil, 0, nil)
	return ast.NewBlockArg(loc, toProc)
}
