package infer

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// report pushes an error against loc's owning file, at that file's
// configured strictness (mirrors types.Universe.report).
func report(gs *gstate.GlobalState, code diag.Code, loc gstate.Loc, format string, args ...interface{}) {
	level := diag.Strong
	if loc.File != gstate.NoFile {
		level = gs.File(loc.File).Strictness
	}
	gs.Errors.Push(level, diag.New(code, gs.RenderLoc(loc), format, args...))
}

// processBinding computes bind's instruction type (spec.md §4.5.4's
// per-instruction table) and then threads the post-binding environment
// update: a fresh write assigns and refreshes knowledge; a pinned local
// checks the new type against its pin and reports a mismatch otherwise.
func processBinding(gs *gstate.GlobalState, u *types.Universe, env *Environment, methodSym gstate.Symbol, selfType types.Type, bind *cfg.Binding, outerLoops int, minLoops, maxLoopWrite map[ast.LocalVar]int, filter *KnowledgeFilter) types.Type {
	loc := bind.Loc
	var computed types.Type
	var send *cfg.Send
	var identSrc *ast.LocalVar

	switch instr := bind.Value.(type) {
	case cfg.Literal:
		computed = literalType(gs, instr)
	case cfg.Ident:
		computed = env.getType(instr.What).Type
		v := instr.What
		identSrc = &v
	case cfg.Self:
		computed = types.NewClass(instr.Class)
	case cfg.Alias:
		computed = aliasType(u, gs, instr.What, selfType)
		env.pinnedTypes[bind.Bind] = TypeAndOrigins{Type: computed, Origins: []gstate.Loc{loc}}
	case cfg.LoadArg:
		computed = u.GetCallArgumentType(env.getType(instr.Receiver).Type, instr.Method, int(instr.Arg))
	case cfg.LoadYieldParam:
		computed = blockParamType(instr.Link, int(instr.Arg))
	case cfg.Send:
		computed = processSend(gs, u, env, loc, instr)
		s := instr
		send = &s
	case cfg.Return:
		checkReturn(gs, u, env, methodSym, selfType, instr.What, loc)
		computed = types.Bottom
	case cfg.BlockReturn:
		checkBlockReturn(gs, u, env, instr, loc)
		computed = types.Bottom
	case cfg.Cast:
		computed = processCast(gs, u, env, instr, selfType, loc)
		if instr.Kind == ast.CastLet {
			env.pinnedTypes[bind.Bind] = TypeAndOrigins{Type: computed, Origins: []gstate.Loc{loc}}
		}
	case cfg.SolveConstraint:
		computed = resultOrUntyped(instr.Link)
	case cfg.Unanalyzable:
		computed = types.Untyped
	case cfg.DebugEnvironment:
		computed = types.Untyped
	default:
		computed = types.Untyped
	}

	finishAssignment(gs, u, env, bind, outerLoops, computed, minLoops, maxLoopWrite, filter, identSrc, send)
	return computed
}

// finishAssignment implements spec.md §4.5.4's second half: a fresh write
// (bindMin == outerLoops, or a pure-assignment-like instruction) assigns the
// computed type and resynthesizes knowledge; otherwise bind.bind is pinned
// and the computed type must stay a subtype of the pin.
func finishAssignment(gs *gstate.GlobalState, u *types.Universe, env *Environment, bind *cfg.Binding, outerLoops int, computed types.Type, minLoops, maxLoopWrite map[ast.LocalVar]int, filter *KnowledgeFilter, identSrc *ast.LocalVar, send *cfg.Send) {
	if env.isDead {
		return
	}
	v := bind.Bind

	pureAssign := false
	switch bind.Value.(type) {
	case cfg.Alias, cfg.LoadArg:
		pureAssign = true
	}

	bindMin, hasMin := minLoops[v]
	freshWrite := !hasMin || bindMin == outerLoops

	if freshWrite || pureAssign {
		clearKnowledge(env, v)
		env.setType(v, TypeAndOrigins{Type: computed, Origins: []gstate.Loc{bind.Loc}})
		env.state(v).knownTruthy = false
		if send != nil {
			synthesizeKnowledge(u, gs, env, v, *send, filter)
		}
		if identSrc != nil {
			propagateIdentKnowledge(env, v, *identSrc, filter)
		}
		return
	}

	pinned, ok := env.pinnedTypes[v]
	if !ok {
		pinned = env.getType(v)
	}
	if u.IsSubType(computed, pinned.Type) {
		env.setType(v, TypeAndOrigins{
			Type:    computed,
			Origins: append(append([]gstate.Loc{}, pinned.Origins...), bind.Loc),
		})
		return
	}

	var code diag.Code
	var msg string
	switch bindMin {
	case cfg.MinLoopField:
		code, msg = diag.InferFieldReassignmentTypeMismatch, "assigned value of type %s does not match declared field type %s"
	case cfg.MinLoopGlobal:
		code, msg = diag.InferGlobalReassignmentTypeMismatch, "assigned value of type %s does not match declared global type %s"
	case cfg.MinLoopLet:
		code, msg = diag.InferPinnedVariableMismatch, "incompatible assignment to variable declared via `let`: %s is not a subtype of %s"
	default:
		code, msg = diag.InferPinnedVariableMismatch, "changing the type of a variable in a loop: %s is not a subtype of %s"
	}
	report(gs, code, bind.Loc, msg, computed.String(), pinned.Type.String())

	if bindMin != cfg.MinLoopField && bindMin != cfg.MinLoopGlobal && bindMin != cfg.MinLoopLet {
		computed = types.Untyped
	}
	env.setType(v, TypeAndOrigins{Type: computed, Origins: []gstate.Loc{bind.Loc}})
}

func literalType(gs *gstate.GlobalState, instr cfg.Literal) types.Type {
	switch instr.LKind {
	case cfg.LiteralNil:
		return types.NewClass(gs.WellKnown.NilClass)
	case cfg.LiteralTrue:
		return types.NewClass(gs.WellKnown.TrueClass)
	case cfg.LiteralFalse:
		return types.NewClass(gs.WellKnown.FalseClass)
	case cfg.LiteralInt:
		return types.NewLiteral(types.NewClass(gs.WellKnown.Integer), instr.Int)
	case cfg.LiteralFloat:
		return types.NewLiteral(types.NewClass(gs.WellKnown.Float), instr.Float)
	case cfg.LiteralString:
		return types.NewLiteral(types.NewClass(gs.WellKnown.String), gs.Text(instr.Name))
	case cfg.LiteralSymbol:
		return types.NewLiteral(types.NewClass(gs.WellKnown.Symbol_), gs.Text(instr.Name))
	default:
		return types.Untyped
	}
}

// aliasType computes an Alias(sym) binding's type (spec.md §4.5.4): a class
// or module alias gets its singleton (MetaType) type; a field, static
// field, or global alias gets its declared ResultType, with any
// T.self_type/T.attached_class in that declaration resolved against the
// current receiver.
func aliasType(u *types.Universe, gs *gstate.GlobalState, sym gstate.Symbol, selfType types.Type) types.Type {
	data := gs.Symbol(sym)
	if data.Kind.Has(gstate.KindClass) || data.Kind.Has(gstate.KindModule) {
		return types.NewMetaType(types.NewClass(sym))
	}
	rt, ok := data.ResultType.(types.Type)
	if !ok || rt == nil {
		return types.Untyped
	}
	return substituteSelf(u, rt, selfType)
}

// blockParamType reads the idx'th formal block-parameter type negotiated
// for link's enclosing send. Block/proc signatures aren't modeled as their
// own composite type anywhere in internal/types (ArgInfo.ResultType carries
// one flat Type per formal, not a nested call signature), so this degrades
// to Untyped whenever BlockPreType isn't an AppliedType with a matching
// Targs slot; a documented scope cut (DESIGN.md).
func blockParamType(link *cfg.SendAndBlockLink, idx int) types.Type {
	if link == nil || link.BlockPreType == nil {
		return types.Untyped
	}
	applied, ok := link.BlockPreType.(types.AppliedType)
	if !ok || idx < 0 || idx >= len(applied.Targs) {
		return types.Untyped
	}
	return applied.Targs[idx]
}

func resultOrUntyped(link *cfg.SendAndBlockLink) types.Type {
	if link == nil || link.ResultType == nil {
		return types.Untyped
	}
	return link.ResultType
}

// processSend dispatches instr through u.DispatchCall, special-casing
// `super` (left Untyped: CFGBuilder already expanded a bare super into an
// ordinary Send on the forwarded arguments, but resolving the right
// ancestor method isn't modeled) and `hard_assert` (spec.md §4.5.6, applied
// immediately rather than deferred to a future branch).
func processSend(gs *gstate.GlobalState, u *types.Universe, env *Environment, loc gstate.Loc, instr cfg.Send) types.Type {
	if gs.Text(instr.Fun) == "super" {
		return types.Untyped
	}

	recvT := env.getType(instr.Recv).Type
	argTs := make([]types.Type, len(instr.Args))
	for i, a := range instr.Args {
		argTs[i] = env.getType(a).Type
	}

	var link *types.BlockLink
	if instr.Link != nil {
		link = &types.BlockLink{}
	}
	result := u.DispatchCall(recvT, instr.Fun, loc, argTs, link)
	if instr.Link != nil {
		instr.Link.ResultType = result
	}

	if gs.Text(instr.Fun) == "hard_assert" && len(instr.Args) >= 1 {
		applyHardAssert(gs, u, env, instr.Args[0], loc)
	}
	return result
}

// applyHardAssert assumes its argument truthy right now, rather than only
// recording knowledge for a hypothetical future branch (spec.md §4.5.6): a
// call that can never succeed drives the environment dead and reports
// InferDeadBranchInferencer.
func applyHardAssert(gs *gstate.GlobalState, u *types.Universe, env *Environment, arg ast.LocalVar, loc gstate.Loc) {
	k := env.knowledge(arg)
	dead := applyKnowledge(u, env, k.Truthy)

	cur := env.getType(arg)
	narrowed := u.DropSubtypesOf(cur.Type, gs.WellKnown.NilClass)
	narrowed = u.DropSubtypesOf(narrowed, gs.WellKnown.FalseClass)
	env.setType(arg, TypeAndOrigins{Type: narrowed, Origins: cur.Origins})
	env.state(arg).knownTruthy = true

	if dead || narrowed == types.Bottom {
		env.isDead = true
		report(gs, diag.InferDeadBranchInferencer, loc, "this hard_assert can never succeed")
	}
}

// checkReturn reports InferReturnTypeMismatch when v's computed type isn't a
// subtype of the enclosing method's declared return type (spec.md §4.5.4's
// Return row).
func checkReturn(gs *gstate.GlobalState, u *types.Universe, env *Environment, methodSym gstate.Symbol, selfType types.Type, v ast.LocalVar, loc gstate.Loc) {
	rt, ok := gs.Symbol(methodSym).ResultType.(types.Type)
	if !ok || rt == nil {
		return
	}
	expected := substituteSelf(u, rt, selfType)
	got := env.getType(v)
	if u.IsSubType(got.Type, expected) {
		return
	}
	err := diag.New(diag.InferReturnTypeMismatch, gs.RenderLoc(loc), "returns %s, expected %s", got.Type.String(), expected.String())
	err = err.WithSection("Expected "+expected.String(), gs.RenderLoc(gs.Symbol(methodSym).Loc))
	for _, o := range got.Origins {
		err = err.WithSection("Got "+got.Type.String()+" originating from here", gs.RenderLoc(o))
	}
	level := diag.Strong
	if loc.File != gstate.NoFile {
		level = gs.File(loc.File).Strictness
	}
	gs.Errors.Push(level, err)
}

// checkBlockReturn would check v against the enclosing block's declared
// return type, mirroring checkReturn. Block return-type negotiation isn't
// modeled (see blockParamType's note on block/proc signatures), so there is
// nothing yet to check against; a documented no-op.
func checkBlockReturn(gs *gstate.GlobalState, u *types.Universe, env *Environment, instr cfg.BlockReturn, loc gstate.Loc) {
}

// processCast implements spec.md §4.5.4's Cast row. T.must (instr.Must)
// subtracts NilClass from the operand's current type rather than trusting
// instr.Type, which is Untyped for T.must by construction (cfg.Cast's doc
// comment; spec.md §9 SUPPLEMENTED FEATURES #4).
func processCast(gs *gstate.GlobalState, u *types.Universe, env *Environment, instr cfg.Cast, selfType types.Type, loc gstate.Loc) types.Type {
	if instr.Must {
		cur := env.getType(instr.Value)
		return u.DropSubtypesOf(cur.Type, gs.WellKnown.NilClass)
	}

	castType := substituteSelf(u, instr.Type, selfType)
	cur := env.getType(instr.Value)

	if instr.Kind == ast.CastAssertType && cur.Type == types.Untyped {
		report(gs, diag.InferCastTypeMismatch, loc, "unable to infer the type of this expression for assert_type!")
		return castType
	}
	if instr.Kind != ast.CastPlain && !u.IsSubType(cur.Type, castType) {
		report(gs, diag.InferCastTypeMismatch, loc, "argument of type %s does not match cast type %s", cur.Type.String(), castType.String())
	}
	return castType
}

func isClassLiteral(env *Environment, v ast.LocalVar) bool {
	_, ok := env.getType(v).Type.(types.MetaTypeType)
	return ok
}

func attachedOf(t types.Type) types.Type {
	if m, ok := t.(types.MetaTypeType); ok {
		return m.Wrapped
	}
	return types.Untyped
}

// synthesizeKnowledge fills bind's TestedKnowledge from the Send that
// produced it (spec.md §4.5.6), when bind is actually consulted by some
// later branch (filter.IsNeeded).
func synthesizeKnowledge(u *types.Universe, gs *gstate.GlobalState, env *Environment, bind ast.LocalVar, send cfg.Send, filter *KnowledgeFilter) {
	if !filter.IsNeeded(bind) {
		return
	}
	name := gs.Text(send.Fun)
	var tk TestedKnowledge

	switch {
	case name == "!" && len(send.Args) == 0:
		falsy := u.FalsyTypes()
		tk.Truthy.addYes(send.Recv, falsy)
		tk.Falsy.addNo(send.Recv, falsy)
	case name == "nil?" && len(send.Args) == 0:
		nilT := types.NewClass(gs.WellKnown.NilClass)
		tk.Truthy.addYes(send.Recv, nilT)
		tk.Falsy.addNo(send.Recv, nilT)
	case (name == "kind_of?" || name == "is_a?") && len(send.Args) == 1 && isClassLiteral(env, send.Args[0]):
		at := attachedOf(env.getType(send.Args[0]).Type)
		tk.Truthy.addYes(send.Recv, at)
		tk.Falsy.addNo(send.Recv, at)
	case name == "==" && len(send.Args) == 1:
		tk.Truthy.addYes(send.Recv, env.getType(send.Args[0]).Type)
		tk.Truthy.addYes(send.Args[0], env.getType(send.Recv).Type)
	case name == "===" && len(send.Args) == 1 && isClassLiteral(env, send.Recv):
		at := attachedOf(env.getType(send.Recv).Type)
		tk.Truthy.addYes(send.Args[0], at)
		tk.Falsy.addNo(send.Args[0], at)
	default:
		return
	}
	tk.seenTruthy, tk.seenFalsy = true, true
	env.setKnowledge(bind, tk)
}

// propagateIdentKnowledge approximates spec.md §4.5.6's bidirectional
// equivalence for an `a = b` binding by copying b's knowledge onto a.
// The reverse direction (facts later learned about a flowing back onto b)
// isn't modeled; b is simply re-read directly wherever that would matter.
func propagateIdentKnowledge(env *Environment, dst, src ast.LocalVar, filter *KnowledgeFilter) {
	if !filter.IsNeeded(dst) {
		return
	}
	env.setKnowledge(dst, env.knowledge(src).clone())
}
