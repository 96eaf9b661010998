package types

import (
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
)

// Universe carries the GlobalState a set of types was built against: class
// ancestry, for subtyping, and method symbols, for dispatch. Every lattice
// operation that needs to answer "is A a subclass of B" or "what does method
// M return" is a method on *Universe rather than a free function, since both
// questions are meaningless without a GlobalState to resolve symbols in.
type Universe struct {
	gs *gstate.GlobalState
}

// New creates a Universe bound to gs.
func New(gs *gstate.GlobalState) *Universe { return &Universe{gs: gs} }

// IsSubType reports whether every value described by sub is also described
// by sup.
func (u *Universe) IsSubType(sub, sup Type) bool {
	if sub.Kind() == KindUntyped || sup.Kind() == KindUntyped {
		return true
	}
	if sub == Bottom {
		return true
	}
	if sup == Top {
		return true
	}
	sub = resolveAlias(u, sub)
	sup = resolveAlias(u, sup)

	if so, ok := sub.(OrType); ok {
		return u.IsSubType(so.A, sup) && u.IsSubType(so.B, sup)
	}
	if so, ok := sup.(OrType); ok {
		return u.IsSubType(sub, so.A) || u.IsSubType(sub, so.B)
	}
	if sa, ok := sub.(AndType); ok {
		return u.IsSubType(sa.A, sup) || u.IsSubType(sa.B, sup)
	}
	if sa, ok := sup.(AndType); ok {
		return u.IsSubType(sub, sa.A) && u.IsSubType(sub, sa.B)
	}

	if l, ok := sub.(LiteralType); ok {
		return u.IsSubType(l.Base, sup)
	}

	switch s := sub.(type) {
	case ClassType:
		c, ok := sup.(ClassType)
		if !ok {
			return false
		}
		return u.classIsA(s.Symbol, c.Symbol)
	case AppliedType:
		c, ok := sup.(AppliedType)
		if !ok {
			if plain, ok := sup.(ClassType); ok {
				return u.classIsA(s.Symbol, plain.Symbol)
			}
			return false
		}
		if !u.classIsA(s.Symbol, c.Symbol) {
			return false
		}
		if len(s.Targs) != len(c.Targs) {
			return false
		}
		for i := range s.Targs {
			if !u.IsSubType(s.Targs[i], c.Targs[i]) {
				return false
			}
		}
		return true
	case MetaTypeType:
		c, ok := sup.(MetaTypeType)
		if !ok {
			return false
		}
		return u.IsSubType(s.Wrapped, c.Wrapped)
	default:
		// TypeVar, SelfType, AttachedClass: opaque except reflexively.
		return sub == sup
	}
}

// classIsA reports whether a is b or a descends from b through SuperClass
// or Ancestors (filled in by Resolver, spec.md §4.3).
func (u *Universe) classIsA(a, b gstate.Symbol) bool {
	if a == b {
		return true
	}
	for _, anc := range u.gs.Symbol(a).Ancestors {
		if anc == b {
			return true
		}
	}
	return false
}

// Lub computes the join (least upper bound) of a and b.
func (u *Universe) Lub(a, b Type) Type {
	if u.IsSubType(a, b) {
		return b
	}
	if u.IsSubType(b, a) {
		return a
	}
	return NewOr(u, a, b)
}

// Glb computes the meet (greatest lower bound) of a and b.
func (u *Universe) Glb(a, b Type) Type {
	if u.IsSubType(a, b) {
		return a
	}
	if u.IsSubType(b, a) {
		return b
	}
	return NewAnd(u, a, b)
}

// DropSubtypesOf removes every arm of t that is a subtype of class, used to
// narrow a variable's type after a failed `is_a?(class)` test (spec.md
// §4.5.6). Types unrelated to class are kept unchanged: this is a
// conservative narrowing, not an exact complement.
func (u *Universe) DropSubtypesOf(t Type, class gstate.Symbol) Type {
	if o, ok := t.(OrType); ok {
		return NewOr(u, u.DropSubtypesOf(o.A, class), u.DropSubtypesOf(o.B, class))
	}
	if u.IsSubType(t, ClassType{Symbol: class}) {
		return Bottom
	}
	return t
}

// ApproximateSubtract computes a conservative a-minus-b: if a is entirely
// covered by b the result is Bottom; if a is a join, each arm is subtracted
// independently; otherwise a is returned unchanged, since a precise
// nominal-type complement does not exist in this lattice.
func (u *Universe) ApproximateSubtract(a, b Type) Type {
	if u.IsSubType(a, b) {
		return Bottom
	}
	if o, ok := a.(OrType); ok {
		return NewOr(u, u.ApproximateSubtract(o.A, b), u.ApproximateSubtract(o.B, b))
	}
	return a
}

// FalsyTypes is the type of every value Ruby treats as falsy: nil or false.
func (u *Universe) FalsyTypes() Type {
	return NewOr(u, ClassType{Symbol: u.gs.WellKnown.NilClass}, ClassType{Symbol: u.gs.WellKnown.FalseClass})
}

// CanBeTruthy reports whether some value described by t could take a
// `if`/`&&`/`unless` true branch.
func (u *Universe) CanBeTruthy(t Type) bool {
	if t == Bottom {
		return false
	}
	return !u.IsSubType(t, u.FalsyTypes())
}

// CanBeFalsy reports whether some value described by t could take a
// `if`/`&&`/`unless` false branch.
func (u *Universe) CanBeFalsy(t Type) bool {
	if t == Bottom {
		return false
	}
	switch x := t.(type) {
	case OrType:
		return u.CanBeFalsy(x.A) || u.CanBeFalsy(x.B)
	case ClassType, AppliedType, LiteralType:
		nilT := ClassType{Symbol: u.gs.WellKnown.NilClass}
		falseT := ClassType{Symbol: u.gs.WellKnown.FalseClass}
		return u.IsSubType(nilT, t) || u.IsSubType(falseT, t) || u.IsSubType(t, u.FalsyTypes())
	}
	return u.Glb(t, u.FalsyTypes()) != Bottom
}

// Instantiate substitutes targs for typeParams throughout t, used when a
// generic method's declared return type mentions one of its own type
// parameters (spec.md §3.5 "instantiate(typeParams, targs)").
func (u *Universe) Instantiate(typeParams []gstate.Symbol, targs []Type, t Type) Type {
	subst := make(map[gstate.Symbol]Type, len(typeParams))
	for i, p := range typeParams {
		if i < len(targs) {
			subst[p] = targs[i]
		}
	}
	return instantiateType(t, subst)
}

func instantiateType(t Type, subst map[gstate.Symbol]Type) Type {
	switch v := t.(type) {
	case TypeVarType:
		if r, ok := subst[v.Symbol]; ok {
			return r
		}
		return v
	case AppliedType:
		targs := make([]Type, len(v.Targs))
		for i, a := range v.Targs {
			targs[i] = instantiateType(a, subst)
		}
		return AppliedType{Symbol: v.Symbol, Targs: targs}
	case MetaTypeType:
		return MetaTypeType{Wrapped: instantiateType(v.Wrapped, subst)}
	case OrType:
		return OrType{A: instantiateType(v.A, subst), B: instantiateType(v.B, subst)}
	case AndType:
		return AndType{A: instantiateType(v.A, subst), B: instantiateType(v.B, subst)}
	default:
		return t
	}
}

// BlockLink describes the block attached to a call, if any, for dispatches
// against methods that invoke a caller-supplied block (spec.md §3.5's
// dispatchCall "linkForBlock?" parameter; grounded on func.go's
// ClosureFormalArg, which names the block's formal parameters for builtins
// like map/filter).
type BlockLink struct {
	ParamTypes []Type
	ReturnType Type
}

// GetCallArgumentType looks up the declared type of argIdx-th formal
// argument of the method named name on recv's class, for use when checking
// an actual argument against its formal before dispatch.
func (u *Universe) GetCallArgumentType(recv Type, name gstate.Name, argIdx int) Type {
	sym, ok := u.resolveMethod(recv, name)
	if !ok {
		return Untyped
	}
	args := u.gs.Symbol(sym).Args
	if argIdx < 0 || argIdx >= len(args) {
		return Untyped
	}
	return u.declaredArgType(sym, argIdx)
}

func (u *Universe) declaredArgType(sym gstate.Symbol, argIdx int) Type {
	args := u.gs.Symbol(sym).Args
	if argIdx >= len(args) {
		return Untyped
	}
	rt, ok := args[argIdx].ResultType.(Type)
	if !ok || rt == nil {
		return Untyped
	}
	return rt
}

// classSymbolOf extracts the nominal class a type's instance methods are
// looked up on, unwrapping Literal (a literal's methods are its base
// class's methods).
func classSymbolOf(t Type) (gstate.Symbol, bool) {
	switch v := t.(type) {
	case ClassType:
		return v.Symbol, true
	case AppliedType:
		return v.Symbol, true
	case LiteralType:
		return classSymbolOf(v.Base)
	default:
		return gstate.NoSymbol, false
	}
}

func (u *Universe) resolveMethod(recv Type, name gstate.Name) (gstate.Symbol, bool) {
	var class gstate.Symbol
	if m, ok := recv.(MetaTypeType); ok {
		// Dispatching on a MetaType ("Foo" used as a value) looks up a class
		// method, kept in Foo's singleton's own namespace so it never
		// collides with an instance method of the same name (spec.md §4.2).
		wrapped, ok := classSymbolOf(m.Wrapped)
		if !ok {
			return gstate.NoSymbol, false
		}
		singleton, ok := u.gs.LookupSingletonOf(wrapped)
		if !ok {
			return gstate.NoSymbol, false
		}
		class = singleton
	} else {
		c, ok := classSymbolOf(recv)
		if !ok {
			return gstate.NoSymbol, false
		}
		class = c
	}
	if sym, ok := u.gs.LookupMember(class, name); ok {
		return sym, true
	}
	for _, anc := range u.gs.Symbol(class).Ancestors {
		if sym, ok := u.gs.LookupMember(anc, name); ok {
			return sym, true
		}
	}
	return gstate.NoSymbol, false
}

// report pushes an error against loc's owning file, using that file's
// configured strictness as the Queue's drop threshold (spec.md §7).
func (u *Universe) report(code diag.Code, loc gstate.Loc, format string, args ...interface{}) {
	level := diag.Strong
	if loc.File != gstate.NoFile {
		level = u.gs.File(loc.File).Strictness
	}
	u.gs.Errors.Push(level, diag.New(code, u.gs.RenderLoc(loc), format, args...))
}

// DispatchCall resolves a call to method name on recv, checks the actual
// args against the formal arguments, and returns the call's result type.
// Errors are reported through gs.Errors rather than returned, matching how
// Desugar/Namer report problems inline and keep lowering (spec.md §7).
func (u *Universe) DispatchCall(recv Type, name gstate.Name, loc gstate.Loc, args []Type, link *BlockLink) Type {
	if recv.Kind() == KindUntyped {
		return Untyped
	}
	sym, ok := u.resolveMethod(recv, name)
	if !ok {
		u.report(diag.InferUnknownMethod, loc, "method %q not found on %s", u.gs.Text(name), recv.String())
		return Untyped
	}
	formal := u.gs.Symbol(sym).Args
	if err := u.checkArity(formal, len(args)); err != "" {
		u.report(diag.InferMethodArgumentCountMismatch, loc, "%s: %s", u.gs.Text(name), err)
	} else {
		for i, a := range args {
			if i >= len(formal) {
				break
			}
			want := u.declaredArgType(sym, i)
			if want.Kind() != KindUntyped && !u.IsSubType(a, want) {
				u.report(diag.InferMethodArgumentMismatch, loc, "%s: argument %d: expected %s, got %s",
					u.gs.Text(name), i, want.String(), a.String())
			}
		}
	}
	rt, ok := u.gs.Symbol(sym).ResultType.(Type)
	if !ok || rt == nil {
		return Untyped
	}
	if len(u.gs.Symbol(sym).TypeParams) > 0 {
		if applied, ok := recv.(AppliedType); ok {
			return u.Instantiate(u.gs.Symbol(sym).TypeParams, applied.Targs, rt)
		}
	}
	if rt == AttachedClass {
		if m, ok := recv.(MetaTypeType); ok {
			return m.Wrapped
		}
		return recv
	}
	return rt
}

func (u *Universe) checkArity(formal []gstate.ArgInfo, got int) string {
	required, variadic := 0, false
	for _, a := range formal {
		if a.Rest {
			variadic = true
			continue
		}
		if !a.Optional && !a.Keyword && !a.Block {
			required++
		}
	}
	if variadic {
		if got < required {
			return "too few arguments"
		}
		return ""
	}
	if got < required || got > len(formal) {
		return "wrong number of arguments"
	}
	return ""
}
