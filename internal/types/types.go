// Package types implements the static type lattice (spec.md §3.5): a
// tagged-variant tree of Type values plus the subtyping/join/meet/dispatch
// operations Inference and Resolver need.
//
// Grounded on grailbio-gql's gql.ValueType (gql/value_type.go), a flat byte
// enum over runtime value kinds, generalized here into a recursive tree
// since static types must nest (Or/And/Applied/MetaType) where a runtime
// value's type never did. dispatchCall's shape is grounded on func.go's
// TypeCallback ("func(ast ASTNode, args []AIArg) AIType"): a call-site type
// check that returns the call's result type, reporting through the same
// diagnostics queue Desugar/Namer use rather than panicking.
package types

import (
	"fmt"
	"sort"

	"github.com/sorbetgo/checker/internal/gstate"
)

// Kind discriminates the variants of Type.
type Kind byte

const (
	KindBottom Kind = iota
	KindTop
	KindUntyped
	KindClass
	KindApplied
	KindMetaType
	KindLiteral
	KindOr
	KindAnd
	KindAlias
	KindTypeVar
	KindSelfType
	KindAttachedClass
)

func (k Kind) String() string {
	switch k {
	case KindBottom:
		return "Bottom"
	case KindTop:
		return "Top"
	case KindUntyped:
		return "Untyped"
	case KindClass:
		return "Class"
	case KindApplied:
		return "Applied"
	case KindMetaType:
		return "MetaType"
	case KindLiteral:
		return "Literal"
	case KindOr:
		return "Or"
	case KindAnd:
		return "And"
	case KindAlias:
		return "Alias"
	case KindTypeVar:
		return "TypeVar"
	case KindSelfType:
		return "SelfType"
	case KindAttachedClass:
		return "AttachedClass"
	default:
		return "Kind(?)"
	}
}

// Type is a node in the static type lattice. The variant structs below are
// the only implementations; callers type-switch on them, and Kind() reports
// the same variant as a comparable tag.
type Type interface {
	Kind() Kind
	String() string
	isType()
}

// --- Bottom / Top / Untyped: stateless singletons ---

type bottomType struct{}

func (bottomType) Kind() Kind     { return KindBottom }
func (bottomType) String() string { return "T.noreturn" }
func (bottomType) isType()        {}

// Bottom is the empty type: subtype of everything, supertype of nothing but
// itself.
var Bottom Type = bottomType{}

type topType struct{}

func (topType) Kind() Kind     { return KindTop }
func (topType) String() string { return "T.anything" }
func (topType) isType()        {}

// Top is the universal supertype of the nominal lattice.
var Top Type = topType{}

type untypedType struct{}

func (untypedType) Kind() Kind     { return KindUntyped }
func (untypedType) String() string { return "T.untyped" }
func (untypedType) isType()        {}

// Untyped is the gradual-typing escape hatch: it satisfies every subtype
// query reflexively in both directions and carries no information.
var Untyped Type = untypedType{}

// --- Class ---

// ClassType is a nominal instance type: "an instance of symbol, or a subclass".
type ClassType struct{ Symbol gstate.Symbol }

func NewClass(sym gstate.Symbol) Type { return ClassType{Symbol: sym} }

func (ClassType) Kind() Kind         { return KindClass }
func (c ClassType) String() string   { return fmt.Sprintf("Class<%d>", c.Symbol) }
func (ClassType) isType()            {}

// --- Applied: generic instantiation, e.g. Array[Integer] ---

type AppliedType struct {
	Symbol gstate.Symbol
	Targs  []Type
}

func NewApplied(sym gstate.Symbol, targs []Type) Type {
	return AppliedType{Symbol: sym, Targs: targs}
}

func (AppliedType) Kind() Kind { return KindApplied }
func (a AppliedType) String() string {
	s := fmt.Sprintf("Applied<%d>[", a.Symbol)
	for i, t := range a.Targs {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s + "]"
}
func (AppliedType) isType() {}

// --- MetaType: the value *is* a type, e.g. `Integer` used as a value ---

type MetaTypeType struct{ Wrapped Type }

func NewMetaType(wrapped Type) Type { return MetaTypeType{Wrapped: wrapped} }

func (MetaTypeType) Kind() Kind       { return KindMetaType }
func (m MetaTypeType) String() string { return "T.class_of(" + m.Wrapped.String() + ")" }
func (MetaTypeType) isType()          {}

// --- Literal: a singleton type over a concrete value, e.g. the type of `:ok` ---

type LiteralType struct {
	Base  Type // the underlying class type, e.g. Class(Symbol_) for a symbol literal
	Value interface{}
}

func NewLiteral(base Type, value interface{}) Type {
	return LiteralType{Base: base, Value: value}
}

func (LiteralType) Kind() Kind { return KindLiteral }
func (l LiteralType) String() string {
	return fmt.Sprintf("Literal(%s, %v)", l.Base.String(), l.Value)
}
func (LiteralType) isType() {}

// --- Or / And: lattice join/meet. Constructors normalize so that
// structurally-equal trees compare equal and redundant arms collapse. ---

type OrType struct{ A, B Type }

func (OrType) Kind() Kind     { return KindOr }
func (o OrType) String() string { return "(" + o.A.String() + " | " + o.B.String() + ")" }
func (OrType) isType()        {}

type AndType struct{ A, B Type }

func (AndType) Kind() Kind      { return KindAnd }
func (a AndType) String() string { return "(" + a.A.String() + " & " + a.B.String() + ")" }
func (AndType) isType()         {}

// NewOr builds a normalized join. It flattens nested Ors, drops Bottom arms,
// collapses to Top/Untyped absorbingly, and elides an arm already covered by
// the other side, but it does NOT attempt full normal-form canonicalization
// (spec.md leaves exact Or/And equality out of scope; see DESIGN.md).
func NewOr(u *Universe, a, b Type) Type {
	arms := flattenOr(a)
	arms = append(arms, flattenOr(b)...)
	return buildOr(u, arms)
}

func flattenOr(t Type) []Type {
	if o, ok := t.(OrType); ok {
		return append(flattenOr(o.A), flattenOr(o.B)...)
	}
	return []Type{t}
}

func buildOr(u *Universe, arms []Type) Type {
	var kept []Type
	for _, a := range arms {
		if a == Bottom {
			continue
		}
		if a == Untyped || a == Top {
			return a
		}
		redundant := false
		for i, k := range kept {
			if u.IsSubType(a, k) {
				redundant = true
				break
			}
			if u.IsSubType(k, a) {
				kept[i] = a
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, a)
		}
	}
	switch len(kept) {
	case 0:
		return Bottom
	case 1:
		return kept[0]
	default:
		sortTypes(kept)
		out := kept[0]
		for _, k := range kept[1:] {
			out = OrType{A: out, B: k}
		}
		return out
	}
}

// NewAnd builds a normalized meet, by the same rules as NewOr with the
// lattice order reversed.
func NewAnd(u *Universe, a, b Type) Type {
	arms := flattenAnd(a)
	arms = append(arms, flattenAnd(b)...)
	return buildAnd(u, arms)
}

func flattenAnd(t Type) []Type {
	if x, ok := t.(AndType); ok {
		return append(flattenAnd(x.A), flattenAnd(x.B)...)
	}
	return []Type{t}
}

func buildAnd(u *Universe, arms []Type) Type {
	var kept []Type
	for _, a := range arms {
		if a == Top {
			continue
		}
		if a == Bottom {
			return Bottom
		}
		redundant := false
		for i, k := range kept {
			if u.IsSubType(k, a) {
				redundant = true
				break
			}
			if u.IsSubType(a, k) {
				kept[i] = a
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, a)
		}
	}
	switch len(kept) {
	case 0:
		return Top
	case 1:
		return kept[0]
	default:
		sortTypes(kept)
		// Two unrelated nominal classes meet at Bottom: Ruby has no multiple
		// inheritance of classes (only module mixins), so two distinct,
		// unrelated ClassTypes can share no instance.
		if len(kept) == 2 {
			ca, aok := kept[0].(ClassType)
			cb, bok := kept[1].(ClassType)
			if aok && bok && ca.Symbol != cb.Symbol {
				return Bottom
			}
		}
		out := kept[0]
		for _, k := range kept[1:] {
			out = AndType{A: out, B: k}
		}
		return out
	}
}

func sortTypes(ts []Type) {
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].String() < ts[j].String() })
}

// --- Alias: a named indirection resolved through the symbol table on lookup ---

type AliasType struct{ Symbol gstate.Symbol }

func NewAlias(sym gstate.Symbol) Type { return AliasType{Symbol: sym} }

func (AliasType) Kind() Kind       { return KindAlias }
func (a AliasType) String() string { return fmt.Sprintf("Alias<%d>", a.Symbol) }
func (AliasType) isType()          {}

// --- TypeVar / SelfType / AttachedClass ---

type TypeVarType struct{ Symbol gstate.Symbol }

func NewTypeVar(sym gstate.Symbol) Type { return TypeVarType{Symbol: sym} }

func (TypeVarType) Kind() Kind       { return KindTypeVar }
func (t TypeVarType) String() string { return fmt.Sprintf("TypeVar<%d>", t.Symbol) }
func (TypeVarType) isType()          {}

type selfType struct{}

func (selfType) Kind() Kind     { return KindSelfType }
func (selfType) String() string { return "T.self_type" }
func (selfType) isType()        {}

// SelfType stands for "whatever class self is bound to at this call site".
var SelfType Type = selfType{}

type attachedClassType struct{}

func (attachedClassType) Kind() Kind     { return KindAttachedClass }
func (attachedClassType) String() string { return "T.attached_class" }
func (attachedClassType) isType()        {}

// AttachedClass stands for "the singleton class of whatever receiver this
// method is dispatched on", used to type `self.class.new`-style factories.
var AttachedClass Type = attachedClassType{}

// resolveAlias follows AliasType indirection through the symbol table's
// ResultType field, stopping at the first non-alias (or Untyped, if the
// symbol carries no resolved type yet).
func resolveAlias(u *Universe, t Type) Type {
	for {
		a, ok := t.(AliasType)
		if !ok {
			return t
		}
		rt, ok := u.gs.Symbol(a.Symbol).ResultType.(Type)
		if !ok || rt == nil {
			return Untyped
		}
		t = rt
	}
}
