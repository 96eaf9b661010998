// Package ast implements the small typed AST of spec.md §3.2: the tagged
// tree Desugar produces and every later phase (Namer, Resolver, CFGBuilder)
// consumes.
//
// Grounded on gql/ast.go's ASTNode: a capability interface (pos(), String())
// rather than an inheritance hierarchy, per spec.md Design Notes §9
// ("Polymorphism... do not model with inheritance hierarchies"). Node kinds
// are a byte enum with a hand-written String(), styled after
// gql/value_type.go's ValueType. Unlike GQL's ASTNode (which also carries
// eval() and hash() for query execution), this AST is purely structural: it
// is walked, never evaluated, so those two capabilities are replaced by
// Children() for exhaustive visitors and dump-formatters.
package ast

import (
	"github.com/sorbetgo/checker/internal/gstate"
)

// Kind tags every Node variant (spec.md §3.2).
type Kind byte

const (
	KindEmptyTree Kind = iota
	KindNil
	KindTrue
	KindFalse
	KindInt
	KindFloat
	KindString
	KindSymbolLit
	KindSelf
	KindLocal
	KindUnresolvedIdent
	KindUnresolvedConstant
	KindConstantLit
	KindInsSeq
	KindAssign
	KindIf
	KindWhile
	KindSend
	KindBlock
	KindZSuperArgs
	KindClassDef
	KindMethodDef
	KindRestArg
	KindKeywordArg
	KindOptionalArg
	KindBlockArg
	KindShadowArg
	KindReturn
	KindBreak
	KindNext
	KindRetry
	KindYield
	KindRescue
	KindRescueCase
	KindArray
	KindHash
	KindCast
)

func (k Kind) String() string {
	switch k {
	case KindEmptyTree:
		return "EmptyTree"
	case KindNil:
		return "Nil"
	case KindTrue:
		return "True"
	case KindFalse:
		return "False"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindSymbolLit:
		return "Symbol"
	case KindSelf:
		return "Self"
	case KindLocal:
		return "Local"
	case KindUnresolvedIdent:
		return "UnresolvedIdent"
	case KindUnresolvedConstant:
		return "UnresolvedConstant"
	case KindConstantLit:
		return "ConstantLit"
	case KindInsSeq:
		return "InsSeq"
	case KindAssign:
		return "Assign"
	case KindIf:
		return "If"
	case KindWhile:
		return "While"
	case KindSend:
		return "Send"
	case KindBlock:
		return "Block"
	case KindZSuperArgs:
		return "ZSuperArgs"
	case KindClassDef:
		return "ClassDef"
	case KindMethodDef:
		return "MethodDef"
	case KindRestArg:
		return "RestArg"
	case KindKeywordArg:
		return "KeywordArg"
	case KindOptionalArg:
		return "OptionalArg"
	case KindBlockArg:
		return "BlockArg"
	case KindShadowArg:
		return "ShadowArg"
	case KindReturn:
		return "Return"
	case KindBreak:
		return "Break"
	case KindNext:
		return "Next"
	case KindRetry:
		return "Retry"
	case KindYield:
		return "Yield"
	case KindRescue:
		return "Rescue"
	case KindRescueCase:
		return "RescueCase"
	case KindArray:
		return "Array"
	case KindHash:
		return "Hash"
	case KindCast:
		return "Cast"
	default:
		return "Unknown"
	}
}

// Node is the capability every AST variant supports (spec.md Design Notes §9:
// "Any AST node is best expressed as a capability {loc(), variant-kind,
// visit-children}").
type Node interface {
	Loc() gstate.Loc
	Kind() Kind
	Children() []Node
}

// LocalVar identifies a local variable or compiler temporary (spec.md §3.3).
// User locals carry their UTF8 Name with UniqueID==0; synthesized temporaries
// carry a Unique Name whose own (base,counter) is tracked in gstate, and
// additionally set UniqueID to gstate's fresh id so two temporaries sharing a
// Unique Name base are still distinguishable as distinct LocalVars.
type LocalVar struct {
	Name     gstate.Name
	UniqueID int64
}

// NoVariable is the sentinel "no local" value, e.g. an unconditional
// BlockExit's cond.
func NoVariable() LocalVar { return LocalVar{} }

// BlockCallVar is the pseudo-condition meaning "call a block".
func BlockCallVar() LocalVar { return LocalVar{UniqueID: -1} }

// FinalReturnVar is the local holding a method's implicit final return value.
func FinalReturnVar() LocalVar { return LocalVar{UniqueID: -2} }

// IsSentinel reports whether v is one of the three reserved sentinels.
func (v LocalVar) IsSentinel() bool {
	return v == NoVariable() || v == BlockCallVar() || v == FinalReturnVar()
}

type base struct {
	L gstate.Loc
}

func (b base) Loc() gstate.Loc { return b.L }

// SetLoc overrides a node's location. Used by later phases that synthesize
// a replacement node (e.g. Namer rewriting UnresolvedIdent to LocalRef) and
// want the replacement to keep pointing at the original source position.
func (b *base) SetLoc(l gstate.Loc) { b.L = l }

// ---- Literals ----

type NilLit struct{ base }

func (n *NilLit) Kind() Kind        { return KindNil }
func (n *NilLit) Children() []Node  { return nil }

type TrueLit struct{ base }

func (n *TrueLit) Kind() Kind       { return KindTrue }
func (n *TrueLit) Children() []Node { return nil }

type FalseLit struct{ base }

func (n *FalseLit) Kind() Kind       { return KindFalse }
func (n *FalseLit) Children() []Node { return nil }

type IntLit struct {
	base
	Value int64
}

func (n *IntLit) Kind() Kind       { return KindInt }
func (n *IntLit) Children() []Node { return nil }

type FloatLit struct {
	base
	Value float64
}

func (n *FloatLit) Kind() Kind       { return KindFloat }
func (n *FloatLit) Children() []Node { return nil }

type StringLit struct {
	base
	Value gstate.Name
}

func (n *StringLit) Kind() Kind       { return KindString }
func (n *StringLit) Children() []Node { return nil }

type SymbolLit struct {
	base
	Value gstate.Name
}

func (n *SymbolLit) Kind() Kind       { return KindSymbolLit }
func (n *SymbolLit) Children() []Node { return nil }

// SelfLit is `self`; Class is the symbol of the enclosing class, filled in by
// Namer.
type SelfLit struct {
	base
	Class gstate.Symbol
}

func (n *SelfLit) Kind() Kind       { return KindSelf }
func (n *SelfLit) Children() []Node { return nil }

// ---- References ----

type LocalRef struct {
	base
	Var LocalVar
}

func (n *LocalRef) Kind() Kind       { return KindLocal }
func (n *LocalRef) Children() []Node { return nil }

// IdentKind distinguishes the four UnresolvedIdent flavors.
type IdentKind byte

const (
	IdentLocal IdentKind = iota
	IdentInstance
	IdentClass
	IdentGlobal
)

type UnresolvedIdent struct {
	base
	IKind IdentKind
	Name  gstate.Name
}

func (n *UnresolvedIdent) Kind() Kind       { return KindUnresolvedIdent }
func (n *UnresolvedIdent) Children() []Node { return nil }

// UnresolvedConstant is `Scope::Name`. Scope is nil for a bare top-level
// reference.
type UnresolvedConstant struct {
	base
	Scope Node
	Name  gstate.Name
}

func (n *UnresolvedConstant) Kind() Kind { return KindUnresolvedConstant }
func (n *UnresolvedConstant) Children() []Node {
	if n.Scope == nil {
		return nil
	}
	return []Node{n.Scope}
}

// ConstantLit is the post-Resolver form of a resolved UnresolvedConstant.
type ConstantLit struct {
	base
	Symbol gstate.Symbol
}

func (n *ConstantLit) Kind() Kind       { return KindConstantLit }
func (n *ConstantLit) Children() []Node { return nil }

// ---- Structural ----

// EmptyTree stands in for an elided or unsupported node.
type EmptyTree struct{ base }

func (n *EmptyTree) Kind() Kind       { return KindEmptyTree }
func (n *EmptyTree) Children() []Node { return nil }

// InsSeq is a sequence of statements yielding the value of Expr.
type InsSeq struct {
	base
	Stats []Node
	Expr  Node
}

func (n *InsSeq) Kind() Kind { return KindInsSeq }
func (n *InsSeq) Children() []Node {
	out := append([]Node{}, n.Stats...)
	if n.Expr != nil {
		out = append(out, n.Expr)
	}
	return out
}

type Assign struct {
	base
	LHS Node
	RHS Node
}

func (n *Assign) Kind() Kind       { return KindAssign }
func (n *Assign) Children() []Node { return []Node{n.LHS, n.RHS} }

type If struct {
	base
	Cond  Node
	Then  Node
	Else  Node
}

func (n *If) Kind() Kind       { return KindIf }
func (n *If) Children() []Node { return []Node{n.Cond, n.Then, n.Else} }

type While struct {
	base
	Cond Node
	Body Node
}

func (n *While) Kind() Kind       { return KindWhile }
func (n *While) Children() []Node { return []Node{n.Cond, n.Body} }

// ---- Calls ----

// SendFlags is a bitset of Send modifiers.
type SendFlags uint8

const (
	// SendSelf is set when the receiver is an implicit `self`.
	SendSelf SendFlags = 1 << iota
	// SendPrivateOK permits calling a private method (an implicit-self send).
	SendPrivateOK
)

type Send struct {
	base
	Recv   Node
	Method gstate.Name
	Args   []Node
	Flags  SendFlags
	Block  *Block // nil if no block was passed
}

func (n *Send) Kind() Kind { return KindSend }
func (n *Send) Children() []Node {
	out := []Node{n.Recv}
	out = append(out, n.Args...)
	if n.Block != nil {
		out = append(out, n.Block)
	}
	return out
}

type Block struct {
	base
	Args []Node
	Body Node
}

func (n *Block) Kind() Kind { return KindBlock }
func (n *Block) Children() []Node {
	out := append([]Node{}, n.Args...)
	return append(out, n.Body)
}

// ZSuperArgs is the placeholder produced for a bare `super` with no
// parentheses; CFGBuilder expands it to forward the enclosing method's
// formal arguments (spec.md §4.1.2).
type ZSuperArgs struct{ base }

func (n *ZSuperArgs) Kind() Kind       { return KindZSuperArgs }
func (n *ZSuperArgs) Children() []Node { return nil }

// ---- Definitions ----

// ClassKind distinguishes `class` from `module`.
type ClassKind byte

const (
	ClassKindClass ClassKind = iota
	ClassKindModule
	// ClassKindSingleton marks the body of a `class << self` block; Namer
	// enters its methods onto the owner's singleton class instead of the
	// owner itself.
	ClassKindSingleton
)

// ClassDef is a class/module definition. Ancestors holds deferred
// UnresolvedConstant nodes until Resolver replaces them with ConstantLit
// (spec.md §9 "Cyclic class graphs").
type ClassDef struct {
	base
	DeclLoc   gstate.Loc
	Symbol    gstate.Symbol
	Name      Node // UnresolvedConstant or ConstantLit naming this class
	Ancestors []Node
	RHS       []Node
	ClassKind ClassKind
}

func (n *ClassDef) Kind() Kind { return KindClassDef }
func (n *ClassDef) Children() []Node {
	out := []Node{n.Name}
	out = append(out, n.Ancestors...)
	return append(out, n.RHS...)
}

// MethodDefFlags is a bitset of modifiers namer applies to a method symbol.
type MethodDefFlags uint8

const (
	MethodSelf MethodDefFlags = 1 << iota
	MethodPrivate
	MethodProtected
	MethodPublic
	MethodModuleFunction
)

type MethodDef struct {
	base
	DeclLoc gstate.Loc
	Symbol  gstate.Symbol
	Name    gstate.Name
	Args    []Node
	Body    Node
	Flags   MethodDefFlags
}

func (n *MethodDef) Kind() Kind { return KindMethodDef }
func (n *MethodDef) Children() []Node {
	out := append([]Node{}, n.Args...)
	return append(out, n.Body)
}

// ---- Argument wrappers (composable) ----

type RestArg struct {
	base
	Inner Node
}

func (n *RestArg) Kind() Kind       { return KindRestArg }
func (n *RestArg) Children() []Node { return []Node{n.Inner} }

type KeywordArg struct {
	base
	Inner Node
}

func (n *KeywordArg) Kind() Kind       { return KindKeywordArg }
func (n *KeywordArg) Children() []Node { return []Node{n.Inner} }

type OptionalArg struct {
	base
	Inner   Node
	Default Node
}

func (n *OptionalArg) Kind() Kind       { return KindOptionalArg }
func (n *OptionalArg) Children() []Node { return []Node{n.Inner, n.Default} }

type BlockArg struct {
	base
	Inner Node
}

func (n *BlockArg) Kind() Kind       { return KindBlockArg }
func (n *BlockArg) Children() []Node { return []Node{n.Inner} }

// ShadowArg causes the wrapped arg to bind a local without being entered on
// the method symbol's argument list (spec.md §4.2).
type ShadowArg struct {
	base
	Inner Node
}

func (n *ShadowArg) Kind() Kind       { return KindShadowArg }
func (n *ShadowArg) Children() []Node { return []Node{n.Inner} }

// ---- Control ----

type Return struct {
	base
	Expr Node
}

func (n *Return) Kind() Kind       { return KindReturn }
func (n *Return) Children() []Node { return []Node{n.Expr} }

type Break struct {
	base
	Expr Node
}

func (n *Break) Kind() Kind       { return KindBreak }
func (n *Break) Children() []Node { return []Node{n.Expr} }

type Next struct {
	base
	Expr Node
}

func (n *Next) Kind() Kind       { return KindNext }
func (n *Next) Children() []Node { return []Node{n.Expr} }

type Retry struct{ base }

func (n *Retry) Kind() Kind       { return KindRetry }
func (n *Retry) Children() []Node { return nil }

type Yield struct {
	base
	Args []Node
}

func (n *Yield) Kind() Kind       { return KindYield }
func (n *Yield) Children() []Node { return n.Args }

// ---- Exceptions ----

type Rescue struct {
	base
	Body       Node
	Cases      []*RescueCase
	ElseClause Node
	Ensure     Node
}

func (n *Rescue) Kind() Kind { return KindRescue }
func (n *Rescue) Children() []Node {
	out := []Node{n.Body}
	for _, c := range n.Cases {
		out = append(out, c)
	}
	if n.ElseClause != nil {
		out = append(out, n.ElseClause)
	}
	if n.Ensure != nil {
		out = append(out, n.Ensure)
	}
	return out
}

// RescueCase is one `rescue ExcA, ExcB => e; body` clause. An empty
// Exceptions list means "rescue any StandardError"; CFGBuilder inserts the
// implicit StandardError class (spec.md §4.1.12), not Desugar.
type RescueCase struct {
	base
	Exceptions []Node
	Var        LocalVar
	Body       Node
}

func (n *RescueCase) Kind() Kind { return KindRescueCase }
func (n *RescueCase) Children() []Node {
	return append(append([]Node{}, n.Exceptions...), n.Body)
}

// ---- Collections ----

type Array struct {
	base
	Elems []Node
}

func (n *Array) Kind() Kind       { return KindArray }
func (n *Array) Children() []Node { return n.Elems }

// Hash stores keys and values pair-aligned: Keys[i] maps to Values[i].
type Hash struct {
	base
	Keys   []Node
	Values []Node
}

func (n *Hash) Kind() Kind { return KindHash }
func (n *Hash) Children() []Node {
	out := append([]Node{}, n.Keys...)
	return append(out, n.Values...)
}

// ---- Type carriers ----

// CastKind distinguishes T.cast/T.let/T.assert_type!.
type CastKind byte

const (
	CastPlain CastKind = iota
	CastAssertType
	CastLet
)

// TypeExpr is a not-yet-resolved type annotation; Resolver replaces it with
// a concrete types.Type (stored opaquely via Resolved, to avoid an import
// cycle with package types).
type TypeExpr struct {
	base
	Source   Node // the syntax the annotation was written as
	Resolved interface{}
}

type Cast struct {
	base
	Expr     Node
	TypeExpr *TypeExpr
	CastKind CastKind
}

func (n *Cast) Kind() Kind       { return KindCast }
func (n *Cast) Children() []Node { return []Node{n.Expr} }

// Walk visits n and every descendant in preorder.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children() {
		Walk(c, visit)
	}
}
