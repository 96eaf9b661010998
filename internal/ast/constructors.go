package ast

import "github.com/sorbetgo/checker/internal/gstate"

// Constructors for every Node variant, grounded on gql/ast.go's
// NewASTStatement: callers outside this package cannot set the unexported
// `base` embedded field directly, so each variant gets a New* function.

func NewEmptyTree(loc gstate.Loc) *EmptyTree { return &EmptyTree{base{loc}} }
func NewNilLit(loc gstate.Loc) *NilLit       { return &NilLit{base{loc}} }
func NewTrueLit(loc gstate.Loc) *TrueLit     { return &TrueLit{base{loc}} }
func NewFalseLit(loc gstate.Loc) *FalseLit   { return &FalseLit{base{loc}} }

func NewIntLit(loc gstate.Loc, v int64) *IntLit       { return &IntLit{base{loc}, v} }
func NewFloatLit(loc gstate.Loc, v float64) *FloatLit { return &FloatLit{base{loc}, v} }
func NewStringLit(loc gstate.Loc, v gstate.Name) *StringLit {
	return &StringLit{base{loc}, v}
}
func NewSymbolLit(loc gstate.Loc, v gstate.Name) *SymbolLit {
	return &SymbolLit{base{loc}, v}
}
func NewSelfLit(loc gstate.Loc) *SelfLit { return &SelfLit{base{loc}, gstate.NoSymbol} }

func NewLocalRef(loc gstate.Loc, v LocalVar) *LocalRef { return &LocalRef{base{loc}, v} }

func NewUnresolvedIdent(loc gstate.Loc, kind IdentKind, name gstate.Name) *UnresolvedIdent {
	return &UnresolvedIdent{base{loc}, kind, name}
}

func NewUnresolvedConstant(loc gstate.Loc, scope Node, name gstate.Name) *UnresolvedConstant {
	return &UnresolvedConstant{base{loc}, scope, name}
}

func NewConstantLit(loc gstate.Loc, sym gstate.Symbol) *ConstantLit {
	return &ConstantLit{base{loc}, sym}
}

func NewInsSeq(loc gstate.Loc, stats []Node, expr Node) *InsSeq {
	return &InsSeq{base{loc}, stats, expr}
}

func NewAssign(loc gstate.Loc, lhs, rhs Node) *Assign { return &Assign{base{loc}, lhs, rhs} }

func NewIf(loc gstate.Loc, cond, then, els Node) *If { return &If{base{loc}, cond, then, els} }

func NewWhile(loc gstate.Loc, cond, body Node) *While { return &While{base{loc}, cond, body} }

func NewSend(loc gstate.Loc, recv Node, method gstate.Name, args []Node, flags SendFlags, block *Block) *Send {
	return &Send{base{loc}, recv, method, args, flags, block}
}

func NewBlock(loc gstate.Loc, args []Node, body Node) *Block {
	return &Block{base{loc}, args, body}
}

func NewClassDef(loc gstate.Loc, name Node, ancestors, rhs []Node, kind ClassKind) *ClassDef {
	return &ClassDef{base{loc}, loc, gstate.NoSymbol, name, ancestors, rhs, kind}
}

func NewMethodDef(loc gstate.Loc, name gstate.Name, args []Node, body Node, flags MethodDefFlags) *MethodDef {
	return &MethodDef{base{loc}, loc, gstate.NoSymbol, name, args, body, flags}
}

func NewRestArg(loc gstate.Loc, inner Node) *RestArg       { return &RestArg{base{loc}, inner} }
func NewKeywordArg(loc gstate.Loc, inner Node) *KeywordArg  { return &KeywordArg{base{loc}, inner} }
func NewOptionalArg(loc gstate.Loc, inner, def Node) *OptionalArg {
	return &OptionalArg{base{loc}, inner, def}
}
func NewBlockArg(loc gstate.Loc, inner Node) *BlockArg   { return &BlockArg{base{loc}, inner} }
func NewShadowArg(loc gstate.Loc, inner Node) *ShadowArg { return &ShadowArg{base{loc}, inner} }

func NewReturn(loc gstate.Loc, expr Node) *Return { return &Return{base{loc}, expr} }
func NewBreak(loc gstate.Loc, expr Node) *Break   { return &Break{base{loc}, expr} }
func NewNext(loc gstate.Loc, expr Node) *Next     { return &Next{base{loc}, expr} }
func NewRetry(loc gstate.Loc) *Retry              { return &Retry{base{loc}} }
func NewYield(loc gstate.Loc, args []Node) *Yield { return &Yield{base{loc}, args} }

func NewRescue(loc gstate.Loc, body Node, cases []*RescueCase, elseClause, ensure Node) *Rescue {
	return &Rescue{base{loc}, body, cases, elseClause, ensure}
}

func NewRescueCase(loc gstate.Loc, exceptions []Node, v LocalVar, body Node) *RescueCase {
	return &RescueCase{base{loc}, exceptions, v, body}
}

func NewArray(loc gstate.Loc, elems []Node) *Array { return &Array{base{loc}, elems} }

func NewHash(loc gstate.Loc, keys, values []Node) *Hash { return &Hash{base{loc}, keys, values} }

func NewTypeExpr(loc gstate.Loc, source Node) *TypeExpr { return &TypeExpr{base{loc}, source, nil} }

func NewCast(loc gstate.Loc, expr Node, typeExpr *TypeExpr, kind CastKind) *Cast {
	return &Cast{base{loc}, expr, typeExpr, kind}
}
