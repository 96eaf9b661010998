package resolver

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// walkClassDef records cd for the ancestor-flattening pass, resolves its
// Ancestors entries, and recurses into its body. A singleton body
// (`class << self`) does not push a new lexical scope: its ivars/cvars and
// nested constant lookups still belong to the enclosing real class
// (SUPPLEMENTED FEATURES #5).
func (s *state) walkClassDef(cd *ast.ClassDef) {
	s.classes = append(s.classes, cd)
	for i, anc := range cd.Ancestors {
		cd.Ancestors[i] = s.resolveConstantRef(anc)
	}

	pushed := cd.ClassKind != ast.ClassKindSingleton
	if pushed {
		s.classStack = append(s.classStack, cd.Symbol)
	}

	cd.RHS = s.walkClassBody(cd)

	if pushed {
		s.classStack = s.classStack[:len(s.classStack)-1]
	}
}

// walkClassBody processes attr_reader/attr_writer/attr_accessor and recurses
// generically into everything else (spec.md §4.3 "defining attributes").
func (s *state) walkClassBody(cd *ast.ClassDef) []ast.Node {
	var rhs []ast.Node
	for _, stmt := range cd.RHS {
		if send, ok := stmt.(*ast.Send); ok && send.Flags&ast.SendSelf != 0 {
			if s.tryAttr(send) {
				continue
			}
		}
		rhs = append(rhs, s.walkStmt(stmt))
	}
	return rhs
}

// walkStmt mirrors namer's nameStmt shape: recurse into every child,
// resolving UnresolvedConstant/Cast/instance-and-class idents along the way.
func (s *state) walkStmt(n ast.Node) ast.Node {
	switch v := n.(type) {
	case nil:
		return nil

	case *ast.ClassDef:
		s.walkClassDef(v)
		return v

	case *ast.MethodDef:
		s.finalizeMethodResultType(v.Symbol)
		v.Body = s.walkStmt(v.Body)
		return v

	case *ast.UnresolvedConstant:
		return s.resolveConstantRef(v)

	case *ast.UnresolvedIdent:
		return s.walkIdent(v)

	case *ast.InsSeq:
		for i, stmt := range v.Stats {
			v.Stats[i] = s.walkStmt(stmt)
		}
		if v.Expr != nil {
			v.Expr = s.walkStmt(v.Expr)
		}
		return v

	case *ast.Assign:
		v.LHS = s.walkStmt(v.LHS)
		v.RHS = s.walkStmt(v.RHS)
		return v

	case *ast.If:
		v.Cond = s.walkStmt(v.Cond)
		if v.Then != nil {
			v.Then = s.walkStmt(v.Then)
		}
		if v.Else != nil {
			v.Else = s.walkStmt(v.Else)
		}
		return v

	case *ast.While:
		v.Cond = s.walkStmt(v.Cond)
		v.Body = s.walkStmt(v.Body)
		return v

	case *ast.Send:
		if v.Recv != nil {
			v.Recv = s.walkStmt(v.Recv)
		}
		for i, a := range v.Args {
			v.Args[i] = s.walkStmt(a)
		}
		if v.Block != nil {
			v.Block.Body = s.walkStmt(v.Block.Body)
		}
		return v

	case *ast.Block:
		v.Body = s.walkStmt(v.Body)
		return v

	case *ast.Return:
		if v.Expr != nil {
			v.Expr = s.walkStmt(v.Expr)
		}
		return v

	case *ast.Break:
		if v.Expr != nil {
			v.Expr = s.walkStmt(v.Expr)
		}
		return v

	case *ast.Next:
		if v.Expr != nil {
			v.Expr = s.walkStmt(v.Expr)
		}
		return v

	case *ast.Yield:
		for i, a := range v.Args {
			v.Args[i] = s.walkStmt(a)
		}
		return v

	case *ast.Rescue:
		v.Body = s.walkStmt(v.Body)
		for _, c := range v.Cases {
			for i, e := range c.Exceptions {
				c.Exceptions[i] = s.walkStmt(e)
			}
			c.Body = s.walkStmt(c.Body)
		}
		if v.ElseClause != nil {
			v.ElseClause = s.walkStmt(v.ElseClause)
		}
		if v.Ensure != nil {
			v.Ensure = s.walkStmt(v.Ensure)
		}
		return v

	case *ast.Array:
		for i, e := range v.Elems {
			v.Elems[i] = s.walkStmt(e)
		}
		return v

	case *ast.Hash:
		for i, k := range v.Keys {
			v.Keys[i] = s.walkStmt(k)
		}
		for i, val := range v.Values {
			v.Values[i] = s.walkStmt(val)
		}
		return v

	case *ast.Cast:
		v.Expr = s.walkStmt(v.Expr)
		v.TypeExpr.Resolved = s.resolveTypeSyntax(v.TypeExpr.Source)
		return v

	default:
		return v
	}
}

// walkIdent rewrites instance/class-var references left untouched by namer
// into a field symbol under the enclosing real class (spec.md §4.2/§4.3).
// id.Name already carries its surface sigil ("@x"/"@@x", matching the "$x"
// convention namer relies on for globals), so an ivar, a cvar, and a method
// or constant spelled the same never collide in gstate's shared (owner,name)
// symbol table.
func (s *state) walkIdent(id *ast.UnresolvedIdent) ast.Node {
	switch id.IKind {
	case ast.IdentInstance, ast.IdentClass:
		sym := s.gs.EnterFieldSymbol(s.currentClass(), id.Name)
		return ast.NewConstantLit(id.Loc(), sym)
	default:
		return id
	}
}

// finalizeMethodResultType follows a chain of types.AliasType indirections
// (created by namer's alias_method handling) down to the first non-alias
// ResultType, so Infer never has to chase aliases itself.
func (s *state) finalizeMethodResultType(sym gstate.Symbol) {
	s.gs.Symbol(sym).ResultType = s.flattenAlias(s.gs.Symbol(sym).ResultType)
}

// flattenAlias follows a chain of types.AliasType indirections down to the
// first non-alias ResultType (or nil, meaning untyped).
func (s *state) flattenAlias(rt interface{}) interface{} {
	seen := map[gstate.Symbol]bool{}
	for {
		alias, ok := rt.(types.AliasType)
		if !ok || seen[alias.Symbol] {
			return rt
		}
		seen[alias.Symbol] = true
		rt = s.gs.Symbol(alias.Symbol).ResultType
	}
}
