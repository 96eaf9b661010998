package namer

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/gstate"
)

// nameStmt rewrites n in place (for node kinds whose identity doesn't
// change) or returns a replacement node, recursing into every child.
func (s *state) nameStmt(n ast.Node) ast.Node {
	switch v := n.(type) {
	case nil:
		return nil

	case *ast.ClassDef:
		s.nameClassDef(v)
		return v

	case *ast.MethodDef:
		s.nameMethodDef(v)
		return v

	case *ast.UnresolvedIdent:
		return s.nameIdent(v)

	case *ast.UnresolvedConstant:
		if v.Scope != nil {
			v.Scope = s.nameStmt(v.Scope)
		}
		return v

	case *ast.InsSeq:
		for i, stmt := range v.Stats {
			v.Stats[i] = s.nameStmt(stmt)
		}
		if v.Expr != nil {
			v.Expr = s.nameStmt(v.Expr)
		}
		return v

	case *ast.Assign:
		v.LHS = s.nameStmt(v.LHS)
		v.RHS = s.nameStmt(v.RHS)
		return v

	case *ast.If:
		v.Cond = s.nameStmt(v.Cond)
		if v.Then != nil {
			v.Then = s.nameStmt(v.Then)
		}
		if v.Else != nil {
			v.Else = s.nameStmt(v.Else)
		}
		return v

	case *ast.While:
		v.Cond = s.nameStmt(v.Cond)
		v.Body = s.nameStmt(v.Body)
		return v

	case *ast.Send:
		if v.Recv != nil {
			v.Recv = s.nameStmt(v.Recv)
		}
		for i, a := range v.Args {
			v.Args[i] = s.nameStmt(a)
		}
		if v.Block != nil {
			s.nameBlock(v.Block)
		}
		return v

	case *ast.Block:
		s.nameBlock(v)
		return v

	case *ast.Return:
		if v.Expr != nil {
			v.Expr = s.nameStmt(v.Expr)
		}
		return v

	case *ast.Break:
		if v.Expr != nil {
			v.Expr = s.nameStmt(v.Expr)
		}
		return v

	case *ast.Next:
		if v.Expr != nil {
			v.Expr = s.nameStmt(v.Expr)
		}
		return v

	case *ast.Yield:
		for i, a := range v.Args {
			v.Args[i] = s.nameStmt(a)
		}
		return v

	case *ast.Rescue:
		v.Body = s.nameStmt(v.Body)
		for _, c := range v.Cases {
			s.nameRescueCase(c)
		}
		if v.ElseClause != nil {
			v.ElseClause = s.nameStmt(v.ElseClause)
		}
		if v.Ensure != nil {
			v.Ensure = s.nameStmt(v.Ensure)
		}
		return v

	case *ast.Array:
		for i, e := range v.Elems {
			v.Elems[i] = s.nameStmt(e)
		}
		return v

	case *ast.Hash:
		for i, k := range v.Keys {
			v.Keys[i] = s.nameStmt(k)
		}
		for i, val := range v.Values {
			v.Values[i] = s.nameStmt(val)
		}
		return v

	case *ast.Cast:
		v.Expr = s.nameStmt(v.Expr)
		return v

	// Already-terminal node kinds: nothing to rewrite below them.
	case *ast.NilLit, *ast.TrueLit, *ast.FalseLit, *ast.IntLit, *ast.FloatLit,
		*ast.StringLit, *ast.SymbolLit, *ast.SelfLit, *ast.LocalRef,
		*ast.ConstantLit, *ast.EmptyTree, *ast.ZSuperArgs, *ast.Retry:
		return v

	// Argument wrappers are only ever rewritten from nameArgs; reaching them
	// here means a bare wrapper appears outside a formal-argument list,
	// which desugar never produces. Recurse defensively anyway.
	case *ast.RestArg:
		v.Inner = s.nameStmt(v.Inner)
		return v
	case *ast.KeywordArg:
		v.Inner = s.nameStmt(v.Inner)
		return v
	case *ast.OptionalArg:
		v.Inner = s.nameStmt(v.Inner)
		if v.Default != nil {
			v.Default = s.nameStmt(v.Default)
		}
		return v
	case *ast.BlockArg:
		v.Inner = s.nameStmt(v.Inner)
		return v
	case *ast.ShadowArg:
		v.Inner = s.nameStmt(v.Inner)
		return v

	default:
		return v
	}
}

func (s *state) nameRescueCase(c *ast.RescueCase) {
	for i, e := range c.Exceptions {
		c.Exceptions[i] = s.nameStmt(e)
	}
	c.Body = s.nameStmt(c.Body)
}

func (s *state) nameBlock(b *ast.Block) {
	s.pushFrame()
	for i, a := range b.Args {
		b.Args[i] = s.nameFormalArg(a, nil)
	}
	b.Body = s.nameStmt(b.Body)
	s.popFrame()
}

// nameIdent rewrites local and global identifier references. Instance and
// class-var idents are left untouched (spec.md §4.2: "Instance and class-var
// idents remain unresolved at this phase (resolver handles them)").
func (s *state) nameIdent(id *ast.UnresolvedIdent) ast.Node {
	switch id.IKind {
	case ast.IdentLocal:
		v, ok := s.lookupLocal(id.Name)
		if !ok {
			v = s.bindLocal(id.Name)
		}
		ref := &ast.LocalRef{Var: v}
		ref.SetLoc(id.Loc())
		return ref
	case ast.IdentGlobal:
		sym := s.gs.EnterFieldSymbol(gstate.RootSymbol, id.Name)
		lit := &ast.ConstantLit{Symbol: sym}
		lit.SetLoc(id.Loc())
		return lit
	default:
		return id
	}
}

// nameMethodDef enters m's symbol on the current class (the singleton owner
// when the method is declared `def self.foo` or sits inside a
// `class << self` body; under an active bare `module_function` the method is
// entered on the current class and then also aliased onto the singleton),
// binds its formal arguments as locals in a fresh frame, and walks its body.
func (s *state) nameMethodDef(m *ast.MethodDef) {
	owner := s.currentClass()
	alsoAliasInstance := false
	if m.Flags&ast.MethodSelf != 0 {
		owner = s.gs.SingletonOf(owner)
	} else if s.moduleFunction[len(s.moduleFunction)-1] {
		alsoAliasInstance = true
	}

	sym, existed := s.gs.EnterMethodSymbol(owner, m.Name)
	if existed {
		s.reportRedefinition(m.Loc(), s.gs.Text(m.Name), s.gs.Symbol(sym).Loc)
	}
	m.Symbol = sym
	s.gs.Symbol(sym).Loc = m.DeclLoc
	s.gs.Symbol(sym).Visibility = s.currentVisibility(m)

	s.pushFrame()
	var args []gstate.ArgInfo
	for i, a := range m.Args {
		var info gstate.ArgInfo
		m.Args[i], info = s.nameFormalArgInfo(a)
		if !info.Shadow {
			args = append(args, info)
		}
	}
	s.gs.Symbol(sym).Args = args
	m.Body = s.nameStmt(m.Body)
	s.popFrame()

	if alsoAliasInstance {
		s.aliasOntoSingleton(sym)
	}
}

func (s *state) currentVisibility(m *ast.MethodDef) gstate.Visibility {
	switch {
	case m.Flags&ast.MethodPrivate != 0:
		return gstate.Private
	case m.Flags&ast.MethodProtected != 0:
		return gstate.Protected
	case m.Flags&ast.MethodPublic != 0:
		return gstate.Public
	default:
		return s.visibility[len(s.visibility)-1]
	}
}

// nameFormalArg is nameFormalArgInfo's counterpart for Block args, which
// have no ArgInfo (blocks carry no method symbol of their own).
func (s *state) nameFormalArg(a ast.Node, _ *gstate.ArgInfo) ast.Node {
	rewritten, _ := s.unwrapFormalArg(a, gstate.ArgInfo{})
	return rewritten
}

// nameFormalArgInfo unwraps one formal-argument wrapper chain (produced by
// desugar's arg-spec lowering: Rest/Keyword/Optional/Block/Shadow wrapping an
// inner `UnresolvedIdent{IdentLocal}`), binds the wrapped name as a local in
// the current frame, and reports the ArgInfo entry the owning method symbol
// should record (spec.md §4.2).
func (s *state) nameFormalArgInfo(a ast.Node) (ast.Node, gstate.ArgInfo) {
	return s.unwrapFormalArg(a, gstate.ArgInfo{})
}

func (s *state) unwrapFormalArg(a ast.Node, info gstate.ArgInfo) (ast.Node, gstate.ArgInfo) {
	switch v := a.(type) {
	case *ast.RestArg:
		info.Rest = true
		inner, info := s.unwrapFormalArg(v.Inner, info)
		v.Inner = inner
		return v, info
	case *ast.KeywordArg:
		info.Keyword = true
		inner, info := s.unwrapFormalArg(v.Inner, info)
		v.Inner = inner
		return v, info
	case *ast.OptionalArg:
		info.Optional = true
		inner, info := s.unwrapFormalArg(v.Inner, info)
		v.Inner = inner
		if v.Default != nil {
			v.Default = s.nameStmt(v.Default)
		}
		return v, info
	case *ast.BlockArg:
		info.Block = true
		inner, info := s.unwrapFormalArg(v.Inner, info)
		v.Inner = inner
		return v, info
	case *ast.ShadowArg:
		info.Shadow = true
		inner, info := s.unwrapFormalArg(v.Inner, info)
		v.Inner = inner
		return v, info
	case *ast.UnresolvedIdent:
		info.Name = v.Name
		info.Loc = v.Loc()
		local := s.bindLocal(v.Name)
		return &ast.LocalRef{Var: local}, info
	default:
		return a, info
	}
}
