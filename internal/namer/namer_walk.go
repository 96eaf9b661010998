package namer

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
)

// nameClassDef enters cd's symbol, resolves its Name's constant path,
// processes its class-body statements (include/visibility/alias_method),
// and recurses into nested definitions.
func (s *state) nameClassDef(cd *ast.ClassDef) {
	owner := s.currentClass()
	if cd.ClassKind == ast.ClassKindSingleton {
		cd.Symbol = s.gs.SingletonOf(owner)
	} else {
		cd.Symbol = s.resolveClassPath(cd.Name, owner)
		if cd.ClassKind == ast.ClassKindModule {
			s.gs.Symbol(cd.Symbol).Kind |= gstate.KindModule
		} else {
			s.gs.Symbol(cd.Symbol).Kind |= gstate.KindClass
		}
	}
	if cd.Loc() != (gstate.Loc{}) {
		s.gs.Symbol(cd.Symbol).Loc = cd.DeclLoc
	}

	for i, anc := range cd.Ancestors {
		cd.Ancestors[i] = s.nameStmt(anc)
	}

	s.classStack = append(s.classStack, cd.Symbol)
	s.visibility = append(s.visibility, gstate.Public)
	s.moduleFunction = append(s.moduleFunction, false)
	s.pushFrame()

	cd.RHS = s.nameClassBody(cd)

	s.popFrame()
	s.moduleFunction = s.moduleFunction[:len(s.moduleFunction)-1]
	s.visibility = s.visibility[:len(s.visibility)-1]
	s.classStack = s.classStack[:len(s.classStack)-1]
}

// resolveClassPath squashes a (possibly `A::B::C`-shaped) class name into a
// chain of EnterClassSymbol calls. A bare name resolves relative to the
// current lexical owner; an explicit `::`-qualified path resolves relative
// to <root> (spec.md §4.2 "squashed into a chain of enterClassSymbol
// calls, producing a symbol whose owner chain mirrors the constant path").
func (s *state) resolveClassPath(n ast.Node, lexicalOwner gstate.Symbol) gstate.Symbol {
	switch v := n.(type) {
	case *ast.UnresolvedConstant:
		owner := lexicalOwner
		if v.Scope != nil {
			owner = s.resolveClassPath(v.Scope, gstate.RootSymbol)
		}
		return s.gs.EnterClassSymbol(owner, v.Name)
	case *ast.ConstantLit:
		return v.Symbol
	default:
		s.report(diag.InternalError, n.Loc(), "class name is not a constant path")
		return s.gs.EnterClassSymbol(lexicalOwner, s.gs.InternConstant("$InvalidClassName"))
	}
}

// nameClassBody processes one class/module/singleton body's direct
// statements, handling include/visibility/alias_method specially and
// recursing generically into everything else.
func (s *state) nameClassBody(cd *ast.ClassDef) []ast.Node {
	var ancestors []ast.Node
	var rhs []ast.Node
	for _, stmt := range cd.RHS {
		if send, ok := stmt.(*ast.Send); ok && send.Flags&ast.SendSelf != 0 {
			if keep, anc := s.tryInclude(send); !keep {
				if anc != nil {
					ancestors = append(ancestors, anc)
				}
				continue
			}
			if s.tryVisibilityCall(send) {
				continue
			}
			if s.tryAliasMethod(send) {
				continue
			}
		}
		rhs = append(rhs, s.nameStmt(stmt))
	}
	cd.Ancestors = append(cd.Ancestors, ancestors...)
	return rhs
}

// tryInclude recognizes `include Foo`. It returns keep=false and the
// ancestor node to append when the call is well-formed; keep=true means the
// statement is unrelated or malformed and should stay in the body.
func (s *state) tryInclude(send *ast.Send) (keep bool, ancestor ast.Node) {
	if s.gs.Text(send.Method) != "include" {
		return true, nil
	}
	if send.Block != nil {
		s.report(diag.NamerIncludePassedBlock, send.Loc(), "include does not take a block")
		return true, nil
	}
	if len(send.Args) != 1 {
		s.report(diag.NamerIncludeMultipleParam, send.Loc(), "include takes exactly one argument, got %d", len(send.Args))
		return true, nil
	}
	switch send.Args[0].(type) {
	case *ast.UnresolvedConstant, *ast.ConstantLit:
		return false, send.Args[0]
	default:
		s.report(diag.NamerIncludeNotConstant, send.Loc(), "include argument must be a constant")
		return true, nil
	}
}

// tryVisibilityCall recognizes bare and wrapping forms of
// private/protected/public/private_class_method/module_function.
func (s *state) tryVisibilityCall(send *ast.Send) bool {
	name := s.gs.Text(send.Method)
	var vis gstate.Visibility
	switch name {
	case "private":
		vis = gstate.Private
	case "private_class_method":
		// private_class_method never touches the instance method's own
		// visibility; it only hides the singleton (class-method) alias.
		for i, a := range send.Args {
			send.Args[i] = s.nameStmt(a)
		}
		for _, a := range send.Args {
			sym, ok := s.resolveVisibilityTarget(a)
			if !ok {
				continue
			}
			singleton, ok := s.gs.LookupSingletonOf(s.currentClass())
			if !ok {
				continue
			}
			if m, ok := s.gs.LookupMember(singleton, s.gs.Symbol(sym).Name); ok {
				s.gs.Symbol(m).Visibility = gstate.Private
			}
		}
		return true
	case "protected":
		vis = gstate.Protected
	case "public":
		vis = gstate.Public
	case "module_function":
		if len(send.Args) == 0 {
			s.moduleFunction[len(s.moduleFunction)-1] = true
			return true
		}
		for i, a := range send.Args {
			send.Args[i] = s.nameStmt(a)
		}
		for _, a := range send.Args {
			if sym, ok := s.resolveVisibilityTarget(a); ok {
				s.aliasOntoSingleton(sym)
			}
		}
		return true
	default:
		return false
	}
	if len(send.Args) == 0 {
		s.visibility[len(s.visibility)-1] = vis
		return true
	}
	for i, a := range send.Args {
		send.Args[i] = s.nameStmt(a)
	}
	for _, a := range send.Args {
		if sym, ok := s.resolveVisibilityTarget(a); ok {
			s.gs.Symbol(sym).Visibility = vis
		}
	}
	return true
}

// resolveVisibilityTarget extracts the method symbol a private/protected/
// public/module_function argument refers to: either a MethodDef just
// entered inline, or a symbol literal naming an existing method.
func (s *state) resolveVisibilityTarget(a ast.Node) (gstate.Symbol, bool) {
	switch v := a.(type) {
	case *ast.MethodDef:
		return v.Symbol, true
	case *ast.SymbolLit:
		return s.gs.LookupMember(s.currentClass(), v.Value)
	default:
		return gstate.NoSymbol, false
	}
}

func (s *state) aliasOntoSingleton(instanceMethod gstate.Symbol) {
	singleton := s.gs.SingletonOf(s.currentClass())
	name := s.gs.Symbol(instanceMethod).Name
	alias, existed := s.gs.EnterMethodSymbol(singleton, name)
	if !existed {
		s.gs.Symbol(alias).Args = s.gs.Symbol(instanceMethod).Args
		s.gs.Symbol(alias).Loc = s.gs.Symbol(instanceMethod).Loc
	}
}

// tryAliasMethod recognizes `alias_method :to, :from`.
func (s *state) tryAliasMethod(send *ast.Send) bool {
	if s.gs.Text(send.Method) != "alias_method" || len(send.Args) != 2 {
		return false
	}
	toLit, toOK := send.Args[0].(*ast.SymbolLit)
	fromLit, fromOK := send.Args[1].(*ast.SymbolLit)
	if !toOK || !fromOK {
		return false
	}
	owner := s.currentClass()
	alias, _ := s.gs.EnterMethodSymbol(owner, toLit.Value)
	s.gs.Symbol(alias).Loc = send.Loc()
	if from, ok := s.gs.LookupMember(owner, fromLit.Value); ok {
		s.gs.Symbol(alias).ResultType = aliasOf(from)
	}
	return true
}
