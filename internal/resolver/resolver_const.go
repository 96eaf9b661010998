package resolver

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
)

// resolveConstantRef turns an UnresolvedConstant (or a no-op ConstantLit) into
// a *ast.ConstantLit bound to a real symbol, always succeeding: a name found
// nowhere along the lexical scope chain gets a freshly synthesized stub
// symbol entered under <root>, plus a recorded ResolverUnresolvedConstant
// (spec.md §4.3).
func (s *state) resolveConstantRef(n ast.Node) *ast.ConstantLit {
	switch v := n.(type) {
	case *ast.ConstantLit:
		return v
	case *ast.UnresolvedConstant:
		var sym gstate.Symbol
		if v.Scope != nil {
			scope := s.resolveConstantRef(v.Scope)
			sym, _ = s.gs.LookupMember(scope.Symbol, v.Name)
			if sym == gstate.NoSymbol {
				sym = s.stubConstant(v, scope.Symbol)
			}
		} else {
			sym = s.lookupLexical(v.Name)
			if sym == gstate.NoSymbol {
				sym = s.stubConstant(v, gstate.RootSymbol)
			}
		}
		lit := ast.NewConstantLit(v.Loc(), sym)
		return lit
	default:
		s.report(diag.InternalError, n.Loc(), "expected a constant path, got %T", n)
		return ast.NewConstantLit(n.Loc(), s.gs.WellKnown.Object)
	}
}

// lookupLexical searches classStack from innermost to <root>, mirroring
// Ruby's lexical (not inheritance-based) constant lookup: a class nested
// inside Outer can see Outer's sibling constants unqualified.
func (s *state) lookupLexical(name gstate.Name) gstate.Symbol {
	for i := len(s.classStack) - 1; i >= 0; i-- {
		if sym, ok := s.gs.LookupMember(s.classStack[i], name); ok {
			return sym
		}
	}
	if sym, ok := s.gs.LookupMember(gstate.RootSymbol, name); ok {
		return sym
	}
	return gstate.NoSymbol
}

func (s *state) stubConstant(v *ast.UnresolvedConstant, owner gstate.Symbol) gstate.Symbol {
	s.report(diag.ResolverUnresolvedConstant, v.Loc(), "unresolved constant %q", s.gs.Text(v.Name))
	return s.gs.EnterClassSymbol(owner, v.Name)
}
