// Package testutil collects the small pieces of throwaway GlobalState setup
// every stage's tests otherwise reimplement locally: building a MethodDef
// symbol by hand, the way a real parse + Namer run would produce one.
//
// Grounded on gqltest.go's shape (a package of Eval/NewSession/ReadTable
// helpers the teacher's own table/eval tests call into rather than each
// setting up a session inline) and its use of
// github.com/grailbio/base/must for invariant checks a test helper can't
// recover from, in place of testify's require (testify asserts from inside
// a *testing.T; must panics, which is the right failure mode here since
// these helpers also run from non-test callers like golden fixture setup).
package testutil

import (
	"github.com/grailbio/base/must"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// NewMethod builds a MethodDef owned by owner, with its method symbol
// already entered into gs the way Namer's class/method pass would. If
// resultType is non-nil it's installed directly on the symbol, standing in
// for a Resolver pass this helper skips.
func NewMethod(gs *gstate.GlobalState, owner gstate.Symbol, name string, args []ast.Node, body ast.Node, resultType types.Type) *ast.MethodDef {
	def := ast.NewMethodDef(gstate.Loc{}, gs.InternUTF8(name), args, body, 0)
	tok := gs.Unfreeze()
	sym, _ := gs.EnterMethodSymbol(owner, gs.InternUTF8(name))
	tok.Release()
	must.Truef(sym != gstate.NoSymbol, "EnterMethodSymbol(%s) returned NoSymbol", name)
	def.Symbol = sym
	if resultType != nil {
		gs.Symbol(sym).ResultType = resultType
	}
	return def
}

// LocalVar interns name and returns a fresh, non-sentinel LocalVar for it,
// for tests that need to read and write the same user local more than once
// (e.g. a `let`-pinned variable reassigned later in the same method).
func LocalVar(gs *gstate.GlobalState, name string) ast.LocalVar {
	return ast.LocalVar{Name: gs.InternUTF8(name)}
}
