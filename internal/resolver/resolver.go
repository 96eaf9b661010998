// Package resolver implements Resolver (spec.md §4.3): runs after Namer has
// walked every file, binds constant references and type annotations to
// symbols, defines attr_reader/attr_writer/attr_accessor, and installs
// superclass/mixin relations.
//
// Because Namer enters every class/method/field symbol named anywhere in the
// program before Resolver ever starts (spec.md §4.3 "walks all files
// together"), a bare constant reference always resolves against an already
// complete symbol table — the only genuine ordering dependency left is
// ancestor-chain flattening, where a subclass's transitive Ancestors list
// needs its superclass's to already be computed. That dependency is handled
// by internal/toposet (see resolver_ancestors.go), grounded on the teacher's
// columnsorter package. Resolution proper (resolveConstantRef) needs no
// fixpoint loop of its own: a name that resolves against no lexical scope is
// immediately turned into a synthesized stub symbol plus a recorded error,
// matching spec.md §4.3's "unresolved ones have been assigned to a
// synthesized stub symbol with a recorded error".
package resolver

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

type state struct {
	gs *gstate.GlobalState
	u  *types.Universe

	// classStack is the *lexical* class-nesting stack: unlike namer's
	// classStack, a singleton (`class << self`/`def self.foo`) body never
	// pushes a new entry here, so `@@x` reads inside a singleton method still
	// target the enclosing class's own field table (SUPPLEMENTED FEATURES #5).
	classStack []gstate.Symbol

	// classes accumulates every ClassDef reached during the walk, keyed by
	// symbol, so resolver_ancestors.go can flatten ancestor chains afterward
	// in dependency order.
	classes []*ast.ClassDef
}

// Resolve processes every file's root ClassDef together. Callers must have
// already run Namer on each root (and must not be holding an Unfreeze token
// of their own).
func Resolve(gs *gstate.GlobalState, roots []*ast.ClassDef) {
	tok := gs.Unfreeze()
	defer tok.Release()

	s := &state{gs: gs, u: types.New(gs), classStack: []gstate.Symbol{gstate.RootSymbol}}
	types.InstallMagicMethods(gs)
	for _, root := range roots {
		s.walkClassDef(root)
	}
	s.resolveAncestors()
}

func (s *state) currentClass() gstate.Symbol { return s.classStack[len(s.classStack)-1] }

func (s *state) report(code diag.Code, loc gstate.Loc, format string, args ...interface{}) {
	level := diag.Strong
	if loc.File != gstate.NoFile {
		level = s.gs.File(loc.File).Strictness
	}
	s.gs.Errors.Push(level, diag.New(code, s.gs.RenderLoc(loc), format, args...))
}
