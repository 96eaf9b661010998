// Package namer implements Namer (spec.md §4.2): walks a desugared AST,
// creates class/method/argument symbols, squashes constant paths into
// `EnterClassSymbol` chains, rewrites local/global identifier references,
// and expands `include`/`private`/`alias_method` class-body calls.
//
// Grounded on gql/eval.go's `bindings`: a stack of frames each owning a
// Name-to-value map, copied wholesale on push so a child frame's own
// entries shadow by simple re-insertion rather than chained lookup. Namer's
// scope frames follow the same shape, replacing Value with ast.LocalVar.
package namer

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
)

type state struct {
	gs *gstate.GlobalState

	frames []map[gstate.Name]ast.LocalVar

	// classStack is the lexical owner stack: classStack[len-1] is the symbol
	// new nested class/module/method definitions are entered under.
	classStack []gstate.Symbol

	// visibility tracks the current default method visibility per class
	// scope (spec.md §4.2's bare `private`/`protected`/`public`).
	visibility []gstate.Visibility

	// moduleFunction tracks the per-scope flag a bare `module_function` call
	// sets, causing subsequent MethodDefs to also alias onto the singleton.
	moduleFunction []bool
}

// Name walks root (the file's top-level ClassDef produced by Desugar) and
// populates GlobalState's symbol table. It opens its own Unfreeze/Release
// scope; the caller must not already hold one.
func Name(gs *gstate.GlobalState, root *ast.ClassDef) {
	tok := gs.Unfreeze()
	defer tok.Release()

	s := &state{gs: gs}
	s.frames = []map[gstate.Name]ast.LocalVar{{}}
	s.classStack = []gstate.Symbol{gstate.RootSymbol}
	s.visibility = []gstate.Visibility{gstate.Public}
	s.moduleFunction = []bool{false}

	s.nameClassDef(root)
}

func (s *state) pushFrame() {
	parent := s.frames[len(s.frames)-1]
	child := make(map[gstate.Name]ast.LocalVar, len(parent))
	for k, v := range parent {
		child[k] = v
	}
	s.frames = append(s.frames, child)
}

func (s *state) popFrame() { s.frames = s.frames[:len(s.frames)-1] }

func (s *state) bindLocal(name gstate.Name) ast.LocalVar {
	v := ast.LocalVar{Name: name, UniqueID: s.gs.FreshID()}
	s.frames[len(s.frames)-1][name] = v
	return v
}

func (s *state) lookupLocal(name gstate.Name) (ast.LocalVar, bool) {
	v, ok := s.frames[len(s.frames)-1][name]
	return v, ok
}

func (s *state) currentClass() gstate.Symbol { return s.classStack[len(s.classStack)-1] }

func (s *state) report(code diag.Code, loc gstate.Loc, format string, args ...interface{}) {
	level := diag.Strong
	if loc.File != gstate.NoFile {
		level = s.gs.File(loc.File).Strictness
	}
	s.gs.Errors.Push(level, diag.New(code, s.gs.RenderLoc(loc), format, args...))
}

// reportRedefinition is like report but attaches a section pointing at the
// previous definition's location (spec.md §4.2 "a note pointing at the
// previous definition").
func (s *state) reportRedefinition(loc gstate.Loc, name string, prev gstate.Loc) {
	level := diag.Strong
	if loc.File != gstate.NoFile {
		level = s.gs.File(loc.File).Strictness
	}
	err := diag.New(diag.NamerRedefinitionOfMethod, s.gs.RenderLoc(loc), "method %q redefined", name).
		WithSection("previous definition", s.gs.RenderLoc(prev))
	s.gs.Errors.Push(level, err)
}
