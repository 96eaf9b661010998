package resolver

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// tryAttr recognizes `attr_reader`/`attr_writer`/`attr_accessor :a, :b, ...`
// in a class body, entering an instance field plus the corresponding
// accessor method(s) for every named attribute (spec.md §4.3 "defining
// attributes (attr_reader etc.)"). Unlike namer's include/visibility
// handling, attr_* calls are real Kernel methods that could in principle be
// called on a non-literal argument list; only the literal-symbol-arguments
// form is recognized, matching how Sorbet itself only understands the
// static form.
func (s *state) tryAttr(send *ast.Send) bool {
	var makeReader, makeWriter bool
	switch s.gs.Text(send.Method) {
	case "attr_reader":
		makeReader = true
	case "attr_writer":
		makeWriter = true
	case "attr_accessor":
		makeReader, makeWriter = true, true
	default:
		return false
	}

	owner := s.currentClass()
	for _, a := range send.Args {
		lit, ok := a.(*ast.SymbolLit)
		if !ok {
			continue
		}
		// lit.Value is the bare attribute name ("bar" from :bar); "@"-tag it so
		// the backing field never collides with the reader method of the same
		// spelling in gstate's shared (owner,name) symbol table.
		fieldName := s.gs.InternUTF8("@" + s.gs.Text(lit.Value))
		field := s.gs.EnterFieldSymbol(owner, fieldName)
		s.gs.Symbol(field).Loc = send.Loc()

		fieldType := s.flattenAlias(types.NewAlias(field))
		if makeReader {
			m, _ := s.gs.EnterMethodSymbol(owner, lit.Value)
			s.gs.Symbol(m).Loc = send.Loc()
			s.gs.Symbol(m).ResultType = fieldType
		}
		if makeWriter {
			writerName := s.gs.InternUTF8(s.gs.Text(lit.Value) + "=")
			m, _ := s.gs.EnterMethodSymbol(owner, writerName)
			s.gs.Symbol(m).Loc = send.Loc()
			s.gs.Symbol(m).Args = []gstate.ArgInfo{{Name: lit.Value, Loc: send.Loc(), ResultType: fieldType}}
			s.gs.Symbol(m).ResultType = fieldType
		}
	}
	return true
}
