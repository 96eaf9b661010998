package resolver

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/toposet"
)

// resolveAncestors flattens each recorded ClassDef's declared ancestors
// (already turned into ConstantLit by walkClassDef) into GlobalState's
// SuperClass/Ancestors fields, processing classes in an order that
// guarantees a superclass's own Ancestors are already flattened before its
// subclasses run (spec.md §4.3, §9 "Cyclic class graphs").
func (s *state) resolveAncestors() {
	t := toposet.New()
	declared := map[gstate.Symbol][]gstate.Symbol{}
	kinds := map[gstate.Symbol]ast.ClassKind{}

	for _, cd := range s.classes {
		t.AddNode(cd.Symbol)
		kinds[cd.Symbol] = cd.ClassKind
		var ancs []gstate.Symbol
		for _, anc := range cd.Ancestors {
			lit, ok := anc.(*ast.ConstantLit)
			if !ok {
				continue
			}
			ancs = append(ancs, lit.Symbol)
			t.AddNode(lit.Symbol)
			t.AddEdge(cd.Symbol, lit.Symbol)
		}
		declared[cd.Symbol] = ancs
	}
	t.Sort()

	cyclic := map[gstate.Symbol]bool{}
	for _, cycle := range t.Cycles() {
		for _, sym := range cycle {
			cyclic[sym] = true
		}
		s.reportCycle(cycle)
	}

	for _, sym := range t.Order() {
		kind, known := kinds[sym]
		if !known {
			// sym is some other class's resolved ancestor that this program
			// never itself defines (e.g. a builtin); nothing to flatten.
			continue
		}
		s.flattenOneClass(sym, kind, declared[sym], cyclic[sym])
	}
}

func (s *state) flattenOneClass(sym gstate.Symbol, kind ast.ClassKind, ancs []gstate.Symbol, cyclic bool) {
	data := s.gs.Symbol(sym)
	if cyclic {
		data.SuperClass = s.gs.WellKnown.Object
		data.Ancestors = append([]gstate.Symbol{}, ancs...)
		return
	}

	var super gstate.Symbol
	var mixins []gstate.Symbol
	if kind == ast.ClassKindClass {
		for _, a := range ancs {
			if super == gstate.NoSymbol && s.gs.Symbol(a).Kind.Has(gstate.KindClass) && !s.gs.Symbol(a).Kind.Has(gstate.KindModule) {
				super = a
				continue
			}
			mixins = append(mixins, a)
		}
		if super == gstate.NoSymbol && sym != s.gs.WellKnown.BasicObject {
			super = s.gs.WellKnown.Object
		}
	} else {
		mixins = ancs
	}

	seen := map[gstate.Symbol]bool{sym: true}
	var flat []gstate.Symbol
	add := func(s gstate.Symbol) {
		if !seen[s] {
			seen[s] = true
			flat = append(flat, s)
		}
	}
	for _, m := range mixins {
		add(m)
		for _, a := range s.gs.Symbol(m).Ancestors {
			add(a)
		}
	}
	if super != gstate.NoSymbol {
		add(super)
		for _, a := range s.gs.Symbol(super).Ancestors {
			add(a)
		}
	}

	data.SuperClass = super
	data.Ancestors = flat
}

func (s *state) reportCycle(cycle []gstate.Symbol) {
	if len(cycle) == 0 {
		return
	}
	loc := s.gs.Symbol(cycle[0]).Loc
	s.report(diag.ResolverCyclicAncestors, loc, "cyclic class ancestry involving %d classes", len(cycle))
}
