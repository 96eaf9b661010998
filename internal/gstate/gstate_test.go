package gstate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
)

func TestInternDedup(t *testing.T) {
	g := gstate.New()
	a := g.InternUTF8("foo")
	b := g.InternUTF8("foo")
	assert.Equal(t, a, b)
	c := g.InternConstant("Foo")
	assert.NotEqual(t, a, c)
	assert.Equal(t, gstate.UTF8Kind, g.Kind(a))
	assert.Equal(t, gstate.ConstantKind, g.Kind(c))
}

func TestFreshNamePerBaseCounter(t *testing.T) {
	g := gstate.New()
	base := g.InternUTF8("x")
	t1 := g.FreshName(gstate.UniqueAndOrTemp, base)
	t2 := g.FreshName(gstate.UniqueAndOrTemp, base)
	assert.NotEqual(t, t1, t2)
	gotBase, ok := g.UniqueBase(t1)
	require.True(t, ok)
	assert.Equal(t, base, gotBase)
}

func TestEnterClassSymbolIdempotent(t *testing.T) {
	g := gstate.New()
	tok := g.Unfreeze()
	name := g.InternConstant("Foo")
	a := g.EnterClassSymbol(gstate.RootSymbol, name)
	b := g.EnterClassSymbol(gstate.RootSymbol, name)
	tok.Release()
	assert.Equal(t, a, b)
	assert.True(t, g.Symbol(a).Kind.Has(gstate.KindClass))
}

func TestMutationRequiresUnfreeze(t *testing.T) {
	g := gstate.New()
	assert.Panics(t, func() {
		g.EnterClassSymbol(gstate.RootSymbol, g.InternConstant("Foo"))
	})
}

func TestFilesAndLoc(t *testing.T) {
	g := gstate.New()
	ref := g.AddFile("foo.rb", []byte("x = 1"), diag.True)
	loc := gstate.Loc{File: ref, Begin: 0, End: 1, Line: 1}
	rendered := g.RenderLoc(loc)
	assert.Equal(t, "foo.rb", rendered.File)
}

func TestMergeProducesSubstitution(t *testing.T) {
	canon := gstate.New()
	worker := gstate.New()

	tok := worker.Unfreeze()
	cName := worker.InternConstant("Foo")
	cls := worker.EnterClassSymbol(gstate.RootSymbol, cName)
	worker.Symbol(cls).Loc = gstate.Loc{}
	tok.Release()

	sub := canon.Merge(worker)
	canonName := canon.InternConstant("Foo")
	canonCls, ok := canon.LookupMember(gstate.RootSymbol, canonName)
	require.True(t, ok)
	assert.Equal(t, canonCls, sub.Symbol(cls))
}
