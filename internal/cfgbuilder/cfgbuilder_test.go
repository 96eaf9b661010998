package cfgbuilder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/cfgbuilder"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/testutil"
)

func newMethod(gs *gstate.GlobalState, owner gstate.Symbol, name string, args []ast.Node, body ast.Node) *ast.MethodDef {
	return testutil.NewMethod(gs, owner, name, args, body, nil)
}

func TestBuildTrivialMethodReturnsLiteral(t *testing.T) {
	gs := gstate.New()
	body := ast.NewIntLit(gstate.Loc{}, 42)
	def := newMethod(gs, gs.WellKnown.Object, "answer", nil, body)

	c := cfgbuilder.Build(gs, def)

	require.NotNil(t, c)
	assert.Equal(t, def.Symbol, c.Symbol)
	assert.Same(t, c.Entry(), c.BasicBlocks[0])

	found := false
	for _, bb := range c.BasicBlocks {
		for _, e := range bb.Exprs {
			if ret, ok := e.Value.(cfg.Return); ok {
				found = true
				_ = ret
			}
		}
	}
	assert.True(t, found, "expected a Return binding somewhere in the built CFG")
}

func TestBuildIfBothBranchesJoin(t *testing.T) {
	gs := gstate.New()
	cond := ast.NewTrueLit(gstate.Loc{})
	then := ast.NewIntLit(gstate.Loc{}, 1)
	els := ast.NewIntLit(gstate.Loc{}, 2)
	body := ast.NewIf(gstate.Loc{}, cond, then, els)
	def := newMethod(gs, gs.WellKnown.Object, "pick", nil, body)

	c := cfgbuilder.Build(gs, def)

	assert.GreaterOrEqual(t, len(c.BasicBlocks), 4, "entry, dead, then, else at minimum")
	assert.NotEmpty(t, c.ForwardTopo)
	assert.NotEmpty(t, c.BackwardTopo)
}

func TestBuildWhileMarksLoopHeader(t *testing.T) {
	gs := gstate.New()
	cond := ast.NewTrueLit(gstate.Loc{})
	loopBody := ast.NewNilLit(gstate.Loc{})
	body := ast.NewWhile(gstate.Loc{}, cond, loopBody)
	def := newMethod(gs, gs.WellKnown.Object, "loop", nil, body)

	c := cfgbuilder.Build(gs, def)

	sawLoopHeader := false
	for _, bb := range c.BasicBlocks {
		if bb.HasFlag(cfg.FlagLoopHeader) {
			sawLoopHeader = true
		}
	}
	assert.True(t, sawLoopHeader, "while loop should mark a loop header block")
}

func TestBuildBreakWithNoEnclosingLoopReportsError(t *testing.T) {
	gs := gstate.New()
	gs.AddFile("t.rb", nil, diag.Strong)
	loc := gstate.Loc{File: 1}
	body := ast.NewBreak(loc, ast.NewNilLit(loc))
	def := newMethod(gs, gs.WellKnown.Object, "badbreak", nil, body)

	cfgbuilder.Build(gs, def)

	errs := gs.Errors.FlushFile("t.rb")
	require.Len(t, errs, 1)
	assert.Equal(t, 6002, int(errs[0].Code))
}

func TestBuildDesugaredArrayLiteralDispatchesToMagic(t *testing.T) {
	gs := gstate.New()
	body := ast.NewArray(gstate.Loc{}, []ast.Node{ast.NewIntLit(gstate.Loc{}, 1), ast.NewIntLit(gstate.Loc{}, 2)})
	def := newMethod(gs, gs.WellKnown.Object, "pair", nil, body)

	c := cfgbuilder.Build(gs, def)

	sawBuildArray := false
	for _, bb := range c.BasicBlocks {
		for _, e := range bb.Exprs {
			if s, ok := e.Value.(cfg.Send); ok && gs.Text(s.Fun) == "buildArray" {
				sawBuildArray = true
			}
		}
	}
	assert.True(t, sawBuildArray)
}
