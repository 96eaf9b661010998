package infer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/cfgbuilder"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/infer"
	"github.com/sorbetgo/checker/internal/testutil"
	"github.com/sorbetgo/checker/internal/types"
)

func newMethod(gs *gstate.GlobalState, owner gstate.Symbol, name string, args []ast.Node, body ast.Node, resultType types.Type) *ast.MethodDef {
	return testutil.NewMethod(gs, owner, name, args, body, resultType)
}

func build(t *testing.T, gs *gstate.GlobalState, def *ast.MethodDef) *cfg.CFG {
	t.Helper()
	c := cfgbuilder.Build(gs, def)
	require.NotNil(t, c)
	return c
}

func allBindings(c *cfg.CFG) []*cfg.Binding {
	var out []*cfg.Binding
	for _, bb := range c.BasicBlocks {
		for i := range bb.Exprs {
			out = append(out, &bb.Exprs[i])
		}
	}
	return out
}

func TestRunTypesLiteralReturnMatchingDeclaredType(t *testing.T) {
	gs := gstate.New()
	gs.AddFile("t.rb", nil, diag.Strong)
	loc := gstate.Loc{File: 1}
	body := ast.NewIntLit(loc, 42)
	def := newMethod(gs, gs.WellKnown.Object, "answer", nil, body, types.NewClass(gs.WellKnown.Integer))

	c := build(t, gs, def)
	u := types.New(gs)
	infer.Run(gs, u, c)

	errs := gs.Errors.FlushFile("t.rb")
	assert.Empty(t, errs)

	sawLiteral := false
	for _, b := range allBindings(c) {
		if _, ok := b.Value.(cfg.Literal); ok {
			require.NotNil(t, b.ComputedType)
			sawLiteral = true
		}
	}
	assert.True(t, sawLiteral, "expected a typed Literal binding")
}

func TestRunReturnTypeMismatchReportsError(t *testing.T) {
	gs := gstate.New()
	gs.AddFile("t.rb", nil, diag.Strong)
	loc := gstate.Loc{File: 1}
	body := ast.NewIntLit(loc, 42)
	def := newMethod(gs, gs.WellKnown.Object, "answer", nil, body, types.NewClass(gs.WellKnown.String))

	c := build(t, gs, def)
	u := types.New(gs)
	infer.Run(gs, u, c)

	errs := gs.Errors.FlushFile("t.rb")
	require.Len(t, errs, 1)
	assert.Equal(t, int(diag.InferReturnTypeMismatch), int(errs[0].Code))
}

func TestRunIfBothBranchesJoinWithoutError(t *testing.T) {
	gs := gstate.New()
	gs.AddFile("t.rb", nil, diag.Strong)
	loc := gstate.Loc{File: 1}
	cond := ast.NewTrueLit(loc)
	then := ast.NewIntLit(loc, 1)
	els := ast.NewIntLit(loc, 2)
	body := ast.NewIf(loc, cond, then, els)
	def := newMethod(gs, gs.WellKnown.Object, "pick", nil, body, types.NewClass(gs.WellKnown.Integer))

	c := build(t, gs, def)
	u := types.New(gs)
	infer.Run(gs, u, c)

	errs := gs.Errors.FlushFile("t.rb")
	assert.Empty(t, errs)
}

func TestRunMustCastDropsNil(t *testing.T) {
	gs := gstate.New()
	gs.AddFile("t.rb", nil, diag.Strong)
	loc := gstate.Loc{File: 1}
	must := ast.NewCast(loc, ast.NewNilLit(loc), ast.NewTypeExpr(loc, nil), ast.CastPlain)
	def := newMethod(gs, gs.WellKnown.Object, "m", nil, must, nil)

	c := build(t, gs, def)
	u := types.New(gs)
	infer.Run(gs, u, c)

	sawCast := false
	for _, b := range allBindings(c) {
		if cst, ok := b.Value.(cfg.Cast); ok {
			assert.True(t, cst.Must)
			require.NotNil(t, b.ComputedType)
			sawCast = true
		}
	}
	assert.True(t, sawCast, "expected a Cast binding lowered from T.must")
}

// TestRunLetPinViolationReportsError exercises binding.go's
// cfg.MinLoopLet branch: a local pinned by a T.let cast, then reassigned a
// value that isn't a subtype of the pin.
func TestRunLetPinViolationReportsError(t *testing.T) {
	gs := gstate.New()
	gs.AddFile("t.rb", nil, diag.Strong)
	loc := gstate.Loc{File: 1}
	x := testutil.LocalVar(gs, "x")

	typeExpr := ast.NewTypeExpr(loc, ast.NewConstantLit(loc, gs.WellKnown.Integer))
	typeExpr.Resolved = types.NewClass(gs.WellKnown.Integer)
	pin := ast.NewAssign(loc, ast.NewLocalRef(loc, x), ast.NewCast(loc, ast.NewIntLit(loc, 1), typeExpr, ast.CastLet))
	reassign := ast.NewAssign(loc, ast.NewLocalRef(loc, x), ast.NewStringLit(loc, gs.InternUTF8("hi")))
	body := ast.NewInsSeq(loc, []ast.Node{pin, reassign}, nil)
	def := newMethod(gs, gs.WellKnown.Object, "m", nil, body, nil)

	c := build(t, gs, def)
	u := types.New(gs)
	infer.Run(gs, u, c)

	errs := gs.Errors.FlushFile("t.rb")
	require.Len(t, errs, 1)
	assert.Equal(t, int(diag.InferPinnedVariableMismatch), int(errs[0].Code))
	assert.Contains(t, errs[0].Message, "declared via `let`")
}

// TestRunLoopWideningViolationReportsError exercises binding.go's default
// pin branch: a local first written before a loop, then reassigned an
// incompatible type inside the loop body, where neither write goes through
// T.let (so MinLoops records a plain nested-depth read/write, not the
// MinLoopLet sentinel).
func TestRunLoopWideningViolationReportsError(t *testing.T) {
	gs := gstate.New()
	gs.AddFile("t.rb", nil, diag.Strong)
	loc := gstate.Loc{File: 1}
	x := testutil.LocalVar(gs, "x")

	before := ast.NewAssign(loc, ast.NewLocalRef(loc, x), ast.NewIntLit(loc, 1))
	inLoop := ast.NewAssign(loc, ast.NewLocalRef(loc, x), ast.NewStringLit(loc, gs.InternUTF8("hi")))
	loop := ast.NewWhile(loc, ast.NewTrueLit(loc), inLoop)
	body := ast.NewInsSeq(loc, []ast.Node{before, loop}, nil)
	def := newMethod(gs, gs.WellKnown.Object, "m", nil, body, nil)

	c := build(t, gs, def)
	u := types.New(gs)
	infer.Run(gs, u, c)

	errs := gs.Errors.FlushFile("t.rb")
	require.Len(t, errs, 1)
	assert.Equal(t, int(diag.InferPinnedVariableMismatch), int(errs[0].Code))
	assert.Contains(t, errs[0].Message, "changing the type of a variable in a loop")
}
