package cfg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/gstate"
)

func TestNewWiresEntryAndDeadBlocks(t *testing.T) {
	gs := gstate.New()
	c := cfg.New(gs.WellKnown.Object)

	assert.Len(t, c.BasicBlocks, 2)
	assert.Equal(t, 0, c.Entry().ID)
	assert.Equal(t, 1, c.Dead().ID)
	assert.True(t, c.Dead().HasFlag(cfg.FlagDead))

	// the dead block self-loops unconditionally
	assert.Same(t, c.Dead(), c.Dead().Bexit.Thenb)
	assert.Same(t, c.Dead(), c.Dead().Bexit.Elseb)
	assert.True(t, c.Dead().Bexit.Unconditional())
	assert.Equal(t, ast.NoVariable(), c.Dead().Bexit.Cond)
}

func TestFreshBlockAssignsSequentialIDs(t *testing.T) {
	gs := gstate.New()
	c := cfg.New(gs.WellKnown.Object)

	b2 := c.FreshBlock(0, gstate.Loc{})
	b3 := c.FreshBlock(1, gstate.Loc{})

	assert.Equal(t, 2, b2.ID)
	assert.Equal(t, 3, b3.ID)
	assert.Equal(t, 1, b3.OuterLoops)
	assert.Len(t, c.BasicBlocks, 4)
}

func TestInstructionVariantsImplementInterface(t *testing.T) {
	var instrs = []cfg.Instruction{
		cfg.Ident{},
		cfg.Self{},
		cfg.Alias{},
		cfg.Send{},
		cfg.Return{},
		cfg.BlockReturn{},
		cfg.LoadArg{},
		cfg.LoadYieldParam{},
		cfg.Literal{LKind: cfg.LiteralInt, Int: 1},
		cfg.Cast{},
		cfg.SolveConstraint{},
		cfg.Unanalyzable{},
		cfg.DebugEnvironment{},
	}
	assert.Len(t, instrs, 13)
}

func TestBindingCarriesComputedTypeUntilInferRuns(t *testing.T) {
	b := cfg.Binding{Bind: ast.LocalVar{Name: 1}, Value: cfg.Literal{LKind: cfg.LiteralNil}}
	assert.Nil(t, b.ComputedType)
}
