package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

func TestClassSubtypingFollowsAncestors(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	assert.True(t, u.IsSubType(types.NewClass(gs.WellKnown.Integer), types.NewClass(gs.WellKnown.Numeric)))
	assert.False(t, u.IsSubType(types.NewClass(gs.WellKnown.Numeric), types.NewClass(gs.WellKnown.Integer)))
	assert.True(t, u.IsSubType(types.Bottom, types.NewClass(gs.WellKnown.Integer)))
	assert.True(t, u.IsSubType(types.NewClass(gs.WellKnown.Integer), types.Top))
	assert.True(t, u.IsSubType(types.Untyped, types.NewClass(gs.WellKnown.String)))
	assert.True(t, u.IsSubType(types.NewClass(gs.WellKnown.String), types.Untyped))
}

func TestLubOfUnrelatedClassesIsOr(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	joined := u.Lub(types.NewClass(gs.WellKnown.String), types.NewClass(gs.WellKnown.Array))
	assert.Equal(t, types.KindOr, joined.Kind())
	assert.True(t, u.IsSubType(types.NewClass(gs.WellKnown.String), joined))
	assert.True(t, u.IsSubType(types.NewClass(gs.WellKnown.Array), joined))
}

func TestLubOfRelatedClassesCollapses(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	joined := u.Lub(types.NewClass(gs.WellKnown.Integer), types.NewClass(gs.WellKnown.Numeric))
	assert.Equal(t, types.NewClass(gs.WellKnown.Numeric), joined)
}

func TestGlbOfUnrelatedClassesIsBottom(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	met := u.Glb(types.NewClass(gs.WellKnown.String), types.NewClass(gs.WellKnown.Array))
	assert.Equal(t, types.Bottom, met)
}

func TestFalsyTypesIsNilOrFalse(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	falsy := u.FalsyTypes()
	assert.True(t, u.IsSubType(types.NewClass(gs.WellKnown.NilClass), falsy))
	assert.True(t, u.IsSubType(types.NewClass(gs.WellKnown.FalseClass), falsy))
	assert.False(t, u.IsSubType(types.NewClass(gs.WellKnown.TrueClass), falsy))
}

func TestCanBeTruthyAndFalsy(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	nilable := u.Lub(types.NewClass(gs.WellKnown.String), types.NewClass(gs.WellKnown.NilClass))
	assert.True(t, u.CanBeTruthy(nilable))
	assert.True(t, u.CanBeFalsy(nilable))

	assert.True(t, u.CanBeTruthy(types.NewClass(gs.WellKnown.String)))
	assert.False(t, u.CanBeFalsy(types.NewClass(gs.WellKnown.String)))

	assert.False(t, u.CanBeTruthy(types.NewClass(gs.WellKnown.NilClass)))
	assert.True(t, u.CanBeFalsy(types.NewClass(gs.WellKnown.NilClass)))

	assert.False(t, u.CanBeTruthy(types.Bottom))
	assert.False(t, u.CanBeFalsy(types.Bottom))
}

func TestDropSubtypesOfNarrowsOrType(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	nilable := u.Lub(types.NewClass(gs.WellKnown.String), types.NewClass(gs.WellKnown.NilClass))
	narrowed := u.DropSubtypesOf(nilable, gs.WellKnown.NilClass)
	assert.Equal(t, types.NewClass(gs.WellKnown.String), narrowed)
}

func TestDispatchCallResolvesInheritedMethod(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	tok := gs.Unfreeze()
	methodName := gs.InternUTF8("abs")
	method, _ := gs.EnterMethodSymbol(gs.WellKnown.Numeric, methodName)
	gs.Symbol(method).ResultType = types.NewClass(gs.WellKnown.Numeric)
	tok.Release()

	result := u.DispatchCall(types.NewClass(gs.WellKnown.Integer), methodName, gstate.Loc{}, nil, nil)
	assert.Equal(t, types.NewClass(gs.WellKnown.Numeric), result)
	assert.Empty(t, gs.Errors.Files())
}

func TestDispatchCallUnknownMethodReportsError(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	result := u.DispatchCall(types.NewClass(gs.WellKnown.Integer), gs.InternUTF8("frobnicate"), gstate.Loc{}, nil, nil)
	assert.Equal(t, types.Untyped, result)
	require.Contains(t, gs.Errors.Files(), "<unknown>")
}

func TestDispatchCallArgumentCountMismatch(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	tok := gs.Unfreeze()
	methodName := gs.InternUTF8("plus")
	method, _ := gs.EnterMethodSymbol(gs.WellKnown.Integer, methodName)
	argName := gs.InternUTF8("other")
	gs.Symbol(method).Args = []gstate.ArgInfo{{Name: argName, ResultType: types.NewClass(gs.WellKnown.Integer)}}
	gs.Symbol(method).ResultType = types.NewClass(gs.WellKnown.Integer)
	tok.Release()

	result := u.DispatchCall(types.NewClass(gs.WellKnown.Integer), methodName, gstate.Loc{}, nil, nil)
	assert.Equal(t, types.NewClass(gs.WellKnown.Integer), result)
	require.Contains(t, gs.Errors.Files(), "<unknown>")
}

func TestInstantiateSubstitutesTypeVar(t *testing.T) {
	gs := gstate.New()
	u := types.New(gs)

	tok := gs.Unfreeze()
	param := gs.NewSymbol(gs.WellKnown.Array, gs.InternUTF8("Elem"), gstate.KindTypeArgument)
	tok.Release()

	generic := types.NewTypeVar(param)
	result := u.Instantiate([]gstate.Symbol{param}, []types.Type{types.NewClass(gs.WellKnown.String)}, generic)
	assert.Equal(t, types.NewClass(gs.WellKnown.String), result)
}
