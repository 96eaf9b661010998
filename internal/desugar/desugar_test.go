package desugar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/desugar"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/parsetree"
)

func node(k parsetree.Kind, children ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: k, Children: children}
}

func strNode(s string) *parsetree.Node { return &parsetree.Node{K: parsetree.KindStr, Str: s} }
func intNode(v int64) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindInt, Int: v}
}
func lvarNode(name string) *parsetree.Node { return &parsetree.Node{K: parsetree.KindLVar, Str: name} }
func lvasgnNode(name string) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindLVAsgn, Str: name}
}

// desugarExpr is a test-only helper: Desugar always wraps its result in a
// root ClassDef, so tests that want the lowering of a single expression pull
// the first RHS statement back out.
func desugarExpr(t *testing.T, gs *gstate.GlobalState, n *parsetree.Node) ast.Node {
	t.Helper()
	// A two-statement begin forces Desugar's top-level InsSeq-flattening to
	// stop at this level, handing back n's own lowering untouched as the
	// first RHS element (whether or not it is itself an InsSeq).
	root := node(parsetree.KindBegin, n, &parsetree.Node{K: parsetree.KindNil})
	cd := desugar.Desugar(gs, gstate.NoFile, root)
	require.Len(t, cd.RHS, 2)
	return cd.RHS[0]
}

func TestMasgnSplatLowering(t *testing.T) {
	gs := gstate.New()
	// a, *b, c = [1, 2, 3, 4, 5]
	mlhs := node(parsetree.KindMLHS,
		lvasgnNode("a"),
		node(parsetree.KindSplat, lvasgnNode("b")),
		lvasgnNode("c"),
	)
	rhs := node(parsetree.KindArray, intNode(1), intNode(2), intNode(3), intNode(4), intNode(5))
	masgn := node(parsetree.KindMAsgn, mlhs, rhs)

	got := desugarExpr(t, gs, masgn)
	seq, ok := got.(*ast.InsSeq)
	require.True(t, ok)
	require.Len(t, seq.Stats, 4) // tmp=expandSplat, a=.., b=.., c=..

	tmpAssign, ok := seq.Stats[0].(*ast.Assign)
	require.True(t, ok)
	expand, ok := tmpAssign.RHS.(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "expandSplat", gs.Text(expand.Method))
	require.Len(t, expand.Args, 3)
	nBefore := expand.Args[1].(*ast.IntLit)
	nAfter := expand.Args[2].(*ast.IntLit)
	assert.EqualValues(t, 1, nBefore.Value)
	assert.EqualValues(t, 1, nAfter.Value)

	bAssign, ok := seq.Stats[2].(*ast.Assign)
	require.True(t, ok)
	slice, ok := bAssign.RHS.(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "slice", gs.Text(slice.Method))
	rangeNew := slice.Args[0].(*ast.Send)
	assert.Equal(t, "new", gs.Text(rangeNew.Method))
	assert.EqualValues(t, 1, rangeNew.Args[0].(*ast.IntLit).Value)
	assert.EqualValues(t, -2, rangeNew.Args[1].(*ast.IntLit).Value)
	assert.IsType(t, &ast.TrueLit{}, rangeNew.Args[2])

	cAssign, ok := seq.Stats[3].(*ast.Assign)
	require.True(t, ok)
	cIndex, ok := cAssign.RHS.(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "[]", gs.Text(cIndex.Method))
	assert.EqualValues(t, -1, cIndex.Args[0].(*ast.IntLit).Value)
}

func TestCSendLowering(t *testing.T) {
	gs := gstate.New()
	// x&.foo(1)
	csend := &parsetree.Node{
		K:        parsetree.KindCSend,
		Str:      "foo",
		Children: []*parsetree.Node{lvarNode("x"), intNode(1)},
	}
	got := desugarExpr(t, gs, csend)
	seq, ok := got.(*ast.InsSeq)
	require.True(t, ok)
	require.Len(t, seq.Stats, 1)

	branch, ok := seq.Expr.(*ast.If)
	require.True(t, ok)
	assert.IsType(t, &ast.NilLit{}, branch.Then)

	isNil, ok := branch.Cond.(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "nil?", gs.Text(isNil.Method))

	call, ok := branch.Else.(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "foo", gs.Text(call.Method))
	require.Len(t, call.Args, 1)
}

func TestDStringWrapsSubsequentPiecesByFirstPieceKind(t *testing.T) {
	gs := gstate.New()
	// "#{x}literal" -- first piece is not a plain string literal, so per the
	// preserved bug the literal second piece is still wrapped in to_s.
	dstr := node(parsetree.KindDStr, lvarNode("x"), strNode("literal"))
	got := desugarExpr(t, gs, dstr)
	concat, ok := got.(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "concat", gs.Text(concat.Method))
	secondPiece, ok := concat.Args[0].(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "to_s", gs.Text(secondPiece.Method))
}

func TestAndOrReferenceAvoidsTemp(t *testing.T) {
	gs := gstate.New()
	and := node(parsetree.KindAnd, lvarNode("x"), lvarNode("y"))
	got := desugarExpr(t, gs, and)
	ifNode, ok := got.(*ast.If)
	require.True(t, ok)
	assert.IsType(t, &ast.UnresolvedIdent{}, ifNode.Cond)
	assert.IsType(t, &ast.UnresolvedIdent{}, ifNode.Else)
}

func TestOpAsgnOnLocal(t *testing.T) {
	gs := gstate.New()
	opAsgn := &parsetree.Node{
		K:        parsetree.KindOpAsgn,
		Str:      "+",
		Children: []*parsetree.Node{lvasgnNode("x"), intNode(1)},
	}
	got := desugarExpr(t, gs, opAsgn)
	assign, ok := got.(*ast.Assign)
	require.True(t, ok)
	send, ok := assign.RHS.(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "+", gs.Text(send.Method))
}

func TestConstantReassignmentRejected(t *testing.T) {
	gs := gstate.New()
	casgn := &parsetree.Node{K: parsetree.KindCAsgn, Str: "X", Children: []*parsetree.Node{intNode(1)}}
	opAsgn := &parsetree.Node{
		K:        parsetree.KindOpAsgn,
		Str:      "+",
		Children: []*parsetree.Node{casgn, intNode(1)},
	}
	got := desugarExpr(t, gs, opAsgn)
	assert.IsType(t, &ast.EmptyTree{}, got)
	require.Contains(t, gs.Errors.Files(), "<unknown>")
}

func TestForLoopLowersToEach(t *testing.T) {
	gs := gstate.New()
	forNode := node(parsetree.KindFor, lvasgnNode("x"), lvarNode("xs"), lvarNode("x"))
	got := desugarExpr(t, gs, forNode)
	send, ok := got.(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "each", gs.Text(send.Method))
	require.NotNil(t, send.Block)
}

func tConstNode() *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindConst, Children: []*parsetree.Node{nil}, Str: "T"}
}

func tSendNode(method string, args ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindSend, Str: method, Children: append([]*parsetree.Node{tConstNode()}, args...)}
}

func TestTLetLowersToCast(t *testing.T) {
	gs := gstate.New()
	constNode := &parsetree.Node{K: parsetree.KindConst, Children: []*parsetree.Node{nil}, Str: "Integer"}
	got := desugarExpr(t, gs, tSendNode("let", lvarNode("x"), constNode))
	cast, ok := got.(*ast.Cast)
	require.True(t, ok)
	assert.Equal(t, ast.CastLet, cast.CastKind)
	_, isConst := cast.TypeExpr.Source.(*ast.UnresolvedConstant)
	assert.True(t, isConst)
}

func TestTMustLowersToCastWithNilSource(t *testing.T) {
	gs := gstate.New()
	got := desugarExpr(t, gs, tSendNode("must", lvarNode("x")))
	cast, ok := got.(*ast.Cast)
	require.True(t, ok)
	assert.Nil(t, cast.TypeExpr.Source)
}

func TestTUnsafeLowersToCastWithUntypedMarker(t *testing.T) {
	gs := gstate.New()
	got := desugarExpr(t, gs, tSendNode("unsafe", lvarNode("x")))
	cast, ok := got.(*ast.Cast)
	require.True(t, ok)
	marker, ok := cast.TypeExpr.Source.(*ast.UnresolvedConstant)
	require.True(t, ok)
	assert.Equal(t, "$untyped", gs.Text(marker.Name))
}

func TestOrdinaryCallOnTNotConfusedForCast(t *testing.T) {
	gs := gstate.New()
	// `T.foo(x)` isn't one of the recognized cast forms, so it stays a Send.
	got := desugarExpr(t, gs, tSendNode("foo", lvarNode("x")))
	_, ok := got.(*ast.Send)
	assert.True(t, ok)
}
