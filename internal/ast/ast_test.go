package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/gstate"
)

func TestWalkVisitsChildren(t *testing.T) {
	g := gstate.New()
	one := &ast.IntLit{Value: 1}
	two := &ast.IntLit{Value: 2}
	seq := &ast.InsSeq{Stats: []ast.Node{one}, Expr: two}

	var kinds []ast.Kind
	ast.Walk(seq, func(n ast.Node) { kinds = append(kinds, n.Kind()) })
	assert.Equal(t, []ast.Kind{ast.KindInsSeq, ast.KindInt, ast.KindInt}, kinds)

	_ = g.InternUTF8("x") // exercise gstate alongside ast in this package's tests
}

func TestSentinelLocalVars(t *testing.T) {
	assert.True(t, ast.NoVariable().IsSentinel())
	assert.True(t, ast.BlockCallVar().IsSentinel())
	assert.True(t, ast.FinalReturnVar().IsSentinel())
	assert.NotEqual(t, ast.NoVariable(), ast.BlockCallVar())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Send", ast.KindSend.String())
	assert.Equal(t, "ClassDef", ast.KindClassDef.String())
}
