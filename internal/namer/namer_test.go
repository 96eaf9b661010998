package namer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/desugar"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/namer"
	"github.com/sorbetgo/checker/internal/parsetree"
)

func node(k parsetree.Kind, children ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: k, Children: children}
}

func strArg(name string) *parsetree.Node { return &parsetree.Node{K: parsetree.KindArg, Str: name} }

func sendNode(method string, args ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindSend, Str: method, Children: append([]*parsetree.Node{nil}, args...)}
}

func symNode(s string) *parsetree.Node { return &parsetree.Node{K: parsetree.KindSym, Str: s} }

func constNode(name string) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindConst, Children: []*parsetree.Node{nil}, Str: name}
}

func classNode(name *parsetree.Node, super *parsetree.Node, body *parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindClass, Children: []*parsetree.Node{name, super, body}}
}

func defNode(name string, args *parsetree.Node, body *parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindDef, Str: name, Children: []*parsetree.Node{args, body}}
}

func argsNode(args ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindArgs, Children: args}
}

func beginNode(stmts ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindBegin, Children: stmts}
}

func runNamer(t *testing.T, gs *gstate.GlobalState, root *parsetree.Node) *ast.ClassDef {
	t.Helper()
	cd := desugar.Desugar(gs, gstate.NoFile, root)
	namer.Name(gs, cd)
	return cd
}

// fileRoot wraps stmt in a two-statement top-level begin so Desugar takes
// its "wrap in a synthetic <root> ClassDef" path rather than its special
// case collapsing a lone top-level `class Foo; end` onto <root> itself.
func fileRoot(stmt *parsetree.Node) *parsetree.Node {
	return beginNode(stmt, node(parsetree.KindNil))
}

func TestClassDefEntersSymbol(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil, beginNode(node(parsetree.KindNil))))
	cd := runNamer(t, gs, root)

	require.Len(t, cd.RHS, 2)
	inner, ok := cd.RHS[0].(*ast.ClassDef)
	require.True(t, ok)
	assert.NotEqual(t, gstate.NoSymbol, inner.Symbol)
	assert.True(t, gs.Symbol(inner.Symbol).Kind.Has(gstate.KindClass))
	assert.Equal(t, gstate.RootSymbol, gs.Symbol(inner.Symbol).Owner)
}

func TestMethodDefEntersSymbolAndBindsArgs(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(defNode("bar", argsNode(strArg("x")), node(parsetree.KindNil)))))
	cd := runNamer(t, gs, root)

	inner := cd.RHS[0].(*ast.ClassDef)
	md := inner.RHS[0].(*ast.MethodDef)
	require.NotEqual(t, gstate.NoSymbol, md.Symbol)
	sym := gs.Symbol(md.Symbol)
	assert.True(t, sym.Kind.Has(gstate.KindMethod))
	assert.Equal(t, inner.Symbol, sym.Owner)
	require.Len(t, sym.Args, 1)
	assert.Equal(t, gs.InternUTF8("x"), sym.Args[0].Name)

	require.Len(t, md.Args, 1)
	_, isLocalRef := md.Args[0].(*ast.LocalRef)
	assert.True(t, isLocalRef, "formal arg should be rewritten to a LocalRef")
}

func TestRedefinitionReported(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(
			defNode("bar", argsNode(), node(parsetree.KindNil)),
			defNode("bar", argsNode(), node(parsetree.KindNil)),
		)))
	runNamer(t, gs, root)
	errs := gs.Errors.FlushFile("<unknown>")
	require.Len(t, errs, 1)
	assert.Equal(t, diag.NamerRedefinitionOfMethod, errs[0].Code)
	require.Len(t, errs[0].Sections, 1)
}

func TestIncludeAppendsAncestorAndRemovesStatement(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(
			sendNode("include", constNode("Bar")),
			node(parsetree.KindNil),
		)))
	cd := runNamer(t, gs, root)
	inner := cd.RHS[0].(*ast.ClassDef)
	require.Len(t, inner.Ancestors, 1)
	_, ok := inner.Ancestors[0].(*ast.UnresolvedConstant)
	assert.True(t, ok)
	// the include call itself should not survive into RHS
	for _, stmt := range inner.RHS {
		_, isSend := stmt.(*ast.Send)
		assert.False(t, isSend)
	}
}

func TestBarePrivateSetsDefaultVisibility(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(
			sendNode("private"),
			defNode("secret", argsNode(), node(parsetree.KindNil)),
		)))
	cd := runNamer(t, gs, root)
	inner := cd.RHS[0].(*ast.ClassDef)
	md := inner.RHS[0].(*ast.MethodDef)
	assert.Equal(t, gstate.Private, gs.Symbol(md.Symbol).Visibility)
}

func TestPrivateWithSymbolArgSetsVisibilityOnExistingMethod(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(
			defNode("secret", argsNode(), node(parsetree.KindNil)),
			sendNode("private", symNode("secret")),
		)))
	cd := runNamer(t, gs, root)
	inner := cd.RHS[0].(*ast.ClassDef)
	md := inner.RHS[0].(*ast.MethodDef)
	assert.Equal(t, gstate.Private, gs.Symbol(md.Symbol).Visibility)
}

func TestAliasMethodCreatesAliasSymbol(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(
			defNode("bar", argsNode(), node(parsetree.KindNil)),
			sendNode("alias_method", symNode("baz"), symNode("bar")),
		)))
	cd := runNamer(t, gs, root)
	inner := cd.RHS[0].(*ast.ClassDef)
	aliasSym, ok := gs.LookupMember(inner.Symbol, gs.InternUTF8("baz"))
	require.True(t, ok)
	assert.NotNil(t, gs.Symbol(aliasSym).ResultType)
}

func TestSingletonMethodEntersOnSingletonClass(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(
			&parsetree.Node{K: parsetree.KindDefS, Str: "make", Children: []*parsetree.Node{
				{K: parsetree.KindSelf}, argsNode(), node(parsetree.KindNil),
			}},
		)))
	cd := runNamer(t, gs, root)
	inner := cd.RHS[0].(*ast.ClassDef)
	md := inner.RHS[0].(*ast.MethodDef)
	singleton, ok := gs.LookupSingletonOf(inner.Symbol)
	require.True(t, ok)
	assert.Equal(t, singleton, gs.Symbol(md.Symbol).Owner)
}

func TestGlobalIdentRewritesToFieldUnderRoot(t *testing.T) {
	gs := gstate.New()
	gvar := &parsetree.Node{K: parsetree.KindGVar, Str: "$count"}
	root := beginNode(gvar, node(parsetree.KindNil))
	cd := desugar.Desugar(gs, gstate.NoFile, root)
	namer.Name(gs, cd)

	lit, ok := cd.RHS[0].(*ast.ConstantLit)
	require.True(t, ok)
	assert.True(t, gs.Symbol(lit.Symbol).Kind.Has(gstate.KindField))
	assert.Equal(t, gstate.RootSymbol, gs.Symbol(lit.Symbol).Owner)
}
