package resolver_test

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
	"github.com/sorbetgo/checker/internal/resolver"
)

func node(k parsetree.Kind, children ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: k, Children: children}
}

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

func fileRoot(stmts ...*parsetree.Node) *parsetree.Node {
	return beginNode(append(stmts, node(parsetree.KindNil))...)
}

func runResolver(t *testing.T, gs *gstate.GlobalState, root *parsetree.Node) *ast.ClassDef {
	t.Helper()
	cd := desugar.Desugar(gs, gstate.NoFile, root)
	namer.Name(gs, cd)
	resolver.Resolve(gs, []*ast.ClassDef{cd})
	return cd
}

func TestAttrAccessorEntersFieldAndAccessorMethods(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(sendNode("attr_accessor", symNode("bar")))))
	cd := runResolver(t, gs, root)

	inner := cd.RHS[0].(*ast.ClassDef)

	writer, ok := gs.LookupMember(inner.Symbol, gs.InternUTF8("bar="))
	require.True(t, ok)
	require.Len(t, gs.Symbol(writer).Args, 1)

	// the attr_accessor send should not survive into RHS
	assert.Len(t, inner.RHS, 0)
}

func TestSuperclassAppearsInAncestorsWithObject(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(
		classNode(constNode("A"), nil, beginNode(node(parsetree.KindNil))),
		classNode(constNode("B"), constNode("A"), beginNode(node(parsetree.KindNil))),
	)
	runResolver(t, gs, root)

	aSym, ok := gs.LookupMember(gstate.RootSymbol, gs.InternConstant("A"))
	require.True(t, ok)
	bSym, ok := gs.LookupMember(gstate.RootSymbol, gs.InternConstant("B"))
	require.True(t, ok)

	assert.Equal(t, aSym, gs.Symbol(bSym).SuperClass)
	assert.Contains(t, gs.Symbol(bSym).Ancestors, aSym)
	assert.Contains(t, gs.Symbol(bSym).Ancestors, gs.WellKnown.Object)
	assert.Equal(t, gs.WellKnown.Object, gs.Symbol(aSym).SuperClass)
}

func moduleNode(name *parsetree.Node, body *parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindModule, Children: []*parsetree.Node{name, nil, body}}
}

func TestIncludeMixinFlattensIntoAncestors(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(
		moduleNode(constNode("Mixin"), beginNode(node(parsetree.KindNil))),
		classNode(constNode("Foo"), nil,
			beginNode(sendNode("include", constNode("Mixin")), node(parsetree.KindNil))),
	)
	runResolver(t, gs, root)

	mixinSym, ok := gs.LookupMember(gstate.RootSymbol, gs.InternConstant("Mixin"))
	require.True(t, ok)
	fooSym, ok := gs.LookupMember(gstate.RootSymbol, gs.InternConstant("Foo"))
	require.True(t, ok)

	assert.Contains(t, gs.Symbol(fooSym).Ancestors, mixinSym)
}

func TestUnresolvedConstantGetsStubAndError(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), constNode("Ghost"), beginNode(node(parsetree.KindNil))))
	runResolver(t, gs, root)

	errs := gs.Errors.FlushFile("<unknown>")
	require.NotEmpty(t, errs)
	assert.Equal(t, diag.ResolverUnresolvedConstant, errs[0].Code)

	_, ok := gs.LookupMember(gstate.RootSymbol, gs.InternConstant("Ghost"))
	assert.True(t, ok, "a stub symbol should have been entered under <root>")
}

func TestInstanceAndClassVarsDoNotCollide(t *testing.T) {
	gs := gstate.New()
	// surface ivar/cvar nodes carry their sigil in Str, the same convention
	// namer's global-var test uses for gvar ("$count").
	ivar := &parsetree.Node{K: parsetree.KindIVar, Str: "@x"}
	cvar := &parsetree.Node{K: parsetree.KindCVar, Str: "@@x"}
	root := fileRoot(classNode(constNode("Foo"), nil, beginNode(ivar, cvar)))
	cd := runResolver(t, gs, root)

	inner := cd.RHS[0].(*ast.ClassDef)
	require.Len(t, inner.RHS, 2)
	ivarLit, ok := inner.RHS[0].(*ast.ConstantLit)
	require.True(t, ok)
	cvarLit, ok := inner.RHS[1].(*ast.ConstantLit)
	require.True(t, ok)
	assert.NotEqual(t, ivarLit.Symbol, cvarLit.Symbol)
}

func TestCyclicAncestorsReported(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(
		classNode(constNode("A"), nil,
			beginNode(sendNode("include", constNode("B")), node(parsetree.KindNil))),
		classNode(constNode("B"), nil,
			beginNode(sendNode("include", constNode("A")), node(parsetree.KindNil))),
	)
	runResolver(t, gs, root)

	errs := gs.Errors.FlushFile("<unknown>")
	found := false
	for _, e := range errs {
		if e.Code == diag.ResolverCyclicAncestors {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMethodDefSurvivesResolverWalk(t *testing.T) {
	gs := gstate.New()
	root := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(defNode("bar", argsNode(), node(parsetree.KindNil)))))
	runResolver(t, gs, root)
	// no annotation syntax is exercised via parsetree directly (Cast nodes are
	// synthesized by desugar, not the surface parser); this just guards that
	// an ordinary method def survives the walk unharmed.
	_ = root
}
