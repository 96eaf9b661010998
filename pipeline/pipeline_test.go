package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/parsetree"
	"github.com/sorbetgo/checker/pipeline"
)

// The parsetree-construction helpers below mirror namer_test.go's: a tagged
// node plus children, built by hand rather than through a real parser
// (internal/parsetree is a stub of that external component).

func node(k parsetree.Kind, children ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: k, Children: children}
}

func constNode(name string) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindConst, Children: []*parsetree.Node{nil}, Str: name}
}

func classNode(name, super, body *parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindClass, Children: []*parsetree.Node{name, super, body}}
}

func defNode(name string, args, body *parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindDef, Str: name, Children: []*parsetree.Node{args, body}}
}

func argsNode(args ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindArgs, Children: args}
}

func beginNode(stmts ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindBegin, Children: stmts}
}

func intNode(v int64) *parsetree.Node {
	return &parsetree.Node{K: parsetree.KindInt, Int: v, IntText: "42"}
}

// fileRoot wraps stmt in a two-statement top-level begin so Desugar takes
// its "wrap in a synthetic <root> ClassDef" path.
func fileRoot(stmt *parsetree.Node) *parsetree.Node {
	return beginNode(stmt, node(parsetree.KindNil))
}

func answerSource(path string) pipeline.Source {
	tree := fileRoot(classNode(constNode("Foo"), nil,
		beginNode(defNode("answer", argsNode(), intNode(42)))))
	return pipeline.Source{Path: path, Tree: tree}
}

func TestRunBuildsCFGForSingleFileMethod(t *testing.T) {
	gs := gstate.New()
	p := pipeline.Init(gs, pipeline.Opts{DefaultStrictness: diag.Strong})

	result := p.Run([]pipeline.Source{answerSource("a.rb")})

	require.Len(t, result.Roots, 1)
	require.Len(t, result.CFGs, 1)
	require.NotNil(t, result.CFGs[0])
	assert.NotEqual(t, gstate.NoSymbol, result.CFGs[0].Symbol)
	assert.True(t, gs.Symbol(result.CFGs[0].Symbol).Kind.Has(gstate.KindMethod))
}

func TestRunMergesNamesAcrossConcurrentFiles(t *testing.T) {
	gs := gstate.New()
	p := pipeline.Init(gs, pipeline.Opts{DefaultStrictness: diag.Strong, Workers: 2})

	sources := []pipeline.Source{answerSource("a.rb"), answerSource("b.rb")}
	result := p.Run(sources)

	require.Len(t, result.Roots, 2)
	require.Len(t, result.CFGs, 2)
	for _, c := range result.CFGs {
		require.NotNil(t, c)
	}
	// Both files declare a class named "Foo": after the desugar-phase merge,
	// Namer's ordinary redefinition check should have deduped them onto the
	// same class symbol rather than reporting two separate classes.
	firstOwner := gs.Symbol(result.CFGs[0].Symbol).Owner
	secondOwner := gs.Symbol(result.CFGs[1].Symbol).Owner
	assert.Equal(t, firstOwner, secondOwner)
}

func TestRunHonorsCancellationBeforeSecondPhase(t *testing.T) {
	gs := gstate.New()
	gs.Cancel()
	p := pipeline.Init(gs, pipeline.Opts{DefaultStrictness: diag.Strong})

	result := p.Run([]pipeline.Source{answerSource("a.rb")})

	assert.Len(t, result.Roots, 1)
	assert.Empty(t, result.CFGs)
}
