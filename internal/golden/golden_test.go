package golden_test

import (
	"testing"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfgbuilder"
	"github.com/sorbetgo/checker/internal/golden"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/printer"
)

// buildAnswerMethod constructs the same trivial "def answer; 42; end" method
// cfgbuilder_test.go's TestBuildTrivialMethodReturnsLiteral builds, without
// running inference, so the fixture captures cfgbuilder.Build's output in
// isolation.
func buildAnswerMethod(gs *gstate.GlobalState) *ast.MethodDef {
	def := ast.NewMethodDef(gstate.Loc{}, gs.InternUTF8("answer"), nil, ast.NewIntLit(gstate.Loc{}, 42), 0)
	tok := gs.Unfreeze()
	sym, _ := gs.EnterMethodSymbol(gs.WellKnown.Object, gs.InternUTF8("answer"))
	tok.Release()
	def.Symbol = sym
	return def
}

func TestPrintCFGStableMatchesGolden(t *testing.T) {
	gs := gstate.New()
	def := buildAnswerMethod(gs)
	c := cfgbuilder.Build(gs, def)

	p := printer.NewBufferPrinter(false)
	printer.PrintCFG(p, gs, c)
	golden.Compare(t, "answer_cfg_stable.exp", p.String())
}

func TestPrintCFGRawMatchesGolden(t *testing.T) {
	gs := gstate.New()
	def := buildAnswerMethod(gs)
	c := cfgbuilder.Build(gs, def)

	p := printer.NewBufferPrinter(true)
	printer.PrintCFG(p, gs, c)
	golden.Compare(t, "answer_cfg_raw.exp", p.String())
}

// buildIfTree constructs an unresolved If/Send/ConstantLit/IntLit tree, the
// shape a fresh parse produces before Namer/Resolver run: "if ready then
// go(Foo) else 7 end". PrintAST only reads Kind/Children()/literal payload,
// not resolution, so walking it pre-Namer still exercises every nodeHeader
// branch the test cares about.
func buildIfTree(gs *gstate.GlobalState) ast.Node {
	loc := gstate.Loc{}
	cond := ast.NewUnresolvedIdent(loc, ast.IdentLocal, gs.InternUTF8("ready"))
	tok := gs.Unfreeze()
	fooSym := gs.EnterClassSymbol(gstate.RootSymbol, gs.InternConstant("Foo"))
	tok.Release()
	arg := ast.NewConstantLit(loc, fooSym)
	then := ast.NewSend(loc, nil, gs.InternUTF8("go"), []ast.Node{arg}, 0, nil)
	els := ast.NewIntLit(loc, 7)
	return ast.NewIf(loc, cond, then, els)
}

func TestPrintASTStableMatchesGolden(t *testing.T) {
	gs := gstate.New()
	n := buildIfTree(gs)

	p := printer.NewBufferPrinter(false)
	printer.PrintAST(p, gs, n)
	golden.Compare(t, "if_tree_stable.exp", p.String())
}

func TestPrintASTRawMatchesGolden(t *testing.T) {
	gs := gstate.New()
	n := buildIfTree(gs)

	p := printer.NewBufferPrinter(true)
	printer.PrintAST(p, gs, n)
	golden.Compare(t, "if_tree_raw.exp", p.String())
}
