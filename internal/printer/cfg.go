package printer

import (
	"fmt"

	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/gstate"
)

// PrintCFG writes a deterministic dump of c: one block per Line at depth 0,
// its bindings and exit indented under it (spec.md §6 "Debug printing").
// Blocks are printed in BasicBlocks order (their allocation order), not
// ForwardTopo/BackwardTopo, so the dump is stable regardless of which
// post-pass last touched the topo orders.
func PrintCFG(p Printer, gs *gstate.GlobalState, c *cfg.CFG) {
	p.Line(fmt.Sprintf("CFG(%s)", symbolRef(gs, p, c.Symbol)))
	p.Indent()
	for _, bb := range c.BasicBlocks {
		printBlock(p, gs, bb)
	}
	p.Dedent()
}

func printBlock(p Printer, gs *gstate.GlobalState, bb *cfg.BasicBlock) {
	header := fmt.Sprintf("bb%d%s", bb.ID, blockFlagsSuffix(bb))
	p.Line(header)
	p.Indent()
	for _, a := range bb.Args {
		p.Line("arg " + renderLocalVar(gs, p, a))
	}
	for _, bind := range bb.Exprs {
		printBinding(p, gs, bind)
	}
	printExit(p, gs, bb.Bexit)
	p.Dedent()
}

func blockFlagsSuffix(bb *cfg.BasicBlock) string {
	s := ""
	if bb.HasFlag(cfg.FlagLoopHeader) {
		s += " [loop-header]"
	}
	if bb.HasFlag(cfg.FlagDead) {
		s += " [dead]"
	}
	return s
}

func printBinding(p Printer, gs *gstate.GlobalState, b cfg.Binding) {
	line := fmt.Sprintf("%s = %s", renderLocalVar(gs, p, b.Bind), instructionText(gs, p, b.Value))
	if b.ComputedType != nil {
		line += " : " + RenderType(gs, p, b.ComputedType)
	}
	p.Line(line)
}

func printExit(p Printer, gs *gstate.GlobalState, e cfg.BlockExit) {
	if e.Unconditional() {
		p.Line(fmt.Sprintf("goto bb%d", e.Thenb.ID))
		return
	}
	p.Line(fmt.Sprintf("if %s then bb%d else bb%d", renderLocalVar(gs, p, e.Cond), e.Thenb.ID, e.Elseb.ID))
}

func instructionText(gs *gstate.GlobalState, p Printer, instr cfg.Instruction) string {
	switch v := instr.(type) {
	case cfg.Ident:
		return "Ident(" + renderLocalVar(gs, p, v.What) + ")"
	case cfg.Self:
		return "Self(" + symbolRef(gs, p, v.Class) + ")"
	case cfg.Alias:
		return "Alias(" + symbolRef(gs, p, v.What) + ")"
	case cfg.Send:
		s := "Send(" + renderLocalVar(gs, p, v.Recv) + "." + gs.Text(v.Fun) + "("
		for i, a := range v.Args {
			if i > 0 {
				s += ", "
			}
			s += renderLocalVar(gs, p, a)
		}
		s += ")"
		if v.Link != nil {
			s += " &block"
		}
		return s + ")"
	case cfg.Return:
		return "Return(" + renderLocalVar(gs, p, v.What) + ")"
	case cfg.BlockReturn:
		return "BlockReturn(" + renderLocalVar(gs, p, v.What) + ")"
	case cfg.LoadArg:
		return fmt.Sprintf("LoadArg(%s.%s, %d)", renderLocalVar(gs, p, v.Receiver), gs.Text(v.Method), v.Arg)
	case cfg.LoadYieldParam:
		return fmt.Sprintf("LoadYieldParam(%d)", v.Arg)
	case cfg.Literal:
		return "Literal(" + literalText(gs, v) + ")"
	case cfg.Cast:
		return fmt.Sprintf("Cast(%s, %s, must=%v)", renderLocalVar(gs, p, v.Value), RenderType(gs, p, v.Type), v.Must)
	case cfg.SolveConstraint:
		return "SolveConstraint"
	case cfg.Unanalyzable:
		return "Unanalyzable"
	case cfg.DebugEnvironment:
		return "DebugEnvironment"
	default:
		return fmt.Sprintf("%T", instr)
	}
}

func literalText(gs *gstate.GlobalState, l cfg.Literal) string {
	switch l.LKind {
	case cfg.LiteralNil:
		return "nil"
	case cfg.LiteralTrue:
		return "true"
	case cfg.LiteralFalse:
		return "false"
	case cfg.LiteralInt:
		return fmt.Sprintf("%d", l.Int)
	case cfg.LiteralFloat:
		return fmt.Sprintf("%g", l.Float)
	case cfg.LiteralString:
		return fmt.Sprintf("%q", gs.Text(l.Name))
	case cfg.LiteralSymbol:
		return ":" + gs.Text(l.Name)
	default:
		return "?"
	}
}
