// Package cfg defines the control-flow-graph representation CFGBuilder
// produces from a method body's AST and Inference walks afterward
// (spec.md §3.4, §4.4).
//
// Grounded on original_source/cfg/CFG.h/.cc, with the original's many
// single-field Instruction subclasses (IntLit, FloatLit, StringLit,
// SymbolLit, BoolLit, ...) collapsed into one Literal struct carrying a
// LiteralKind tag, the way internal/types already collapses its variant
// tree into tagged structs rather than a deep class hierarchy.
package cfg

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// Instruction is the tagged variant an expression lowers to on the
// right-hand side of a Binding (spec.md §3.4).
type Instruction interface {
	isInstruction()
}

// Ident reads a local's current value. (grounded on CFG.h's Ident)
type Ident struct{ What ast.LocalVar }

// Self reads the method's receiver, typed as ReceiverClass (attachedClass
// for a singleton method). Not named as its own spec.md §3.4 variant, but
// needed by the builder's Self(k) row (§4.4.1) and Infer's Self(k) row
// (§4.5.4); folded in here rather than piggybacked onto Literal, since
// unlike a literal its type depends on the enclosing method, not its
// syntax.
type Self struct{ Class gstate.Symbol }

// Alias marks What as a synonym for a resolved symbol (a constant or a
// global), not a temporary. (grounded on CFG.h's Alias)
type Alias struct{ What gstate.Symbol }

// SendAndBlockLink threads a block-taking Send to the LoadYieldParam,
// BlockReturn and SolveConstraint instructions inside and after its block,
// so Infer can see the send's resolved proc type without re-dispatching
// (grounded on CFG.h's SendAndBlockLink).
type SendAndBlockLink struct {
	Fun gstate.Name

	// BlockArgs are the formal LocalVars the block's own Args bind, in the
	// order CFGBuilder assigned LoadYieldParam indices.
	BlockArgs []ast.LocalVar

	// BlockPreType is filled in by Infer: the block parameter types implied
	// by the enclosing send's resolved method signature.
	BlockPreType types.Type

	// ResultType is filled in by Infer once the send is dispatched; read
	// back by the SolveConstraint binding following the block.
	ResultType types.Type
}

// Send dispatches Fun on Recv with Args. Link is non-nil when a block was
// passed (literal or forwarded). (grounded on CFG.h's Send)
type Send struct {
	Recv   ast.LocalVar
	Fun    gstate.Name
	Args   []ast.LocalVar
	Link   *SendAndBlockLink
	Flags  ast.SendFlags
}

// Return unwinds the enclosing method with What's value.
type Return struct{ What ast.LocalVar }

// BlockReturn unwinds the enclosing block (produced by a trailing
// expression, `break`, or `next`) back to its SendAndBlockLink.
type BlockReturn struct {
	Link *SendAndBlockLink
	What ast.LocalVar
}

// LoadArg reads the Arg'th actual argument a caller passed Method on
// Receiver, as seen from inside Method's own body (grounded on CFG.h's
// LoadArg: receiver/method are the call site Method was dispatched
// through, not a symbol lookup).
type LoadArg struct {
	Receiver ast.LocalVar
	Method   gstate.Name
	Arg      uint32
}

// LoadYieldParam reads the Arg'th parameter a caller's block literal was
// invoked with.
type LoadYieldParam struct {
	Link *SendAndBlockLink
	Arg  uint32
}

// LiteralKind tags Literal's payload.
type LiteralKind byte

const (
	LiteralNil LiteralKind = iota
	LiteralTrue
	LiteralFalse
	LiteralInt
	LiteralFloat
	LiteralString
	LiteralSymbol
)

// Literal is a constant value known at lowering time, typed singleton-ly by
// Infer (spec.md §4.5.4's "Literal(v)" row).
type Literal struct {
	LKind LiteralKind
	Int   int64
	Float float64
	Name  gstate.Name // String/Symbol payload, interned
}

// Cast carries forward a T.let/T.cast/T.assert_type!/T.must/T.unsafe
// annotation (ast.Cast) into the CFG so Infer can check or pin against Type.
// Must distinguishes a T.must (Kind == CastPlain, Type == Untyped because its
// ast.TypeExpr.Source was left nil) from an ordinary T.cast/T.unsafe, which
// share the same Kind/Type shape but mean "trust the annotation" rather than
// "narrow by dropping NilClass" (spec.md §9 SUPPLEMENTED FEATURES #4).
type Cast struct {
	Value ast.LocalVar
	Type  types.Type
	Kind  ast.CastKind
	Must  bool
}

// SolveConstraint asks Infer to resolve Link's generic block/proc type
// variables once every yield inside the block has been walked.
type SolveConstraint struct{ Link *SendAndBlockLink }

// Unanalyzable stands in for AST the builder could not lower (spec.md §9
// "Partial lowering on unsupported syntax"); Infer types its binding
// Untyped and moves on.
type Unanalyzable struct{}

// DebugEnvironment is a no-op marker instruction the builder can insert at a
// Loc to snapshot Infer's Environment there for tooling; it never affects
// typechecking.
type DebugEnvironment struct{ Loc gstate.Loc }

func (Ident) isInstruction()            {}
func (Self) isInstruction()             {}
func (Alias) isInstruction()            {}
func (Send) isInstruction()             {}
func (Return) isInstruction()           {}
func (BlockReturn) isInstruction()      {}
func (LoadArg) isInstruction()          {}
func (LoadYieldParam) isInstruction()   {}
func (Literal) isInstruction()          {}
func (Cast) isInstruction()             {}
func (SolveConstraint) isInstruction()  {}
func (Unanalyzable) isInstruction()     {}
func (DebugEnvironment) isInstruction() {}

// Binding is one instruction in a BasicBlock, assigning Value's result to
// Bind (spec.md §3.4). ComputedType is nil until Infer runs.
type Binding struct {
	Bind         ast.LocalVar
	Loc          gstate.Loc
	Value        Instruction
	ComputedType types.Type
}

// BlockExit is a BasicBlock's terminator: conditional if Thenb != Elseb,
// unconditional (falls through to Thenb==Elseb) otherwise. Cond is
// NoVariable() for an unconditional exit.
type BlockExit struct {
	Cond  ast.LocalVar
	Thenb *BasicBlock
	Elseb *BasicBlock
	Loc   gstate.Loc
}

// Unconditional reports whether this exit has a single successor.
func (e BlockExit) Unconditional() bool { return e.Thenb == e.Elseb }

// BlockFlags is a bitset of BasicBlock annotations computed by post-passes.
type BlockFlags uint8

const (
	// FlagLoopHeader marks a block some back edge targets (spec.md §4.4.2
	// markLoopHeaders).
	FlagLoopHeader BlockFlags = 1 << iota
	// FlagDead marks the unreachable sink every dead branch target joins
	// (block 1 in every CFG).
	FlagDead
)

// BasicBlock is a straight-line run of Bindings ending in one BlockExit
// (spec.md §3.4).
type BasicBlock struct {
	ID         int
	Args       []ast.LocalVar
	Flags      BlockFlags
	OuterLoops int
	Exprs      []Binding
	Bexit      BlockExit
	BackEdges  []*BasicBlock
	Loc        gstate.Loc
}

// HasFlag reports whether f is set on b.
func (b *BasicBlock) HasFlag(f BlockFlags) bool { return b.Flags&f != 0 }

// Reserved sentinel values for CFG.MinLoops/MaxLoopWrite: a local pinned at
// one of these depths is never widened across iterations because its
// writes don't come from within the loop at all (spec.md §4.6).
const (
	// MinLoopField marks an instance/class-var read: always defined before
	// method entry, so it behaves as if written at loop depth -1.
	MinLoopField = -1
	// MinLoopGlobal marks a global-var read, same reasoning as MinLoopField.
	MinLoopGlobal = -2
	// MinLoopLet marks a T.let-annotated local: the annotation pins its
	// type, so loop-carried widening never applies to it.
	MinLoopLet = -3
)

// CFG is one method body's control-flow graph, plus the whole-graph
// bookkeeping CFGBuilder's post-passes and Inference both rely on
// (spec.md §3.4, §4.6). BasicBlocks[0] is the entry block; BasicBlocks[1] is
// the dead block every unreachable branch is wired to, unconditionally
// self-looping.
type CFG struct {
	Symbol     gstate.Symbol
	BasicBlocks []*BasicBlock

	// ForwardTopo lists the blocks reachable from entry in reverse
	// postorder of a DFS from entry. BackwardTopo is its mirror: reverse
	// postorder of a DFS from the dead block over predecessor edges. Both
	// are computed by CFGBuilder's fillInTopoSorts pass (not a generic
	// topological sort: the graph has legitimate cycles from loops, see
	// internal/toposet's package doc).
	ForwardTopo  []*BasicBlock
	BackwardTopo []*BasicBlock

	// MinLoops is, for each local, the shallowest loop nesting depth any
	// read or write of it is known to occur at (or one of the MinLoop*
	// sentinels). MaxLoopWrite is the deepest depth of any write. Both are
	// filled in by
	// computeMinMaxLoops and consumed by Infer to decide when a loop-
	// carried local's type must be widened to a fixpoint (spec.md §4.6).
	MinLoops     map[ast.LocalVar]int
	MaxLoopWrite map[ast.LocalVar]int
}

// New creates a CFG for sym with its fixed entry (0) and dead (1) blocks
// wired in place.
func New(sym gstate.Symbol) *CFG {
	c := &CFG{
		Symbol:       sym,
		MinLoops:     map[ast.LocalVar]int{},
		MaxLoopWrite: map[ast.LocalVar]int{},
	}
	entry := &BasicBlock{ID: 0}
	dead := &BasicBlock{ID: 1, Flags: FlagDead}
	dead.Bexit = BlockExit{Cond: ast.NoVariable(), Thenb: dead, Elseb: dead}
	c.BasicBlocks = []*BasicBlock{entry, dead}
	return c
}

// Entry returns the method's single entry block.
func (c *CFG) Entry() *BasicBlock { return c.BasicBlocks[0] }

// Dead returns the shared unreachable sink block.
func (c *CFG) Dead() *BasicBlock { return c.BasicBlocks[1] }

// FreshBlock allocates a new block at the given loop nesting depth and
// appends it to BasicBlocks.
func (c *CFG) FreshBlock(outerLoops int, loc gstate.Loc) *BasicBlock {
	b := &BasicBlock{ID: len(c.BasicBlocks), OuterLoops: outerLoops, Loc: loc}
	c.BasicBlocks = append(c.BasicBlocks, b)
	return b
}
