// Package cfgbuilder implements CFGBuilder (spec.md §4.4): lowers a resolved
// MethodDef's body into a cfg.CFG, then runs the nine ordered post-passes
// that prune dead blocks, dealias reads, and compute the per-local loop
// bookkeeping Inference needs.
//
// Grounded on original_source/cfg/builder/{builder,builder_walk,builder_entry}.cc
// for the lowering rules and pass ordering (spec.md §4.4.1, §4.4.2), and on
// grailbio-gql's eval.go bindings/callFrame stack discipline for the walker's
// own scope-stack style: a builder struct threading one CFG plus a stack of
// scope frames (loop/rescue/block targets), rather than a single flat method.
package cfgbuilder

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
)

// scope is one entry of the builder's non-local-control-flow stack: the
// blocks `next`/`break`/`retry` target, and the send-and-block link active
// inside a block body (for BlockReturn), mirroring CFGContext's
// nextScope/breakScope/rescueScope/activeLink fields (spec.md §4.4.1).
type scope struct {
	next, brk, rescue *cfg.BasicBlock
	link              *cfg.SendAndBlockLink
}

// builder carries the mutable state one MethodDef's lowering walk threads
// through: the CFG under construction, the loop-nesting depth (OuterLoops
// for freshly allocated blocks), the global-to-local alias map Ident(sym)
// lowering consults, and the active scope stack.
type builder struct {
	gs     *gstate.GlobalState
	c      *cfg.CFG
	method gstate.Symbol

	loopDepth int
	scopes    []scope

	// global2Local remembers the local a constant/field/global symbol was
	// first aliased to within this method, so repeat reads reuse the same
	// Alias binding instead of re-emitting one (spec.md §4.4.1 "recording a
	// prefix Alias(sym) if first use").
	global2Local map[gstate.Symbol]ast.LocalVar
}

// Build lowers sym's MethodDef body into a fully post-passed CFG. sym must
// already carry its resolved Args/ResultType (Resolver has run).
func Build(gs *gstate.GlobalState, def *ast.MethodDef) *cfg.CFG {
	b := &builder{
		gs:           gs,
		c:            cfg.New(def.Symbol),
		method:       def.Symbol,
		global2Local: map[gstate.Symbol]ast.LocalVar{},
	}

	entry := b.c.Entry()
	b.bind(entry, def.Loc(), ast.LocalVar{Name: gs.InternUTF8("<self>")}, cfg.Self{Class: b.selfClass()})
	entry = b.bindMethodArgs(entry, def)

	finalTarget := ast.FinalReturnVar()
	last := b.walk(entry, def.Body, finalTarget)
	if last != b.c.Dead() {
		last.Exprs = append(last.Exprs, cfg.Binding{
			Bind: ast.LocalVar{Name: gs.InternUTF8("<finalReturn>")}, Loc: def.Loc(),
			Value: cfg.Return{What: finalTarget},
		})
		b.jumpToDead(last)
	}

	runPostPasses(gs, b.c)
	return b.c
}

func (b *builder) selfClass() gstate.Symbol {
	owner := b.gs.Symbol(b.method).Owner
	return owner
}

// bindMethodArgs emits one LoadArg binding per non-shadow formal argument,
// in ArgInfo order, and returns the block evaluation continues in (always
// the entry block: loading arguments never branches).
func (b *builder) bindMethodArgs(entry *cfg.BasicBlock, def *ast.MethodDef) *cfg.BasicBlock {
	recv := ast.LocalVar{Name: b.gs.InternUTF8("<self>")}
	argInfos := b.gs.Symbol(b.method).Args
	idx := uint32(0)
	for _, raw := range def.Args {
		local, shadow := unwrapArgLocal(raw)
		if shadow {
			// Shadow args (block-local `;x` params) bind no LoadArg: they are
			// fresh locals with no caller-supplied value (spec.md §4.2).
			continue
		}
		if int(idx) >= len(argInfos) {
			break
		}
		b.bind(entry, raw.Loc(), local, cfg.LoadArg{Receiver: recv, Method: b.gs.Symbol(b.method).Name, Arg: idx})
		idx++
	}
	return entry
}

// unwrapArgLocal mirrors namer_rewrite.go's unwrapFormalArg: peels the
// RestArg/KeywordArg/OptionalArg/BlockArg/ShadowArg wrapper to the inner
// already-Namer-resolved LocalRef, reporting whether it was a ShadowArg (and
// so excluded from the method symbol's Args/LoadArg indexing).
func unwrapArgLocal(n ast.Node) (ast.LocalVar, bool) {
	switch v := n.(type) {
	case *ast.RestArg:
		lv, _ := unwrapArgLocal(v.Inner)
		return lv, false
	case *ast.KeywordArg:
		lv, _ := unwrapArgLocal(v.Inner)
		return lv, false
	case *ast.OptionalArg:
		lv, _ := unwrapArgLocal(v.Inner)
		return lv, false
	case *ast.BlockArg:
		lv, _ := unwrapArgLocal(v.Inner)
		return lv, false
	case *ast.ShadowArg:
		lv, _ := unwrapArgLocal(v.Inner)
		return lv, true
	case *ast.LocalRef:
		return v.Var, false
	default:
		return ast.LocalVar{}, false
	}
}

// bind appends a Binding evaluating value into target at the end of blk.
func (b *builder) bind(blk *cfg.BasicBlock, loc gstate.Loc, target ast.LocalVar, value cfg.Instruction) {
	blk.Exprs = append(blk.Exprs, cfg.Binding{Bind: target, Loc: loc, Value: value})
}

// freshLocal allocates a compiler temporary local, named after base for
// debuggability (spec.md §3.3, gstate.UniqueCFGTemp).
func (b *builder) freshLocal(base gstate.Name) ast.LocalVar {
	name := b.gs.FreshName(gstate.UniqueCFGTemp, base)
	return ast.LocalVar{Name: name, UniqueID: b.gs.FreshID()}
}

func (b *builder) jumpUnconditional(from, to *cfg.BasicBlock, loc gstate.Loc) {
	from.Bexit = cfg.BlockExit{Cond: ast.NoVariable(), Thenb: to, Elseb: to, Loc: loc}
}

func (b *builder) jumpConditional(from *cfg.BasicBlock, cond ast.LocalVar, thenb, elseb *cfg.BasicBlock, loc gstate.Loc) {
	from.Bexit = cfg.BlockExit{Cond: cond, Thenb: thenb, Elseb: elseb, Loc: loc}
}

func (b *builder) jumpToDead(from *cfg.BasicBlock) {
	b.jumpUnconditional(from, b.c.Dead(), from.Loc)
}

func (b *builder) report(code diag.Code, loc gstate.Loc, format string, args ...interface{}) {
	level := diag.Strong
	if loc.File != gstate.NoFile {
		level = b.gs.File(loc.File).Strictness
	}
	b.gs.Errors.Push(level, diag.New(code, b.gs.RenderLoc(loc), format, args...))
}

func (b *builder) pushScope(s scope) { b.scopes = append(b.scopes, s) }
func (b *builder) popScope()         { b.scopes = b.scopes[:len(b.scopes)-1] }

func (b *builder) currentScope() (scope, bool) {
	if len(b.scopes) == 0 {
		return scope{}, false
	}
	return b.scopes[len(b.scopes)-1], true
}

func (b *builder) activeLink() *cfg.SendAndBlockLink {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if b.scopes[i].link != nil {
			return b.scopes[i].link
		}
	}
	return nil
}
