package pipeline

import (
	"runtime/debug"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/cfgbuilder"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/infer"
	"github.com/sorbetgo/checker/internal/types"
)

// collectMethods walks every root's full Children() tree (classes may nest
// classes, singleton-class bodies, etc.) and returns every MethodDef found,
// in a deterministic depth-first, root-order walk.
func collectMethods(roots []*ast.ClassDef) []*ast.MethodDef {
	var out []*ast.MethodDef
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		if n == nil {
			return
		}
		if m, ok := n.(*ast.MethodDef); ok {
			out = append(out, m)
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return out
}

// buildAndInfer builds a CFG and runs inference for every method
// concurrently (spec.md §5: the worker pool also runs "later, CFG/inference
// on per-file chunks"). Unlike the desugar phase, CFGBuilder and Run never
// mutate gs's symbol table (they only read symbols Namer/Resolver already
// installed); the names they intern or create go through the name table's
// own lock, and fresh CFG-local ids come from gs.FreshID, which is safe for
// concurrent callers. So no per-worker Fork/Merge is needed here; every
// method reads and writes the same canonical gs directly.
func (p *Pipeline) buildAndInfer(methods []*ast.MethodDef) []*cfg.CFG {
	cfgs := make([]*cfg.CFG, len(methods))
	u := types.New(p.gs)
	traverse.Parallel.Each(len(methods), func(i int) error { // nolint: errcheck
		if p.gs.IsCancelled() {
			return nil
		}
		p.throttle(func() { cfgs[i] = p.buildAndInferOne(u, methods[i]) })
		return nil
	})
	return cfgs
}

func (p *Pipeline) buildAndInferOne(u *types.Universe, def *ast.MethodDef) (c *cfg.CFG) {
	loc := p.gs.RenderLoc(def.DeclLoc)
	level := p.gs.File(def.DeclLoc.File).Strictness

	defer func() {
		if e := recover(); e != nil {
			err := errors.E("panic building %s: %v: %v", loc, e, string(debug.Stack()))
			p.gs.Errors.Push(level, diag.New(diag.InternalError, loc, "%v", err))
			p.markUntyped(def)
		}
	}()

	// True is the minimum effective level at which CFG/inference run at all
	// (spec.md §6: "Inference/CFG only run when effective level is true or
	// higher"); below that, the method keeps whatever ResultType Resolver
	// left it with.
	if level < diag.True {
		return nil
	}

	before := len(p.gs.Errors.PeekFile(loc.File))
	c = cfgbuilder.Build(p.gs, def)
	after := p.gs.Errors.PeekFile(loc.File)

	ok := true
	for _, e := range after[before:] {
		if e.Code == diag.InternalError {
			ok = false
			break
		}
	}
	if !ok {
		p.markUntyped(def)
		return c
	}

	infer.Run(p.gs, u, c)
	return c
}

// markUntyped installs the inference.cc-style fallback (SPEC_FULL.md
// "unanalyzable-method guard"): a method whose CFG could not be built
// cleanly still gets entered into GlobalState, just with ResultType
// downgraded to Untyped rather than left at whatever Resolver inferred.
func (p *Pipeline) markUntyped(def *ast.MethodDef) {
	if def.Symbol == gstate.NoSymbol {
		return
	}
	p.gs.Symbol(def.Symbol).ResultType = types.Untyped
}
