package pipeline

import (
	"runtime/debug"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/desugar"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/namer"
	"github.com/sorbetgo/checker/internal/resolver"
)

// desugarAll runs desugar.Desugar for every source concurrently, each
// against its own gs.Fork(), and merges each worker's private table back
// into the canonical gs via gs.Merge, rewriting the returned tree's
// Name/Symbol fields through the resulting Substitution (spec.md §5: "each
// worker uses a deep copy of the current GlobalState, and on return the
// main thread maps its local Name/Symbol ids into the canonical GlobalState
// via a pre-computed substitution table").
//
// Forking is not load-bearing for desugar.Desugar today (it only calls
// InternUTF8, which is already safe to call concurrently against a shared
// gs without an Unfreeze token), but the worker pool still forks per file
// to honor the documented protocol rather than a narrower, implementation-
// specific shortcut: a future desugar pass that does mutate the symbol
// table gets the isolation for free.
func (p *Pipeline) desugarAll(sources []Source, refs []gstate.FileRef) []*ast.ClassDef {
	roots := make([]*ast.ClassDef, len(sources))
	traverse.Parallel.Each(len(sources), func(i int) error { // nolint: errcheck
		if p.gs.IsCancelled() {
			return nil
		}
		p.throttle(func() { roots[i] = p.desugarOne(sources[i], refs[i]) })
		return nil
	})
	return roots
}

func (p *Pipeline) desugarOne(src Source, ref gstate.FileRef) (root *ast.ClassDef) {
	defer func() {
		if e := recover(); e != nil {
			err := errors.E("panic desugaring %s: %v: %v", src.Path, e, string(debug.Stack()))
			level := p.strictnessFor(src.Path)
			p.gs.Errors.Push(level, diag.New(diag.InternalError, diag.Loc{File: src.Path}, "%v", err))
			root = ast.NewClassDef(gstate.Loc{File: ref}, nil, nil, nil, ast.ClassKindClass)
		}
	}()

	worker := p.gs.Fork()
	workerRoot := desugar.Desugar(worker, ref, src.Tree)
	sub := p.gs.Merge(worker)
	rewriteNames(sub, workerRoot)
	return workerRoot
}

// nameAndResolve runs Namer over every root, in source order (spec.md §5
// "Namer and resolver run in a single-threaded phase ... resolver sees
// files in a deterministic order (by FileRef id)"), then Resolver once over
// the whole batch.
func (p *Pipeline) nameAndResolve(roots []*ast.ClassDef) {
	for _, root := range roots {
		if p.gs.IsCancelled() {
			return
		}
		namer.Name(p.gs, root)
	}
	if p.gs.IsCancelled() {
		return
	}
	resolver.Resolve(p.gs, roots)
}
