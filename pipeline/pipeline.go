// Package pipeline wires the per-stage packages (desugar, namer, resolver,
// cfgbuilder, infer) into the end-to-end driver spec.md §5/§6 describe: a
// worker pool over per-file chunks, a single-threaded naming phase, and a
// second worker pool over per-method CFG+inference work.
//
// Grounded on gql/gql.go's Opts/Init/Session shape: a small config struct
// plus an explicit constructor, rather than gql's package-level singleton
// (gstate's own doc comment rules that out — GlobalState "must be created
// explicitly, not a singleton"). The worker pool itself is grounded on
// gql/btsv_table.go's use of github.com/grailbio/base/traverse.Parallel.Each
// to shard independent per-file work across goroutines.
package pipeline

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/parsetree"
)

// Opts configures a Pipeline run (spec.md §6 "Consumed from the driver: ...
// a strictness-level override table, a set of FileRefs, and a worker
// count").
type Opts struct {
	// Workers bounds the concurrency of both worker-pool phases. Zero means
	// traverse.Parallel's own default (GOMAXPROCS).
	Workers int

	// DefaultStrictness is the level assigned to a file whose path has no
	// entry in StrictnessOverride.
	DefaultStrictness diag.Level

	// StrictnessOverride maps a source path to the strictness level it
	// should run at, overriding DefaultStrictness.
	StrictnessOverride map[string]diag.Level
}

// Pipeline holds a GlobalState and the Opts it was configured with. Run may
// be called more than once against the same Pipeline (e.g. successive
// typecheck passes in a long-lived process), each time over a fresh batch
// of Sources.
type Pipeline struct {
	gs   *gstate.GlobalState
	opts Opts

	// sem throttles concurrent per-file/per-method work to Opts.Workers, as
	// a companion to traverse.Parallel's own GOMAXPROCS-sized pool: traverse
	// shards the loop across goroutines, sem bounds how many of those run
	// their worker body at once when the caller wants a tighter cap (e.g. to
	// leave headroom on a shared machine). nil when Workers is 0.
	sem *semaphore.Weighted
}

// Init binds gs to opts. gs must already exist (spec.md Design Notes §9);
// Init performs no mutation of its own.
func Init(gs *gstate.GlobalState, opts Opts) *Pipeline {
	if opts.Workers < 0 {
		opts.Workers = 0
	}
	p := &Pipeline{gs: gs, opts: opts}
	if opts.Workers > 0 {
		p.sem = semaphore.NewWeighted(int64(opts.Workers))
	}
	return p
}

// throttle runs cb while holding a slot on p.sem, if Opts.Workers bounded
// one. With no configured limit it just runs cb directly.
func (p *Pipeline) throttle(cb func()) {
	if p.sem == nil {
		cb()
		return
	}
	_ = p.sem.Acquire(context.Background(), 1)
	defer p.sem.Release(1)
	cb()
}

// Source is one file as handed to the pipeline: a path, its raw bytes (kept
// for Loc rendering and hashing), and the tree the external parser already
// produced for it (spec.md §6 "Consumed from the parser (external)").
type Source struct {
	Path  string
	Bytes []byte
	Tree  *parsetree.Node
}

// Result is everything the driver needs after a Run: the typed, desugared
// ASTs (one root per source, in source order) and the CFGs built for every
// method reached across all of them (spec.md §6 "Exposed to the driver: a
// sequence of typed ASTs and CFGs").
type Result struct {
	Roots []*ast.ClassDef
	CFGs  []*cfg.CFG
}

// strictnessFor resolves the effective level for path per Opts.
func (p *Pipeline) strictnessFor(path string) diag.Level {
	if lvl, ok := p.opts.StrictnessOverride[path]; ok {
		return lvl
	}
	return p.opts.DefaultStrictness
}

// Run executes the full pipeline over sources: parallel index/desugar per
// file, a single-threaded namer+resolver pass, then parallel CFG+inference
// per method (spec.md §5). It returns the partial Result built before
// cancellation if gs.Cancel was called mid-run.
func (p *Pipeline) Run(sources []Source) *Result {
	refs := make([]gstate.FileRef, len(sources))
	for i, src := range sources {
		refs[i] = p.gs.AddFile(src.Path, src.Bytes, p.strictnessFor(src.Path))
	}

	roots := p.desugarAll(sources, refs)
	if p.gs.IsCancelled() {
		return &Result{Roots: roots}
	}

	p.nameAndResolve(roots)
	if p.gs.IsCancelled() {
		return &Result{Roots: roots}
	}

	methods := collectMethods(roots)
	cfgs := p.buildAndInfer(methods)
	return &Result{Roots: roots, CFGs: cfgs}
}
