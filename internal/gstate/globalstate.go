package gstate

import (
	"runtime"
	"sync/atomic"

	"github.com/grailbio/base/log"

	"github.com/sorbetgo/checker/internal/diag"
)

// GlobalState is the centralized interning + symbol-table object: names,
// symbols, files, and the error queue (spec.md §3.1, GLOSSARY). It must be
// constructed explicitly via New; multiple GlobalStates may coexist, e.g. one
// per test (spec.md Design Notes §9 "must be created explicitly, not a
// singleton").
type GlobalState struct {
	names   *nameTable
	symbols *symbolTable
	files   *fileTable

	Errors *diag.Queue

	// WellKnown holds the core class symbols installed under RootSymbol by
	// New (package types pins its lattice operations against these).
	WellKnown WellKnownSymbols

	freshCounter int64

	// unfrozen is a scoped capability: Namer/Resolver call Unfreeze to obtain
	// a token permitting symbol/name-table mutation, and must Release it
	// before the table is read by another phase (spec.md §4.3 "mutate
	// GlobalState only inside an unfrozen ... scoped capability").
	unfrozen int32

	// cancelled is polled cooperatively between files/phases (spec.md §5
	// "Cancellation").
	cancelled int32
}

// New creates an empty GlobalState with the root symbol pre-installed.
func New() *GlobalState {
	g := &GlobalState{
		names:   newNameTable(),
		symbols: newSymbolTable(),
		files:   newFileTable(),
		Errors:  diag.NewQueue(),
	}
	g.installWellKnown()
	return g
}

// UnfreezeToken is returned by Unfreeze and must be passed to Release.
type UnfreezeToken struct{ gs *GlobalState }

// Unfreeze enters the scoped "unfrozen" region permitting mutation. Callers
// must defer Release(token).
func (g *GlobalState) Unfreeze() UnfreezeToken {
	if !atomic.CompareAndSwapInt32(&g.unfrozen, 0, 1) {
		log.Panicf("gstate: Unfreeze called while already unfrozen")
	}
	return UnfreezeToken{gs: g}
}

// Release exits the unfrozen region entered by the matching Unfreeze call.
func (t UnfreezeToken) Release() {
	if !atomic.CompareAndSwapInt32(&t.gs.unfrozen, 1, 0) {
		log.Panicf("gstate: Release called without a matching Unfreeze")
	}
}

func (g *GlobalState) requireUnfrozen() {
	if atomic.LoadInt32(&g.unfrozen) == 0 {
		log.Panicf("gstate: mutation attempted outside an Unfreeze/Release scope")
	}
}

// Cancel requests cooperative cancellation. Workers poll IsCancelled between
// files and between phases (spec.md §5).
func (g *GlobalState) Cancel() { atomic.StoreInt32(&g.cancelled, 1) }

// IsCancelled reports whether Cancel has been called.
func (g *GlobalState) IsCancelled() bool { return atomic.LoadInt32(&g.cancelled) != 0 }

// FreshID returns a process-wide monotonically increasing integer, used as a
// source of fresh identifiers outside the Name/Symbol tables (e.g. the
// UniqueID of locals created by Desugar, Namer and CFGBuilder).
func (g *GlobalState) FreshID() int64 { return atomic.AddInt64(&g.freshCounter, 1) }

// Substitution maps Name/Symbol ids produced by a worker's private
// GlobalState copy onto this (canonical) GlobalState, as required by the
// parallel merge protocol of spec.md §5: "the main thread maps its local
// Name/Symbol ids into the canonical GlobalState via a pre-computed
// substitution table."
type Substitution struct {
	Names   map[Name]Name
	Symbols map[Symbol]Symbol
	Files   map[FileRef]FileRef
}

// NewSubstitution creates an empty Substitution.
func NewSubstitution() *Substitution {
	return &Substitution{Names: map[Name]Name{}, Symbols: map[Symbol]Symbol{}, Files: map[FileRef]FileRef{}}
}

func (s *Substitution) Name(n Name) Name {
	if m, ok := s.Names[n]; ok {
		return m
	}
	return n
}

func (s *Substitution) Symbol(sym Symbol) Symbol {
	if m, ok := s.Symbols[sym]; ok {
		return m
	}
	return sym
}

func (s *Substitution) File(f FileRef) FileRef {
	if m, ok := s.Files[f]; ok {
		return m
	}
	return f
}

// Merge absorbs worker's names, symbols and files into g, returning the
// Substitution the caller should apply to every Name/Symbol/FileRef produced
// against worker. UTF8 and Constant names (by text), class, module and
// method symbols (by owner and name) and files (by path) that g already
// holds are reused; every Unique name and every other symbol of worker is
// appended to g as a new entry. Concurrent Merge calls on the same g take
// turns holding its unfrozen capability.
//
// This realizes spec.md §5's "worker uses a deep copy of the current
// GlobalState, and on return the main thread maps its local ids into the
// canonical GlobalState via a pre-computed substitution table."
func (g *GlobalState) Merge(worker *GlobalState) *Substitution {
	for !atomic.CompareAndSwapInt32(&g.unfrozen, 0, 1) {
		runtime.Gosched()
	}
	defer atomic.StoreInt32(&g.unfrozen, 0)
	sub := NewSubstitution()

	workerNames := *worker.names.dataPtr.Load()
	for i, nd := range workerNames {
		wn := Name(i)
		if wn == NoName {
			continue
		}
		var canon Name
		switch nd.kind {
		case UTF8Kind:
			canon = g.InternUTF8(nd.text)
		case ConstantKind:
			canon = g.InternConstant(nd.text)
		case UniqueKind:
			canon = g.FreshName(nd.uniqueKind, sub.Name(nd.base))
		}
		if canon != wn {
			sub.Names[wn] = canon
		}
	}

	worker.symbols.mu.Lock()
	workerSyms := append([]SymbolData{}, worker.symbols.data...)
	worker.symbols.mu.Unlock()
	for i, sd := range workerSyms {
		ws := Symbol(i)
		if ws == NoSymbol || ws == RootSymbol {
			continue
		}
		owner := sub.Symbol(sd.Owner)
		name := sub.Name(sd.Name)
		var canon Symbol
		if sd.Kind.Has(KindClass) || sd.Kind.Has(KindModule) {
			canon = g.EnterClassSymbol(owner, name)
		} else if sd.Kind.Has(KindMethod) {
			canon, _ = g.EnterMethodSymbol(owner, name)
		} else {
			canon = g.NewSymbol(owner, name, sd.Kind)
		}
		if canon != ws {
			sub.Symbols[ws] = canon
		}
	}

	worker.files.mu.Lock()
	workerFiles := append([]*File{}, worker.files.files...)
	worker.files.mu.Unlock()
	for i, f := range workerFiles {
		wf := FileRef(i)
		if wf == NoFile || f == nil {
			continue
		}
		canon := NoFile
		g.files.mu.Lock()
		for j, gf := range g.files.files {
			if gf != nil && gf.Path == f.Path {
				canon = FileRef(j)
				break
			}
		}
		g.files.mu.Unlock()
		if canon == NoFile {
			canon = g.AddFile(f.Path, f.Source, f.Strictness)
		}
		if canon != wf {
			sub.Files[wf] = canon
		}
	}

	return sub
}

// Fork builds a private GlobalState a worker can mutate freely: every name,
// symbol, and file g currently holds is replayed, in the same order g's own
// construction produced them, into a fresh table. Because both tables start
// from New()'s identical WellKnown install and every subsequent step is a
// deterministic function of (call order, args), this reproduces the exact
// same ids g already handed out — so AST/CFG values a single-threaded phase
// built against g stay valid when a worker given Fork's result reads them.
// Anything a worker allocates past this point (new temporaries, a class
// only that file defines) gets its own fresh id in the worker's table; the
// caller reconciles those via g.Merge after the worker finishes (spec.md
// §5's "deep copy ... pre-computed substitution table").
func (g *GlobalState) Fork() *GlobalState {
	worker := New()
	tok := worker.Unfreeze()
	defer tok.Release()

	names := *g.names.dataPtr.Load()
	for i := 1; i < len(names); i++ {
		nd := names[i]
		switch nd.kind {
		case UTF8Kind:
			worker.InternUTF8(nd.text)
		case ConstantKind:
			worker.InternConstant(nd.text)
		case UniqueKind:
			worker.FreshName(nd.uniqueKind, nd.base)
		}
	}

	g.symbols.mu.Lock()
	syms := append([]SymbolData{}, g.symbols.data...)
	g.symbols.mu.Unlock()
	for i := 2; i < len(syms); i++ {
		sd := syms[i]
		var id Symbol
		switch {
		case sd.Kind.Has(KindClass) || sd.Kind.Has(KindModule):
			id = worker.EnterClassSymbol(sd.Owner, sd.Name)
		case sd.Kind.Has(KindMethod):
			id, _ = worker.EnterMethodSymbol(sd.Owner, sd.Name)
		default:
			id = worker.NewSymbol(sd.Owner, sd.Name, sd.Kind)
		}
		// Enter*/New only set Owner/Name/Kind; copy the rest of g's fields
		// (Args, ResultType, Ancestors, ...) a prior Namer/Resolver pass
		// filled in, so the worker sees the same fully resolved symbol.
		*worker.Symbol(id) = sd
	}

	g.files.mu.Lock()
	files := append([]*File{}, g.files.files...)
	g.files.mu.Unlock()
	for i, f := range files {
		if FileRef(i) == NoFile || f == nil {
			continue
		}
		ref := worker.AddFile(f.Path, f.Source, f.Strictness)
		worker.File(ref).ParseTree = f.ParseTree
	}

	return worker
}
