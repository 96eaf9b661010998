// Package gstate implements GlobalState (spec.md §3.1): interned Names and
// Symbols, Files, the error sink, and the source of fresh identifiers. All of
// it is reachable only through an explicitly constructed *GlobalState — never
// a package-level singleton (spec.md Design Notes §9).
//
// Grounded on symbol/symbol.go's intern table: a mutex-guarded writer side
// and an atomic-pointer-guarded lock-free reader side. Generalized to three
// Name sub-kinds (UTF8/Constant/Unique) per spec.md §3.1, which the teacher's
// single flat string table did not need. Each entry's Hash is computed with
// hashutil.MurmurHash, mirroring symbol.hashSymbolName's use of a
// non-cryptographic hash for the symbol table rather than the
// content-addressed sha256 hashutil.String/Bytes.
package gstate

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/log"

	"github.com/sorbetgo/checker/internal/hashutil"
)

// Name is a deduplicated identifier: an index into GlobalState's name table.
type Name int32

// NoName is the sentinel invalid Name.
const NoName Name = 0

// NameKind distinguishes the three Name sub-kinds of spec.md §3.1.
type NameKind byte

const (
	UTF8Kind NameKind = iota
	ConstantKind
	UniqueKind
)

// UniqueNameKind tags what a Unique name was generated for, e.g.
// "block-pass temp", "rescue temp".
type UniqueNameKind string

const (
	UniqueBlockPassTemp  UniqueNameKind = "block-pass temp"
	UniqueRescueTemp     UniqueNameKind = "rescue temp"
	UniqueDestructureArg UniqueNameKind = "destructure arg"
	UniqueAndOrTemp      UniqueNameKind = "and/or temp"
	UniqueStatementTemp  UniqueNameKind = "statement temp"
	UniqueFinalReturn    UniqueNameKind = "final return"
	UniqueBlockCall      UniqueNameKind = "block call"
	UniqueCFGTemp        UniqueNameKind = "cfg temp"
)

type nameData struct {
	kind NameKind
	text string // UTF8/Constant: raw text. Unique: human-readable rendering.

	// Unique-only fields.
	uniqueKind UniqueNameKind
	base       Name
	num        int32

	hash hashutil.Hash
}

type nameTable struct {
	mu sync.Mutex

	// Readers use the atomic pointer; writers hold mu.
	dataPtr atomic.Pointer[[]nameData]

	utf8Interned     map[string]Name
	constantInterned map[string]Name
	uniqueCounters   map[Name]map[UniqueNameKind]int32
}

func newNameTable() *nameTable {
	t := &nameTable{
		utf8Interned:     map[string]Name{},
		constantInterned: map[string]Name{},
		uniqueCounters:   map[Name]map[UniqueNameKind]int32{},
	}
	data := []nameData{{kind: UTF8Kind, text: "<none>"}}
	t.dataPtr.Store(&data)
	return t
}

func (t *nameTable) get(n Name) nameData {
	data := *t.dataPtr.Load()
	if int(n) >= len(data) {
		log.Panicf("gstate: name %d not found", n)
	}
	return data[n]
}

func (t *nameTable) append(d nameData) Name {
	data := *t.dataPtr.Load()
	id := Name(len(data))
	data = append(append([]nameData{}, data...), d)
	t.dataPtr.Store(&data)
	return id
}

// InternUTF8 interns raw source text, e.g. a local variable or method name.
func (g *GlobalState) InternUTF8(text string) Name {
	t := g.names
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.utf8Interned[text]; ok {
		return id
	}
	id := t.append(nameData{kind: UTF8Kind, text: text, hash: hashutil.MurmurHash("utf8:" + text)})
	t.utf8Interned[text] = id
	return id
}

// InternConstant interns a constant/module/class name (conceptually
// "constantify(UTF8)" per spec.md §3.1).
func (g *GlobalState) InternConstant(text string) Name {
	t := g.names
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.constantInterned[text]; ok {
		return id
	}
	id := t.append(nameData{kind: ConstantKind, text: text, hash: hashutil.MurmurHash("const:" + text)})
	t.constantInterned[text] = id
	return id
}

// FreshName creates a new Unique name: a generated temporary carrying kind,
// base, and a per-base monotonically increasing counter (spec.md §3.1). A
// counter collision across methods is harmless because two Unique names are
// equal only if kind+base+num all match.
func (g *GlobalState) FreshName(kind UniqueNameKind, base Name) Name {
	t := g.names
	t.mu.Lock()
	defer t.mu.Unlock()
	counters, ok := t.uniqueCounters[base]
	if !ok {
		counters = map[UniqueNameKind]int32{}
		t.uniqueCounters[base] = counters
	}
	counters[kind]++
	num := counters[kind]
	baseText := t.get(base).text
	text := fmt.Sprintf("%s$%s$%d", baseText, kind, num)
	return t.append(nameData{
		kind: UniqueKind, text: text, uniqueKind: kind, base: base, num: num,
		hash: hashutil.MurmurHash(text),
	})
}

// Kind reports n's NameKind.
func (g *GlobalState) Kind(n Name) NameKind { return g.names.get(n).kind }

// Text renders n for debug/printer use: UTF8 and Constant names render as
// their raw text; Unique names render as "base$kind$num".
func (g *GlobalState) Text(n Name) string { return g.names.get(n).text }

// Hash returns the content hash of n, stable across a process run.
func (g *GlobalState) Hash(n Name) hashutil.Hash { return g.names.get(n).hash }

// UniqueBase returns the base Name a Unique name was generated from, and
// false if n is not Unique.
func (g *GlobalState) UniqueBase(n Name) (Name, bool) {
	d := g.names.get(n)
	if d.kind != UniqueKind {
		return NoName, false
	}
	return d.base, true
}
