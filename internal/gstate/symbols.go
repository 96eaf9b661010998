package gstate

import (
	"sync"

	"github.com/grailbio/base/log"
)

// Symbol is a referenceable entity: class, module, method, field, static
// field, type member, type argument, method argument, or local alias
// (spec.md §3.1). It is an index into GlobalState's symbol table.
type Symbol int32

// NoSymbol is the sentinel invalid Symbol.
const NoSymbol Symbol = 0

// RootSymbol is the distinguished "<root>" symbol: the owner of every
// top-level class (spec.md §3.1 "the root is a distinguished <root> symbol").
const RootSymbol Symbol = 1

// Kind is a bitset of symbol kind flags.
type Kind uint16

const (
	KindClass Kind = 1 << iota
	KindModule
	KindMethod
	KindField
	KindStaticField
	KindTypeMember
	KindTypeArgument
	KindMethodArgument
	KindLocalAlias
)

func (k Kind) Has(f Kind) bool { return k&f != 0 }

// Visibility is the access level of a method or field.
type Visibility byte

const (
	Public Visibility = iota
	Protected
	Private
)

// ArgInfo describes one formal argument of a method symbol.
type ArgInfo struct {
	Name     Name
	Rest     bool
	Keyword  bool
	Optional bool
	Block    bool
	Shadow   bool
	Loc      Loc

	// ResultType is opaque for the same reason as SymbolData.ResultType: it
	// holds a types.Type once Resolver finishes, without gstate importing
	// package types. Unlike a local variable or field, a method argument
	// never needs a separate symbol of its own (nothing else references it
	// by owner+name), so its type lives here instead of on a child Symbol.
	ResultType interface{}
}

// SymbolData is the mutable record behind a Symbol.
type SymbolData struct {
	Owner      Symbol
	Name       Name
	Kind       Kind
	Visibility Visibility

	TypeParams []Symbol
	Ancestors  []Symbol // resolved mixins/superclass, in MRO-relevant order
	SuperClass Symbol

	Args []ArgInfo

	// ResultType is opaque here to avoid an import cycle with package types;
	// it holds a types.Type once the namer/resolver/cfgbuilder set it. Readers
	// type-assert it back to types.Type.
	ResultType interface{}

	Loc Loc

	// ModuleFunction is a flag for a scope where a bare `module_function`
	// call is active. No phase sets or reads it: namer tracks
	// module_function with its own per-scope stack.
	ModuleFunction bool
}

type symbolTable struct {
	mu   sync.Mutex
	data []SymbolData
	// byOwnerName indexes symbols by (owner,name) for enterClassSymbol-style
	// lookup/creation.
	byOwnerName map[Symbol]map[Name]Symbol
}

func newSymbolTable() *symbolTable {
	t := &symbolTable{byOwnerName: map[Symbol]map[Name]Symbol{}}
	// index 0: NoSymbol sentinel. index 1: RootSymbol.
	t.data = []SymbolData{{}, {Owner: NoSymbol, Kind: KindClass | KindModule}}
	return t
}

func (t *symbolTable) get(s Symbol) *SymbolData {
	if int(s) >= len(t.data) {
		log.Panicf("gstate: symbol %d not found", s)
	}
	return &t.data[s]
}

// Symbol returns a pointer to s's mutable data. Callers must only mutate it
// while holding GlobalState's unfrozen capability (see Unfreeze).
func (g *GlobalState) Symbol(s Symbol) *SymbolData { return g.symbols.get(s) }

// NewSymbol allocates a fresh symbol under owner with the given name and
// kind, without installing it into the owner/name index (used for locals,
// method arguments, and other symbols that are not looked up by name).
func (g *GlobalState) NewSymbol(owner Symbol, name Name, kind Kind) Symbol {
	g.requireUnfrozen()
	t := g.symbols
	t.mu.Lock()
	defer t.mu.Unlock()
	id := Symbol(len(t.data))
	t.data = append(t.data, SymbolData{Owner: owner, Name: name, Kind: kind})
	return id
}

// EnterClassSymbol finds or creates the class/module symbol named `name`
// under `owner`, mirroring the teacher's enterClassSymbol chain-building
// (namer.go squashes a constant path "A::B::C" into nested calls of this).
func (g *GlobalState) EnterClassSymbol(owner Symbol, name Name) Symbol {
	g.requireUnfrozen()
	t := g.symbols
	t.mu.Lock()
	defer t.mu.Unlock()
	children, ok := t.byOwnerName[owner]
	if !ok {
		children = map[Name]Symbol{}
		t.byOwnerName[owner] = children
	}
	if id, ok := children[name]; ok {
		return id
	}
	id := Symbol(len(t.data))
	t.data = append(t.data, SymbolData{Owner: owner, Name: name, Kind: KindClass})
	children[name] = id
	return id
}

// EnterMethodSymbol finds or creates a method symbol named `name` under
// owner. If a method by that name already exists, it is returned unchanged
// (the caller, namer, is responsible for recording RedefinitionOfMethod and
// overwriting Args/Loc).
func (g *GlobalState) EnterMethodSymbol(owner Symbol, name Name) (sym Symbol, existed bool) {
	g.requireUnfrozen()
	t := g.symbols
	t.mu.Lock()
	defer t.mu.Unlock()
	children, ok := t.byOwnerName[owner]
	if !ok {
		children = map[Name]Symbol{}
		t.byOwnerName[owner] = children
	}
	if id, ok := children[name]; ok {
		return id, true
	}
	id := Symbol(len(t.data))
	t.data = append(t.data, SymbolData{Owner: owner, Name: name, Kind: KindMethod})
	children[name] = id
	return id, false
}

// EnterFieldSymbol finds or creates a field symbol named `name` under owner.
// Used for instance/class variables (resolver, owner being the enclosing
// class) and for global variables (namer, owner being RootSymbol; spec.md
// §4.2 "UnresolvedIdent(Global, name) rewrites to a Field symbol under
// <root>").
func (g *GlobalState) EnterFieldSymbol(owner Symbol, name Name) Symbol {
	g.requireUnfrozen()
	t := g.symbols
	t.mu.Lock()
	defer t.mu.Unlock()
	children, ok := t.byOwnerName[owner]
	if !ok {
		children = map[Name]Symbol{}
		t.byOwnerName[owner] = children
	}
	if id, ok := children[name]; ok {
		return id
	}
	id := Symbol(len(t.data))
	t.data = append(t.data, SymbolData{Owner: owner, Name: name, Kind: KindField})
	children[name] = id
	return id
}

// singletonMarkerName is the reserved name under which a class's singleton
// (class-method) table is entered as a child of the class symbol. It is not
// a name any parsed constant can ever spell, so it never collides.
func (g *GlobalState) singletonMarkerName() Name { return g.InternConstant("<<singleton>>") }

// SingletonOf finds or creates the synthetic symbol that owns owner's class
// methods (`def self.m`, `class << self`), keeping them
// in a namespace distinct from owner's instance methods (spec.md §4.2
// "alias the method onto the singleton").
func (g *GlobalState) SingletonOf(owner Symbol) Symbol {
	g.requireUnfrozen()
	return g.EnterClassSymbol(owner, g.singletonMarkerName())
}

// LookupSingletonOf is SingletonOf's read-only counterpart, used by phases
// that run after Namer/Resolver and so hold no Unfreeze capability.
func (g *GlobalState) LookupSingletonOf(owner Symbol) (Symbol, bool) {
	return g.LookupMember(owner, g.singletonMarkerName())
}

// LookupMember returns the symbol named `name` directly owned by owner, if
// any.
func (g *GlobalState) LookupMember(owner Symbol, name Name) (Symbol, bool) {
	t := g.symbols
	t.mu.Lock()
	defer t.mu.Unlock()
	children, ok := t.byOwnerName[owner]
	if !ok {
		return NoSymbol, false
	}
	id, ok := children[name]
	return id, ok
}
