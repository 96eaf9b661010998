package infer

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// TypeAndOrigins pairs a computed type with the locations that contributed
// to it, for "Got X originating from …" error detail sections (spec.md
// §4.5.1).
type TypeAndOrigins struct {
	Type    types.Type
	Origins []gstate.Loc
}

// TypeTest is one (other-local, refined-type) pair inside a KnowledgeFact's
// yesTypeTests/noTypeTests (spec.md §4.5.1).
type TypeTest struct {
	Var  ast.LocalVar
	Type types.Type
}

// KnowledgeFact is everything a condition being true (or false) implies
// about other locals (spec.md §4.5.1, §4.5.6): yesTypeTests must hold as a
// subtype, noTypeTests must not.
type KnowledgeFact struct {
	YesTypeTests []TypeTest
	NoTypeTests  []TypeTest
}

func (k *KnowledgeFact) addYes(v ast.LocalVar, t types.Type) {
	k.YesTypeTests = append(k.YesTypeTests, TypeTest{Var: v, Type: t})
}

func (k *KnowledgeFact) addNo(v ast.LocalVar, t types.Type) {
	k.NoTypeTests = append(k.NoTypeTests, TypeTest{Var: v, Type: t})
}

func (k KnowledgeFact) clone() KnowledgeFact {
	return KnowledgeFact{
		YesTypeTests: append([]TypeTest{}, k.YesTypeTests...),
		NoTypeTests:  append([]TypeTest{}, k.NoTypeTests...),
	}
}

// min intersects k with other: only a test both branches agree on survives
// a merge, and survives with the weaker (lub/glb'd) type (spec.md §4.5.7).
func (k KnowledgeFact) min(u *types.Universe, other KnowledgeFact) KnowledgeFact {
	out := KnowledgeFact{}
	for _, a := range k.YesTypeTests {
		for _, b := range other.YesTypeTests {
			if a.Var == b.Var {
				out.addYes(a.Var, u.Glb(a.Type, b.Type))
			}
		}
	}
	for _, a := range k.NoTypeTests {
		for _, b := range other.NoTypeTests {
			if a.Var == b.Var {
				out.addNo(a.Var, u.Lub(a.Type, b.Type))
			}
		}
	}
	return out
}

func (k *KnowledgeFact) removeVar(v ast.LocalVar) {
	kept := k.YesTypeTests[:0]
	for _, t := range k.YesTypeTests {
		if t.Var != v {
			kept = append(kept, t)
		}
	}
	k.YesTypeTests = kept
	kept2 := k.NoTypeTests[:0]
	for _, t := range k.NoTypeTests {
		if t.Var != v {
			kept2 = append(kept2, t)
		}
	}
	k.NoTypeTests = kept2
}

// TestedKnowledge is the truthy/falsy KnowledgeFact pair a local carries
// (spec.md §4.5.1). seenTruthy/seenFalsy are merge-only bookkeeping (spec.md
// §4.5.7): whether some back-edge has contributed a truthy/falsy option yet,
// so the first contributor initializes and later ones intersect (min).
type TestedKnowledge struct {
	Truthy, Falsy KnowledgeFact

	seenTruthy, seenFalsy bool
}

func (t TestedKnowledge) clone() TestedKnowledge {
	return TestedKnowledge{Truthy: t.Truthy.clone(), Falsy: t.Falsy.clone(), seenTruthy: t.seenTruthy, seenFalsy: t.seenFalsy}
}

func (t *TestedKnowledge) removeVar(v ast.LocalVar) {
	t.Truthy.removeVar(v)
	t.Falsy.removeVar(v)
}

// mergeKnowledge folds other into dst at a join point, the first
// contributor initializing and subsequent ones intersecting (spec.md
// §4.5.7). Unlike the original's TestedKnowledge, there's no separate
// "all-knowing" distinction kept between an option having been seen once
// versus many times; min() is idempotent so repeated folding converges to
// the same under-approximation either way.
func mergeKnowledge(u *types.Universe, dst *TestedKnowledge, other TestedKnowledge) {
	if !dst.seenTruthy {
		dst.Truthy = other.Truthy.clone()
	} else {
		dst.Truthy = dst.Truthy.min(u, other.Truthy)
	}
	dst.seenTruthy = true

	if !dst.seenFalsy {
		dst.Falsy = other.Falsy.clone()
	} else {
		dst.Falsy = dst.Falsy.min(u, other.Falsy)
	}
	dst.seenFalsy = true
}

type varState struct {
	typeAndOrigins TypeAndOrigins
	knowledge      TestedKnowledge
	knownTruthy    bool
}

// Environment is the per-block typing state Infer threads across a CFG: a
// map from local to (type, origins, knowledge, knownTruthy), plus the
// pinned types loop-carried/field/global/let locals must stay a subtype of
// (spec.md §4.5.1).
type Environment struct {
	gs       *gstate.GlobalState
	ownerLoc gstate.Loc

	vars        map[ast.LocalVar]*varState
	pinnedTypes map[ast.LocalVar]TypeAndOrigins
	isDead      bool
}

func newEnvironment(gs *gstate.GlobalState, ownerLoc gstate.Loc) *Environment {
	return &Environment{
		gs:          gs,
		ownerLoc:    ownerLoc,
		vars:        map[ast.LocalVar]*varState{},
		pinnedTypes: map[ast.LocalVar]TypeAndOrigins{},
	}
}

// state returns v's slot, creating one typed NilClass-at-ownerLoc if v has
// never been touched in this environment (spec.md §4.5.3's "initialize
// B.args with a nil type", §4.5.4's "creating a nil entry if unseen";
// grounded on inference.cc's run() loop, which defaults every still-nullptr
// var type to core::Types::nil() right after populating a block's entry
// environment).
func (e *Environment) state(v ast.LocalVar) *varState {
	s, ok := e.vars[v]
	if !ok {
		s = &varState{typeAndOrigins: TypeAndOrigins{
			Type:    types.NewClass(e.gs.WellKnown.NilClass),
			Origins: []gstate.Loc{e.ownerLoc},
		}}
		e.vars[v] = s
	}
	return s
}

func (e *Environment) getType(v ast.LocalVar) TypeAndOrigins { return e.state(v).typeAndOrigins }

func (e *Environment) setType(v ast.LocalVar, t TypeAndOrigins) { e.state(v).typeAndOrigins = t }

func (e *Environment) knowledge(v ast.LocalVar) TestedKnowledge { return e.state(v).knowledge }

func (e *Environment) setKnowledge(v ast.LocalVar, k TestedKnowledge) { e.state(v).knowledge = k }

// clone makes an independent copy, used by withCond (spec.md §4.5.5) since
// narrowing a successor's view of a condition must not mutate the
// predecessor's own out-environment.
func (e *Environment) clone() *Environment {
	out := newEnvironment(e.gs, e.ownerLoc)
	out.isDead = e.isDead
	for v, s := range e.vars {
		cp := *s
		cp.knowledge = s.knowledge.clone()
		cp.typeAndOrigins.Origins = append([]gstate.Loc{}, s.typeAndOrigins.Origins...)
		out.vars[v] = &cp
	}
	for v, t := range e.pinnedTypes {
		out.pinnedTypes[v] = t
	}
	return out
}

// populateFrom copies seen wholesale onto cur, for a block entered through
// exactly one back-edge (spec.md §4.5.3).
func populateFrom(cur, seen *Environment) {
	cur.isDead = seen.isDead
	for v, s := range seen.vars {
		cp := *s
		cp.knowledge = s.knowledge.clone()
		cur.vars[v] = &cp
	}
	for v, t := range seen.pinnedTypes {
		cur.pinnedTypes[v] = t
	}
}

// applyKnowledge narrows env in place by k's yes/no type tests, returning
// true if any narrowing drove a variable to Bottom (spec.md §4.5.5's
// per-variable narrowing step, reused directly by hard_assert's immediate
// narrowing in §4.5.6).
func applyKnowledge(u *types.Universe, env *Environment, k KnowledgeFact) bool {
	dead := false
	for _, tt := range k.YesTypeTests {
		cur := env.getType(tt.Var)
		narrowed := u.Glb(cur.Type, tt.Type)
		env.setType(tt.Var, TypeAndOrigins{Type: narrowed, Origins: cur.Origins})
		if narrowed == types.Bottom {
			dead = true
		}
	}
	for _, tt := range k.NoTypeTests {
		cur := env.getType(tt.Var)
		narrowed := u.ApproximateSubtract(cur.Type, tt.Type)
		env.setType(tt.Var, TypeAndOrigins{Type: narrowed, Origins: cur.Origins})
		if narrowed == types.Bottom {
			dead = true
		}
	}
	return dead
}

// withCond narrows a clone of env for the successor reached when cond
// evaluated to taken, per spec.md §4.5.5. A noVariable or blockCall exit
// condition carries no narrowing; returns env itself, unmodified.
func withCond(u *types.Universe, gs *gstate.GlobalState, env *Environment, cond ast.LocalVar, taken bool) *Environment {
	if cond == ast.NoVariable() || cond == ast.BlockCallVar() {
		return env
	}
	out := env.clone()
	k := out.knowledge(cond)
	chosen := k.Falsy
	if taken {
		chosen = k.Truthy
	}
	if applyKnowledge(u, out, chosen) {
		out.isDead = true
	}

	condCur := out.getType(cond)
	var narrowedCond types.Type
	if taken {
		narrowedCond = u.DropSubtypesOf(condCur.Type, gs.WellKnown.NilClass)
		narrowedCond = u.DropSubtypesOf(narrowedCond, gs.WellKnown.FalseClass)
		out.state(cond).knownTruthy = true
	} else {
		narrowedCond = u.Glb(condCur.Type, u.FalsyTypes())
	}
	out.setType(cond, TypeAndOrigins{Type: narrowedCond, Origins: condCur.Origins})
	if narrowedCond == types.Bottom {
		out.isDead = true
	}
	return out
}

// mergeWith folds other (env as seen arriving along one particular back
// edge) into dst at a join point (spec.md §4.5.7).
func mergeWith(u *types.Universe, dst, other *Environment, outerLoops int, maxLoopWrite map[ast.LocalVar]int) {
	dst.isDead = dst.isDead && other.isDead

	seen := map[ast.LocalVar]bool{}
	for v := range dst.vars {
		seen[v] = true
	}
	for v := range other.vars {
		seen[v] = true
	}
	for v := range seen {
		dstS, dstOK := dst.vars[v]
		otherS, otherOK := other.vars[v]
		switch {
		case dstOK && otherOK:
			merged := u.Lub(dstS.typeAndOrigins.Type, otherS.typeAndOrigins.Type)
			dstS.typeAndOrigins = TypeAndOrigins{
				Type:    merged,
				Origins: append(append([]gstate.Loc{}, dstS.typeAndOrigins.Origins...), otherS.typeAndOrigins.Origins...),
			}
			dstS.knownTruthy = dstS.knownTruthy && otherS.knownTruthy
			if outerLoops > maxLoopWrite[v] {
				mergeKnowledge(u, &dstS.knowledge, otherS.knowledge)
			}
		case otherOK && !dstOK:
			cp := *otherS
			cp.knowledge = otherS.knowledge.clone()
			dst.vars[v] = &cp
		}
	}
}

// computePins fills dst.pinnedTypes for every local v with
// outerLoops(bb) < minLoops[v] < maxLoopWrite[v], the lub of
// pinnedTypes[v] over the back edges already visited (spec.md §4.5.3).
func computePins(u *types.Universe, dst *Environment, envs []*Environment, minLoops, maxLoopWrite map[ast.LocalVar]int, outerLoops int) {
	for v, minLoop := range minLoops {
		maxLoop := maxLoopWrite[v]
		if !(outerLoops < minLoop && minLoop < maxLoop) {
			continue
		}
		var acc types.Type
		var origins []gstate.Loc
		for _, e := range envs {
			pt, ok := e.pinnedTypes[v]
			if !ok {
				continue
			}
			if acc == nil {
				acc = pt.Type
			} else {
				acc = u.Lub(acc, pt.Type)
			}
			origins = append(origins, pt.Origins...)
		}
		if acc != nil {
			dst.pinnedTypes[v] = TypeAndOrigins{Type: acc, Origins: origins}
		}
	}
}

// clearKnowledge removes every knowledge entry about reassigned from every
// other local's facts (spec.md §4.5.6 "Clearing").
func clearKnowledge(env *Environment, reassigned ast.LocalVar) {
	for _, s := range env.vars {
		s.knowledge.removeVar(reassigned)
	}
	if s, ok := env.vars[reassigned]; ok {
		s.knowledge = TestedKnowledge{}
	}
}

// substituteSelf resolves T.self_type/T.attached_class occurrences inside t
// against self (the concrete receiver type at this call site), recursing
// through the same composite shapes instantiateType (types.go) already
// walks for TypeVarType substitution — generalized here to swap a different
// pair of leaf markers instead.
func substituteSelf(u *types.Universe, t types.Type, self types.Type) types.Type {
	if t == types.SelfType || t == types.AttachedClass {
		return self
	}
	switch v := t.(type) {
	case types.AppliedType:
		targs := make([]types.Type, len(v.Targs))
		for i, a := range v.Targs {
			targs[i] = substituteSelf(u, a, self)
		}
		return types.NewApplied(v.Symbol, targs)
	case types.MetaTypeType:
		return types.NewMetaType(substituteSelf(u, v.Wrapped, self))
	case types.OrType:
		return types.NewOr(u, substituteSelf(u, v.A, self), substituteSelf(u, v.B, self))
	case types.AndType:
		return types.NewAnd(u, substituteSelf(u, v.A, self), substituteSelf(u, v.B, self))
	default:
		return t
	}
}
