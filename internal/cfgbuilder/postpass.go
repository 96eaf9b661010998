package cfgbuilder

import (
	"sort"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/gstate"
)

// runPostPasses runs the nine ordered post-passes of spec.md §4.4.2 over a
// freshly walked CFG.
func runPostPasses(gs *gstate.GlobalState, c *cfg.CFG) {
	sanityCheck(gs, c)
	preds := fillInTopoSorts(c)
	dealias(c)
	reads, writes := findAllReadsAndWrites(c)
	computeMinMaxLoops(c, reads, writes)
	removeDeadAssigns(c, reads)
	fillInBlockArguments(c, reads, writes)
	simplify(c)
	markLoopHeaders(c, preds)
}

// sanityCheck reports an internal error for any block CFGBuilder left
// without a terminator, instead of the panic original_source/cfg/CFG.cc's
// sanityCheck() would raise: every walk.go path sets Bexit before returning,
// so this should never fire, but a nil Thenb would otherwise panic deep in a
// later pass instead of at a diagnosable point.
func sanityCheck(gs *gstate.GlobalState, c *cfg.CFG) {
	for _, bb := range c.BasicBlocks {
		if bb.Bexit.Thenb == nil || bb.Bexit.Elseb == nil {
			gs.Errors.Push(diag.Strong, diag.New(diag.InternalError, gs.RenderLoc(bb.Loc), "CFG block %d has no terminator", bb.ID))
			bb.Bexit = cfg.BlockExit{Cond: ast.NoVariable(), Thenb: c.Dead(), Elseb: c.Dead()}
		}
	}
}

func successors(bb *cfg.BasicBlock) []*cfg.BasicBlock {
	if bb.Bexit.Thenb == bb.Bexit.Elseb {
		return []*cfg.BasicBlock{bb.Bexit.Thenb}
	}
	return []*cfg.BasicBlock{bb.Bexit.Thenb, bb.Bexit.Elseb}
}

// fillInTopoSorts computes ForwardTopo (reverse-postorder DFS from entry)
// and BackwardTopo (reverse-postorder DFS from dead over the predecessor
// graph), keeps in BasicBlocks only the blocks the forward DFS reached plus
// the dead block, and fills each surviving
// block's BackEdges with its predecessors sorted by descending ForwardTopo
// position (spec.md §4.4.2 pass 2). Returns the full predecessor map for
// markLoopHeaders to reuse.
func fillInTopoSorts(c *cfg.CFG) map[*cfg.BasicBlock][]*cfg.BasicBlock {
	preds := map[*cfg.BasicBlock][]*cfg.BasicBlock{}
	seenPred := map[[2]int]bool{}
	for _, bb := range c.BasicBlocks {
		for _, s := range successors(bb) {
			key := [2]int{bb.ID, s.ID}
			if seenPred[key] {
				continue
			}
			seenPred[key] = true
			preds[s] = append(preds[s], bb)
		}
	}

	forwardOrder := reversePostorder(c.Entry(), successors)
	backwardOrder := reversePostorder(c.Dead(), func(bb *cfg.BasicBlock) []*cfg.BasicBlock { return preds[bb] })

	reachable := map[int]bool{}
	for _, bb := range forwardOrder {
		reachable[bb.ID] = true
	}
	reachable[c.Dead().ID] = true

	var pruned []*cfg.BasicBlock
	for _, bb := range c.BasicBlocks {
		if reachable[bb.ID] {
			pruned = append(pruned, bb)
		}
	}
	c.BasicBlocks = pruned
	c.ForwardTopo = forwardOrder
	c.BackwardTopo = backwardOrder

	fwdIndex := map[int]int{}
	for i, bb := range forwardOrder {
		fwdIndex[bb.ID] = i
	}
	for _, bb := range c.BasicBlocks {
		ps := append([]*cfg.BasicBlock{}, preds[bb]...)
		sort.SliceStable(ps, func(i, j int) bool { return fwdIndex[ps[i].ID] > fwdIndex[ps[j].ID] })
		bb.BackEdges = ps
	}
	return preds
}

// reversePostorder runs a DFS from root following next(bb) and returns nodes
// in reverse-postorder: a block appears before every block reachable only
// through it, which is a valid topological order on the acyclic parts of the
// graph and degrades gracefully (but not incorrectly — every node still
// appears exactly once) across loop back edges.
func reversePostorder(root *cfg.BasicBlock, next func(*cfg.BasicBlock) []*cfg.BasicBlock) []*cfg.BasicBlock {
	visited := map[int]bool{}
	var post []*cfg.BasicBlock
	var visit func(*cfg.BasicBlock)
	visit = func(bb *cfg.BasicBlock) {
		if bb == nil || visited[bb.ID] {
			return
		}
		visited[bb.ID] = true
		for _, s := range next(bb) {
			visit(s)
		}
		post = append(post, bb)
	}
	visit(root)
	out := make([]*cfg.BasicBlock, len(post))
	for i, bb := range post {
		out[len(post)-1-i] = bb
	}
	return out
}

// dealias rewrites reads of a local that is known to be a plain copy
// (`Ident`) of another local back to that other local, in ForwardTopo order
// (predecessors before successors, which a literal backward-topo walk would
// not guarantee here — see the builder's DESIGN.md entry) (spec.md §4.4.2
// pass 3).
func dealias(c *cfg.CFG) {
	outAliases := map[int]map[ast.LocalVar]ast.LocalVar{}
	for _, bb := range c.ForwardTopo {
		cur := meetAliases(outAliases, bb.BackEdges)
		for i := range bb.Exprs {
			e := &bb.Exprs[i]
			e.Value = rewriteReads(e.Value, cur)
			delete(cur, e.Bind)
			for k, v := range cur {
				if v == e.Bind {
					delete(cur, k)
				}
			}
			if id, ok := e.Value.(cfg.Ident); ok {
				cur[e.Bind] = id.What
			}
		}
		if bb.Bexit.Cond != ast.NoVariable() {
			bb.Bexit.Cond = resolveAlias(cur, bb.Bexit.Cond)
		}
		snapshot := map[ast.LocalVar]ast.LocalVar{}
		for k, v := range cur {
			snapshot[k] = v
		}
		outAliases[bb.ID] = snapshot
	}
}

func resolveAlias(m map[ast.LocalVar]ast.LocalVar, v ast.LocalVar) ast.LocalVar {
	if v.IsSentinel() {
		return v
	}
	if a, ok := m[v]; ok {
		return a
	}
	return v
}

func meetAliases(out map[int]map[ast.LocalVar]ast.LocalVar, preds []*cfg.BasicBlock) map[ast.LocalVar]ast.LocalVar {
	result := map[ast.LocalVar]ast.LocalVar{}
	first := true
	for _, p := range preds {
		pm, ok := out[p.ID]
		if !ok {
			continue
		}
		if first {
			for k, v := range pm {
				result[k] = v
			}
			first = false
			continue
		}
		for k, v := range result {
			if pm[k] != v {
				delete(result, k)
			}
		}
	}
	return result
}

func rewriteReads(instr cfg.Instruction, m map[ast.LocalVar]ast.LocalVar) cfg.Instruction {
	switch v := instr.(type) {
	case cfg.Ident:
		v.What = resolveAlias(m, v.What)
		return v
	case cfg.Send:
		v.Recv = resolveAlias(m, v.Recv)
		for i, a := range v.Args {
			v.Args[i] = resolveAlias(m, a)
		}
		return v
	case cfg.Return:
		v.What = resolveAlias(m, v.What)
		return v
	case cfg.BlockReturn:
		v.What = resolveAlias(m, v.What)
		return v
	case cfg.Cast:
		v.Value = resolveAlias(m, v.Value)
		return v
	default:
		return instr
	}
}

// instrOperands returns the locals an instruction reads, for
// findAllReadsAndWrites and the block-argument fixpoint.
func instrOperands(instr cfg.Instruction) []ast.LocalVar {
	switch v := instr.(type) {
	case cfg.Ident:
		return []ast.LocalVar{v.What}
	case cfg.Send:
		out := append([]ast.LocalVar{v.Recv}, v.Args...)
		return out
	case cfg.Return:
		return []ast.LocalVar{v.What}
	case cfg.BlockReturn:
		return []ast.LocalVar{v.What}
	case cfg.Cast:
		return []ast.LocalVar{v.Value}
	case cfg.LoadArg:
		return []ast.LocalVar{v.Receiver}
	default:
		return nil
	}
}

// findAllReadsAndWrites collects, per local, every block that reads or
// writes it (spec.md §4.4.2 pass 4).
func findAllReadsAndWrites(c *cfg.CFG) (reads, writes map[ast.LocalVar]map[int]bool) {
	reads = map[ast.LocalVar]map[int]bool{}
	writes = map[ast.LocalVar]map[int]bool{}
	markRead := func(v ast.LocalVar, blockID int) {
		if v.IsSentinel() {
			return
		}
		if reads[v] == nil {
			reads[v] = map[int]bool{}
		}
		reads[v][blockID] = true
	}
	markWrite := func(v ast.LocalVar, blockID int) {
		if v.IsSentinel() {
			return
		}
		if writes[v] == nil {
			writes[v] = map[int]bool{}
		}
		writes[v][blockID] = true
	}
	for _, bb := range c.BasicBlocks {
		for _, a := range bb.Args {
			markWrite(a, bb.ID)
		}
		for _, e := range bb.Exprs {
			markWrite(e.Bind, bb.ID)
			for _, r := range instrOperands(e.Value) {
				markRead(r, bb.ID)
			}
		}
		if bb.Bexit.Cond != ast.NoVariable() {
			markRead(bb.Bexit.Cond, bb.ID)
		}
	}
	return reads, writes
}

// computeMinMaxLoops fills CFG.MinLoops/MaxLoopWrite (spec.md §4.4.2 pass 5).
func computeMinMaxLoops(c *cfg.CFG, reads, writes map[ast.LocalVar]map[int]bool) {
	blockDepth := map[int]int{}
	for _, bb := range c.BasicBlocks {
		blockDepth[bb.ID] = bb.OuterLoops
	}
	touch := func(v ast.LocalVar, ids map[int]bool, dst map[ast.LocalVar]int, useMax bool) {
		for id := range ids {
			d := blockDepth[id]
			cur, ok := dst[v]
			if !ok {
				dst[v] = d
				continue
			}
			if useMax && d > cur {
				dst[v] = d
			}
			if !useMax && d < cur {
				dst[v] = d
			}
		}
	}
	for v, ids := range reads {
		if _, pinned := c.MinLoops[v]; pinned && c.MinLoops[v] < 0 {
			continue
		}
		touch(v, ids, c.MinLoops, false)
	}
	for v, ids := range writes {
		if _, pinned := c.MinLoops[v]; pinned && c.MinLoops[v] < 0 {
			continue
		}
		touch(v, ids, c.MinLoops, false)
		touch(v, ids, c.MaxLoopWrite, true)
	}
}

// removeDeadAssigns deletes pure bindings with no reader (spec.md §4.4.2
// pass 6): literals, idents, self, load-arg, and splats/aliases the way the
// spec's parenthetical lists them.
func removeDeadAssigns(c *cfg.CFG, reads map[ast.LocalVar]map[int]bool) {
	isPure := func(instr cfg.Instruction) bool {
		switch instr.(type) {
		case cfg.Literal, cfg.Ident, cfg.Self, cfg.LoadArg, cfg.Alias:
			return true
		default:
			return false
		}
	}
	for _, bb := range c.BasicBlocks {
		kept := bb.Exprs[:0]
		for _, e := range bb.Exprs {
			if isPure(e.Value) && len(reads[e.Bind]) == 0 && e.Bind != ast.FinalReturnVar() {
				continue
			}
			kept = append(kept, e)
		}
		bb.Exprs = kept
	}
}

// fillInBlockArguments computes each block's phi-style Args via the two
// fixpoints of spec.md §4.4.2 pass 7.
func fillInBlockArguments(c *cfg.CFG, reads, writes map[ast.LocalVar]map[int]bool) {
	hasWriter := map[ast.LocalVar]bool{}
	for v, ids := range writes {
		if len(ids) > 0 {
			hasWriter[v] = true
		}
	}

	upper1 := map[int]map[ast.LocalVar]bool{}
	changed := true
	for changed {
		changed = false
		for i := len(c.ForwardTopo) - 1; i >= 0; i-- {
			bb := c.ForwardTopo[i]
			if bb.HasFlag(cfg.FlagDead) {
				continue
			}
			set := map[ast.LocalVar]bool{}
			for v, ids := range reads {
				if ids[bb.ID] {
					set[v] = true
				}
			}
			for _, s := range successors(bb) {
				if s.HasFlag(cfg.FlagDead) {
					continue
				}
				for v := range upper1[s.ID] {
					set[v] = true
				}
			}
			if !sameSet(upper1[bb.ID], set) {
				upper1[bb.ID] = set
				changed = true
			}
		}
	}

	upper2 := map[int]map[ast.LocalVar]bool{}
	changed = true
	for changed {
		changed = false
		for _, bb := range c.BackwardTopo {
			if bb.HasFlag(cfg.FlagDead) {
				continue
			}
			set := map[ast.LocalVar]bool{}
			for v, ids := range writes {
				if ids[bb.ID] {
					set[v] = true
				}
			}
			for _, p := range bb.BackEdges {
				if p.HasFlag(cfg.FlagDead) {
					continue
				}
				for v := range upper2[p.ID] {
					set[v] = true
				}
			}
			if !sameSet(upper2[bb.ID], set) {
				upper2[bb.ID] = set
				changed = true
			}
		}
	}

	for _, bb := range c.BasicBlocks {
		var args []ast.LocalVar
		for v := range upper1[bb.ID] {
			if !upper2[bb.ID][v] || !hasWriter[v] {
				continue
			}
			if len(reads[v]) <= 1 && len(writes[v]) <= 1 {
				// footprint confined to one block: never escapes.
				oneBlock := true
				for id := range reads[v] {
					if id != bb.ID {
						oneBlock = false
					}
				}
				for id := range writes[v] {
					if id != bb.ID {
						oneBlock = false
					}
				}
				if oneBlock {
					continue
				}
			}
			args = append(args, v)
		}
		sort.Slice(args, func(i, j int) bool { return args[i].Name < args[j].Name })
		bb.Args = args
	}
}

func sameSet(a, b map[ast.LocalVar]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// simplify collapses a block with exactly one predecessor and no block
// arguments into that predecessor, when the predecessor ends
// unconditionally into it; the merged block takes over its exit (spec.md
// §4.4.2 pass 8).
func simplify(c *cfg.CFG) {
	changed := true
	for changed {
		changed = false
		for _, bb := range c.BasicBlocks {
			if bb.HasFlag(cfg.FlagDead) || !bb.Bexit.Unconditional() {
				continue
			}
			target := bb.Bexit.Thenb
			if target == bb || target.HasFlag(cfg.FlagDead) || len(target.BackEdges) != 1 || target.BackEdges[0] != bb {
				continue
			}
			if len(target.Args) != 0 {
				continue
			}
			bb.Exprs = append(bb.Exprs, target.Exprs...)
			bb.Bexit = target.Bexit
			for i, pre := range bb.Bexit.Thenb.BackEdges {
				if pre == target {
					bb.Bexit.Thenb.BackEdges[i] = bb
				}
			}
			if bb.Bexit.Elseb != bb.Bexit.Thenb {
				for i, pre := range bb.Bexit.Elseb.BackEdges {
					if pre == target {
						bb.Bexit.Elseb.BackEdges[i] = bb
					}
				}
			}
			changed = true
		}
	}
}

// markLoopHeaders sets FlagLoopHeader on every block some back edge targets
// from an equal-or-deeper loop nesting (spec.md §4.4.2 pass 9).
func markLoopHeaders(c *cfg.CFG, _ map[*cfg.BasicBlock][]*cfg.BasicBlock) {
	for _, bb := range c.BasicBlocks {
		for _, pred := range bb.BackEdges {
			if pred.OuterLoops >= bb.OuterLoops {
				bb.Flags |= cfg.FlagLoopHeader
				break
			}
		}
	}
}
