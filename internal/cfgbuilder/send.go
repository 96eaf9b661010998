package cfgbuilder

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/cfg"
)

// walkSend lowers Send{recv, fun, args, block?} (spec.md §4.4.1). A bare
// `super` arrives as Args == [*ast.ZSuperArgs{}] (desugar_lower.go's
// lowering of a parenthesis-less `super`) and is expanded here into the
// enclosing method's own forwarded formal arguments, since CFGBuilder is the
// first phase with access to both the call site and the method's argument
// locals.
func (b *builder) walkSend(blk *cfg.BasicBlock, n *ast.Send, target ast.LocalVar) *cfg.BasicBlock {
	recvT := b.freshLocal(b.gs.InternUTF8("<recv>"))
	cur := b.walk(blk, n.Recv, recvT)
	if cur == b.c.Dead() {
		return cur
	}

	args := n.Args
	if len(args) == 1 {
		if _, ok := args[0].(*ast.ZSuperArgs); ok {
			args = b.superForwardArgs()
		}
	}

	argTs := make([]ast.LocalVar, len(args))
	for i, a := range args {
		argTs[i] = b.freshLocal(b.gs.InternUTF8("<arg>"))
		cur = b.walk(cur, a, argTs[i])
		if cur == b.c.Dead() {
			return cur
		}
	}

	if n.Block == nil {
		b.bind(cur, n.Loc(), target, cfg.Send{Recv: recvT, Fun: n.Method, Args: argTs, Flags: n.Flags})
		return cur
	}
	return b.walkSendWithBlock(cur, n, recvT, argTs, target)
}

// superForwardArgs rebuilds the enclosing method's non-shadow formal
// arguments as LocalRef nodes, the way a bare `super` forwards every
// argument the method itself received (spec.md §4.1.2).
func (b *builder) superForwardArgs() []ast.Node {
	argInfos := b.gs.Symbol(b.method).Args
	out := make([]ast.Node, 0, len(argInfos))
	for _, info := range argInfos {
		out = append(out, &ast.LocalRef{Var: ast.LocalVar{Name: info.Name}})
	}
	return out
}

// walkSendWithBlock lowers a block-literal-taking send: a header block gated
// by ast.BlockCallVar() (the sentinel documented as "the pseudo-condition
// meaning 'call a block'"), a body block binding each LoadYieldParam and
// ending in BlockReturn, and a post block reading SolveConstraint once the
// body rejoins (spec.md §4.4.1 "Send{...block?}").
func (b *builder) walkSendWithBlock(blk *cfg.BasicBlock, n *ast.Send, recvT ast.LocalVar, argTs []ast.LocalVar, target ast.LocalVar) *cfg.BasicBlock {
	link := &cfg.SendAndBlockLink{Fun: n.Method}

	sendTemp := b.freshLocal(b.gs.InternUTF8("<blockSend>"))
	b.bind(blk, n.Loc(), sendTemp, cfg.Send{Recv: recvT, Fun: n.Method, Args: argTs, Flags: n.Flags, Link: link})

	header := b.c.FreshBlock(b.loopDepth, n.Loc())
	body := b.c.FreshBlock(b.loopDepth+1, n.Loc())
	post := b.c.FreshBlock(b.loopDepth, n.Loc())
	b.jumpUnconditional(blk, header, n.Loc())
	b.jumpConditional(header, ast.BlockCallVar(), body, post, n.Loc())

	blockArgs := make([]ast.LocalVar, len(n.Block.Args))
	for i, a := range n.Block.Args {
		lv, _ := unwrapArgLocal(a)
		blockArgs[i] = lv
		b.bind(body, a.Loc(), lv, cfg.LoadYieldParam{Link: link, Arg: uint32(i)})
	}
	link.BlockArgs = blockArgs

	b.pushScope(scope{next: post, brk: post, rescue: b.currentRescueScope(), link: link})
	blockRV := b.freshLocal(b.gs.InternUTF8("<blockRV>"))
	bodyOut := b.walk(body, n.Block.Body, blockRV)
	b.popScope()
	if bodyOut != b.c.Dead() {
		b.bind(bodyOut, n.Block.Loc(), b.freshLocal(b.gs.InternUTF8("<discard>")), cfg.BlockReturn{Link: link, What: blockRV})
		b.jumpUnconditional(bodyOut, header, n.Loc())
	}

	b.bind(post, n.Loc(), target, cfg.SolveConstraint{Link: link})
	return post
}
