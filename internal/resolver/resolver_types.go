package resolver

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/diag"
	"github.com/sorbetgo/checker/internal/types"
)

// untypedMarkerName is the synthetic constant name desugar's T.unsafe lowering
// uses as a TypeExpr.Source (SUPPLEMENTED FEATURES #4): "$untyped" can never
// collide with a real Ruby constant (bare identifiers can't start with `$`),
// so resolveTypeSyntax recognizes it without a lexical lookup.
const untypedMarkerName = "$untyped"

// resolveTypeSyntax turns the syntax a type annotation was written as into a
// concrete types.Type. A bare constant names a class; `T.nilable`/`T.any`/
// `T.all`/`T.untyped`/`T.noreturn`/`T.self_type`/`T.attached_class`/
// `T.class_of` are recognized as Sends on a bare `T` receiver; `Foo[Bar]`
// (generic application) is recognized as a `[]` Send on a constant receiver.
// A nil source (T.must's marker, SUPPLEMENTED FEATURES #4) resolves to
// Untyped here; Infer is the phase that special-cases it into "operand type
// minus NilClass".
func (s *state) resolveTypeSyntax(n ast.Node) types.Type {
	switch v := n.(type) {
	case nil:
		return types.Untyped

	case *ast.ConstantLit:
		return types.NewClass(v.Symbol)

	case *ast.UnresolvedConstant:
		if v.Scope == nil && s.gs.Text(v.Name) == untypedMarkerName {
			return types.Untyped
		}
		return types.NewClass(s.resolveConstantRef(v).Symbol)

	case *ast.Send:
		return s.resolveTypeSend(v)

	default:
		s.report(diag.ResolverUnresolvedConstant, n.Loc(), "unrecognized type annotation syntax")
		return types.Untyped
	}
}

func (s *state) resolveTypeSend(send *ast.Send) types.Type {
	recvConst, recvIsT := send.Recv.(*ast.UnresolvedConstant)
	isTReceiver := recvIsT && recvConst.Scope == nil && s.gs.Text(recvConst.Name) == "T"

	method := s.gs.Text(send.Method)
	if isTReceiver {
		switch method {
		case "nilable":
			if len(send.Args) == 1 {
				return s.u.Lub(s.resolveTypeSyntax(send.Args[0]), types.NewClass(s.gs.WellKnown.NilClass))
			}
		case "any":
			return s.foldTypeArgs(send.Args, s.u.Lub, types.Bottom)
		case "all":
			return s.foldTypeArgs(send.Args, s.u.Glb, types.Top)
		case "untyped":
			return types.Untyped
		case "noreturn":
			return types.Bottom
		case "self_type":
			return types.SelfType
		case "attached_class":
			return types.AttachedClass
		case "class_of":
			if len(send.Args) == 1 {
				return types.NewMetaType(s.resolveTypeSyntax(send.Args[0]))
			}
		}
	}

	if method == "[]" {
		base := s.resolveTypeSyntax(send.Recv)
		cls, ok := base.(types.ClassType)
		if !ok {
			s.report(diag.ResolverUnresolvedConstant, send.Loc(), "generic application on a non-class type")
			return types.Untyped
		}
		targs := make([]types.Type, 0, len(send.Args))
		for _, a := range send.Args {
			targs = append(targs, s.resolveTypeSyntax(a))
		}
		return types.NewApplied(cls.Symbol, targs)
	}

	s.report(diag.ResolverUnresolvedConstant, send.Loc(), "unrecognized type annotation %q", method)
	return types.Untyped
}

func (s *state) foldTypeArgs(args []ast.Node, op func(a, b types.Type) types.Type, identity types.Type) types.Type {
	if len(args) == 0 {
		return identity
	}
	out := s.resolveTypeSyntax(args[0])
	for _, a := range args[1:] {
		out = op(out, s.resolveTypeSyntax(a))
	}
	return out
}
