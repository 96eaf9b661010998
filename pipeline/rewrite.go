package pipeline

import (
	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/gstate"
)

// rewriteNames mutates every Name/Symbol-typed scalar field reachable from
// n in place, replacing worker-local ids with their canonical counterparts
// from sub. It walks the same Children() tree printer.PrintAST does,
// touching the same per-variant scalar fields printer/ast.go's nodeHeader
// reads for rendering (desugar's output carries Symbol fields only as the
// zero value NoSymbol, since Namer hasn't run yet; substituting them is
// still correct since Substitution.Symbol is the identity for unknown ids).
func rewriteNames(sub *gstate.Substitution, n ast.Node) {
	if n == nil {
		return
	}
	switch v := n.(type) {
	case *ast.StringLit:
		v.Value = sub.Name(v.Value)
	case *ast.SymbolLit:
		v.Value = sub.Name(v.Value)
	case *ast.SelfLit:
		v.Class = sub.Symbol(v.Class)
	case *ast.LocalRef:
		v.Var.Name = sub.Name(v.Var.Name)
	case *ast.UnresolvedIdent:
		v.Name = sub.Name(v.Name)
	case *ast.UnresolvedConstant:
		v.Name = sub.Name(v.Name)
	case *ast.ConstantLit:
		v.Symbol = sub.Symbol(v.Symbol)
	case *ast.Send:
		v.Method = sub.Name(v.Method)
	case *ast.ClassDef:
		v.Symbol = sub.Symbol(v.Symbol)
	case *ast.MethodDef:
		v.Name = sub.Name(v.Name)
		v.Symbol = sub.Symbol(v.Symbol)
	case *ast.RescueCase:
		v.Var.Name = sub.Name(v.Var.Name)
	}
	for _, c := range n.Children() {
		rewriteNames(sub, c)
	}
}
