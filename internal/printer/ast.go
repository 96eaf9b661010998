package printer

import (
	"fmt"
	"strconv"

	"github.com/sorbetgo/checker/internal/ast"
	"github.com/sorbetgo/checker/internal/gstate"
)

// renderLocalVar gives a LocalVar a deterministic textual form: its name
// (or a sentinel tag) plus, in raw mode, the UniqueID that disambiguates
// two temporaries sharing the same Unique name base.
func renderLocalVar(gs *gstate.GlobalState, p Printer, v ast.LocalVar) string {
	switch v {
	case ast.NoVariable():
		return "<none>"
	case ast.BlockCallVar():
		return "<block-call>"
	case ast.FinalReturnVar():
		return "<final-return>"
	}
	return localVarText(gs, p, gs.Text(v.Name), v.UniqueID)
}

// PrintAST writes a deterministic s-expression-style dump of n to p, one
// node per Line, nested by Children() (spec.md §6 "Debug printing").
func PrintAST(p Printer, gs *gstate.GlobalState, n ast.Node) {
	if n == nil {
		p.Line("<nil>")
		return
	}
	p.Line(nodeHeader(gs, p, n))
	children := n.Children()
	if len(children) == 0 {
		return
	}
	p.Indent()
	for _, c := range children {
		PrintAST(p, gs, c)
	}
	p.Dedent()
}

// nodeHeader renders n's Kind plus whatever scalar detail its variant
// carries beyond its Children(); the detail fields a generic tree-walk
// can't reach (literal values, interned names, resolved symbols).
func nodeHeader(gs *gstate.GlobalState, p Printer, n ast.Node) string {
	kind := n.Kind().String()
	switch v := n.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("%s(%d)", kind, v.Value)
	case *ast.FloatLit:
		return fmt.Sprintf("%s(%s)", kind, strconv.FormatFloat(v.Value, 'g', -1, 64))
	case *ast.StringLit:
		return fmt.Sprintf("%s(%q)", kind, gs.Text(v.Value))
	case *ast.SymbolLit:
		return fmt.Sprintf("%s(:%s)", kind, gs.Text(v.Value))
	case *ast.SelfLit:
		if v.Class == gstate.NoSymbol {
			return kind
		}
		return fmt.Sprintf("%s(%s)", kind, symbolRef(gs, p, v.Class))
	case *ast.LocalRef:
		return fmt.Sprintf("%s(%s)", kind, renderLocalVar(gs, p, v.Var))
	case *ast.UnresolvedIdent:
		return fmt.Sprintf("%s(%s, %s)", kind, identKindString(v.IKind), gs.Text(v.Name))
	case *ast.UnresolvedConstant:
		return fmt.Sprintf("%s(%s)", kind, gs.Text(v.Name))
	case *ast.ConstantLit:
		return fmt.Sprintf("%s(%s)", kind, symbolRef(gs, p, v.Symbol))
	case *ast.Send:
		return fmt.Sprintf("%s(%s)", kind, gs.Text(v.Method))
	case *ast.ClassDef:
		return fmt.Sprintf("%s(%s)", kind, symbolRef(gs, p, v.Symbol))
	case *ast.MethodDef:
		return fmt.Sprintf("%s(%s)", kind, symbolRef(gs, p, v.Symbol))
	case *ast.RescueCase:
		return fmt.Sprintf("%s(%s)", kind, renderLocalVar(gs, p, v.Var))
	case *ast.Cast:
		return fmt.Sprintf("%s(%s)", kind, castKindString(v.CastKind))
	default:
		return kind
	}
}

// symbolRef renders sym as its bare interned name in the stable form, or
// its fully qualified "<root>::..." path in raw mode.
func symbolRef(gs *gstate.GlobalState, p Printer, sym gstate.Symbol) string {
	if p.Raw() {
		return QualifiedName(gs, sym)
	}
	return gs.Text(gs.Symbol(sym).Name)
}

func identKindString(k ast.IdentKind) string {
	switch k {
	case ast.IdentLocal:
		return "local"
	case ast.IdentInstance:
		return "instance"
	case ast.IdentClass:
		return "class"
	case ast.IdentGlobal:
		return "global"
	default:
		return "?"
	}
}

func castKindString(k ast.CastKind) string {
	switch k {
	case ast.CastPlain:
		return "cast"
	case ast.CastAssertType:
		return "assert_type"
	case ast.CastLet:
		return "let"
	default:
		return "?"
	}
}
