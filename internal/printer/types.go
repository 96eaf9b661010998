package printer

import (
	"fmt"

	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// RenderType renders t the same way PrintAST renders symbols: a bare class
// name in the stable form, the fully qualified path in raw mode. types.Type
// itself only exposes a numeric-symbol String(), which is stable but not
// human-legible across a raw/stable golden-file pair, so the dump path goes
// through here instead of t.String() directly.
func RenderType(gs *gstate.GlobalState, p Printer, t types.Type) string {
	if t == nil {
		return "<untyped>"
	}
	switch v := t.(type) {
	case types.ClassType:
		return symbolRef(gs, p, v.Symbol)
	case types.AppliedType:
		s := symbolRef(gs, p, v.Symbol) + "["
		for i, a := range v.Targs {
			if i > 0 {
				s += ", "
			}
			s += RenderType(gs, p, a)
		}
		return s + "]"
	case types.MetaTypeType:
		return "T.class_of(" + RenderType(gs, p, v.Wrapped) + ")"
	case types.LiteralType:
		return fmt.Sprintf("%v(%v)", RenderType(gs, p, v.Base), v.Value)
	case types.OrType:
		return "(" + RenderType(gs, p, v.A) + " | " + RenderType(gs, p, v.B) + ")"
	case types.AndType:
		return "(" + RenderType(gs, p, v.A) + " & " + RenderType(gs, p, v.B) + ")"
	case types.AliasType:
		return "Alias<" + symbolRef(gs, p, v.Symbol) + ">"
	case types.TypeVarType:
		return "TypeVar<" + symbolRef(gs, p, v.Symbol) + ">"
	default:
		// Bottom/Top/Untyped/SelfType/AttachedClass: stateless singletons
		// whose own String() carries no symbol reference to qualify.
		return t.String()
	}
}
