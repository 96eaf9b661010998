package printer

import (
	"strconv"

	"github.com/sorbetgo/checker/internal/gstate"
)

// QualifiedName renders sym as "<root>::Owner::Name" by walking the owner
// chain, stopping at gstate.RootSymbol. Used by the raw print form (spec.md
// §6) in place of a bare interned name.
func QualifiedName(gs *gstate.GlobalState, sym gstate.Symbol) string {
	if sym == gstate.NoSymbol {
		return "<none>"
	}
	var parts []string
	for sym != gstate.NoSymbol && sym != gstate.RootSymbol {
		d := gs.Symbol(sym)
		parts = append([]string{gs.Text(d.Name)}, parts...)
		sym = d.Owner
	}
	out := "<root>"
	for _, p := range parts {
		out += "::" + p
	}
	return out
}

// localVarText renders a LocalVar's Name for the stable form, or its
// Name+UniqueID for the raw form, so that two synthesized temporaries
// sharing a Unique base name stay distinguishable in raw dumps.
func localVarText(gs *gstate.GlobalState, p Printer, name string, uniqueID int64) string {
	if !p.Raw() || uniqueID == 0 {
		return name
	}
	return name + "#" + strconv.FormatInt(uniqueID, 10)
}
