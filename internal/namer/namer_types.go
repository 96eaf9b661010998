package namer

import (
	"github.com/sorbetgo/checker/internal/gstate"
	"github.com/sorbetgo/checker/internal/types"
)

// aliasOf is kept in its own file so the types.AliasType construction (and
// the resulting import) stays isolated from the rest of the walk, which
// otherwise has no need to know about package types.
func aliasOf(target gstate.Symbol) types.Type { return types.NewAlias(target) }
