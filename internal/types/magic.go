package types

import "github.com/sorbetgo/checker/internal/gstate"

// InstallMagicMethods registers the class methods Desugar dispatches against
// gs.WellKnown.Magic: buildArray/buildHash/buildRegexp/expandSplat/
// callWithSplat/defined_p (spec.md §4.1.1, §4.1.9). These are entered on
// Magic's singleton rather than Magic itself, the same place any other
// `def self.m` class method lives (gstate.SingletonOf), since Desugar always
// calls them as `Magic.buildArray(...)`, a class-method send.
//
// REQUIRES: the caller already holds gs's Unfreeze capability (mirrors
// resolver_attrs.go's tryAttr, which enters attr_* accessor symbols the same
// way under an already-open Unfreeze token); calling gs.Unfreeze() again here
// would panic.
func InstallMagicMethods(gs *gstate.GlobalState) {
	singleton := gs.SingletonOf(gs.WellKnown.Magic)

	arrayType := NewClass(gs.WellKnown.Array)
	hashType := NewClass(gs.WellKnown.Hash)

	define := func(name string, args []gstate.ArgInfo, result Type) {
		m, _ := gs.EnterMethodSymbol(singleton, gs.InternUTF8(name))
		gs.Symbol(m).Args = args
		gs.Symbol(m).ResultType = result
	}

	// buildArray(*elems) -> Array
	define("buildArray", []gstate.ArgInfo{
		{Name: gs.InternUTF8("elems"), Rest: true, ResultType: Untyped},
	}, arrayType)

	// buildHash(*pairs) -> Hash
	define("buildHash", []gstate.ArgInfo{
		{Name: gs.InternUTF8("pairs"), Rest: true, ResultType: Untyped},
	}, hashType)

	// buildRegexp(*parts) -> untyped (no Regexp well-known class is declared)
	define("buildRegexp", []gstate.ArgInfo{
		{Name: gs.InternUTF8("parts"), Rest: true, ResultType: Untyped},
	}, Untyped)

	// expandSplat(arr) -> untyped: the splatted elements retain whatever
	// element type arr carried, which dispatchCall has no single result type
	// for here since callers consume the expansion positionally, not as a
	// single value.
	define("expandSplat", []gstate.ArgInfo{
		{Name: gs.InternUTF8("arr"), ResultType: Untyped},
	}, Untyped)

	// callWithSplat(recv, method, args) -> untyped: the call is re-dispatched
	// dynamically past typechecking, same as any other untyped send.
	define("callWithSplat", []gstate.ArgInfo{
		{Name: gs.InternUTF8("recv"), ResultType: Untyped},
		{Name: gs.InternUTF8("method"), ResultType: Untyped},
		{Name: gs.InternUTF8("args"), Rest: true, ResultType: Untyped},
	}, Untyped)

	// defined_p(*probe) -> String, mirroring Ruby's `defined?` returning a
	// description string or nil; modeled untyped-nilable via Untyped rather
	// than introducing a literal nil union for a single intrinsic.
	define("defined_p", []gstate.ArgInfo{
		{Name: gs.InternUTF8("probe"), Rest: true, ResultType: Untyped},
	}, Untyped)
}
