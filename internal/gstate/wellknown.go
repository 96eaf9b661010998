package gstate

// WellKnownSymbols names the core class/module symbols every GlobalState
// pre-installs under RootSymbol. Types' lattice operations (isSubType,
// falsyTypes, dispatchCall's built-in method table) pin against these
// instead of re-resolving "Integer"/"NilClass"/etc by name on every call
// (spec.md §3.5).
type WellKnownSymbols struct {
	BasicObject Symbol
	Object      Symbol
	Module      Symbol
	Class       Symbol
	Kernel      Symbol
	Comparable  Symbol

	NilClass   Symbol
	TrueClass  Symbol
	FalseClass Symbol

	Integer Symbol
	Float   Symbol
	Numeric Symbol
	String  Symbol
	Symbol_ Symbol // trailing underscore: "Symbol" would collide with the gstate.Symbol type name

	Array Symbol
	Hash  Symbol
	Range Symbol
	Proc  Symbol

	StandardError Symbol
	Exception     Symbol

	// Magic is the compiler-synthesized receiver Desugar targets array/hash/
	// regexp literals, splat expansion, and `defined?` at (spec.md §4.1.1,
	// §4.1.9): `Magic.buildArray`, `Magic.buildHash`, `Magic.buildRegexp`,
	// `Magic.expandSplat`, `Magic.callWithSplat`, `Magic.defined_p`. Pre-declared the same way
	// as the other built-ins so Resolver's ordinary constant lookup finds it
	// instead of reporting it as an unresolved user constant; its methods are
	// registered by internal/types.InstallMagicMethods once a Universe needs
	// to dispatch against it.
	Magic Symbol
}

// installWellKnown pre-enters the core class symbols under <root>, in the
// same way the teacher's RegisterBuiltinFunc pre-populates globalConsts
// before any user script is namer'd.
func (g *GlobalState) installWellKnown() {
	tok := g.Unfreeze()
	defer tok.Release()
	enter := func(name string) Symbol {
		return g.EnterClassSymbol(RootSymbol, g.InternConstant(name))
	}
	g.WellKnown = WellKnownSymbols{
		BasicObject:   enter("BasicObject"),
		Object:        enter("Object"),
		Module:        enter("Module"),
		Class:         enter("Class"),
		Kernel:        enter("Kernel"),
		Comparable:    enter("Comparable"),
		NilClass:      enter("NilClass"),
		TrueClass:     enter("TrueClass"),
		FalseClass:    enter("FalseClass"),
		Integer:       enter("Integer"),
		Float:         enter("Float"),
		Numeric:       enter("Numeric"),
		String:        enter("String"),
		Symbol_:       enter("Symbol"),
		Array:         enter("Array"),
		Hash:          enter("Hash"),
		Range:         enter("Range"),
		Proc:          enter("Proc"),
		StandardError: enter("StandardError"),
		Exception:     enter("Exception"),
		Magic:         enter("Magic"),
	}
	for _, s := range []Symbol{
		g.WellKnown.Object, g.WellKnown.Module, g.WellKnown.Class, g.WellKnown.Kernel,
		g.WellKnown.Comparable, g.WellKnown.NilClass, g.WellKnown.TrueClass, g.WellKnown.FalseClass,
		g.WellKnown.Numeric, g.WellKnown.String, g.WellKnown.Symbol_, g.WellKnown.Array,
		g.WellKnown.Hash, g.WellKnown.Range, g.WellKnown.Proc, g.WellKnown.Exception,
	} {
		g.Symbol(s).SuperClass = g.WellKnown.BasicObject
		g.Symbol(s).Ancestors = []Symbol{g.WellKnown.Object, g.WellKnown.Kernel, g.WellKnown.BasicObject}
	}
	g.Symbol(g.WellKnown.Integer).SuperClass = g.WellKnown.Numeric
	g.Symbol(g.WellKnown.Integer).Ancestors = []Symbol{
		g.WellKnown.Numeric, g.WellKnown.Comparable, g.WellKnown.Object, g.WellKnown.Kernel, g.WellKnown.BasicObject,
	}
	g.Symbol(g.WellKnown.Float).SuperClass = g.WellKnown.Numeric
	g.Symbol(g.WellKnown.Float).Ancestors = []Symbol{
		g.WellKnown.Numeric, g.WellKnown.Comparable, g.WellKnown.Object, g.WellKnown.Kernel, g.WellKnown.BasicObject,
	}
	g.Symbol(g.WellKnown.StandardError).SuperClass = g.WellKnown.Exception
	g.Symbol(g.WellKnown.StandardError).Ancestors = []Symbol{
		g.WellKnown.Exception, g.WellKnown.Object, g.WellKnown.Kernel, g.WellKnown.BasicObject,
	}
}
