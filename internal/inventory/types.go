// Package inventory builds canonical, comparison-ready descriptions of
// a package's functions and structs from either decoded bytecode or a
// normalized module projection, and diffs them.
package inventory

// TypeSig is the canonical textual form of a type signature. Two
// signatures are equal iff the underlying types are equal, regardless
// of which source produced them.
type TypeSig string

// FunctionEntry describes one exposed function. Pointer fields are nil
// when the source did not report the value.
type FunctionEntry struct {
	Visibility string
	IsEntry    *bool
	TypeParams *int
	Params     []TypeSig
	Returns    []TypeSig
}

// Equal reports full structural equality, treating an absent value as
// distinct from any present one.
func (e FunctionEntry) Equal(o FunctionEntry) bool {
	return e.Visibility == o.Visibility &&
		eqBoolPtr(e.IsEntry, o.IsEntry) &&
		eqIntPtr(e.TypeParams, o.TypeParams) &&
		eqSigs(e.Params, o.Params) &&
		eqSigs(e.Returns, o.Returns)
}

// FieldEntry is a struct field paired with its canonical signature.
type FieldEntry struct {
	Name string
	Sig  TypeSig
}

// StructEntry describes one struct. Abilities are sorted; Fields are
// sorted by (name, signature).
type StructEntry struct {
	Abilities  []string
	TypeParams *int
	Fields     []FieldEntry
}

// Equal reports full structural equality.
func (e StructEntry) Equal(o StructEntry) bool {
	if !eqIntPtr(e.TypeParams, o.TypeParams) {
		return false
	}
	if len(e.Abilities) != len(o.Abilities) || len(e.Fields) != len(o.Fields) {
		return false
	}
	for i := range e.Abilities {
		if e.Abilities[i] != o.Abilities[i] {
			return false
		}
	}
	for i := range e.Fields {
		if e.Fields[i] != o.Fields[i] {
			return false
		}
	}
	return true
}

// ModuleInventory maps function and struct names to their entries.
// Lookup by name is authoritative; insertion order is irrelevant.
type ModuleInventory struct {
	Functions map[string]FunctionEntry
	Structs   map[string]StructEntry
}

// PackageInventory maps module name to its inventory.
type PackageInventory struct {
	Modules map[string]ModuleInventory
}

func eqBoolPtr(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqSigs(a, b []TypeSig) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
