package inventory

// Diff categories. "self" and "other" are from the perspective of the
// first argument: a name counted under *_missing_other exists in A but
// not in B.
const (
	CatFunctionMissingOther = "function_missing_other"
	CatFunctionMissingSelf  = "function_missing_self"
	CatFunctionMismatch     = "function_mismatch"
	CatStructMissingOther   = "struct_missing_other"
	CatStructMissingSelf    = "struct_missing_self"
	CatStructMismatch       = "struct_mismatch"
)

// Diff compares two module inventories. It returns whether they are
// structurally identical and a count per diff category; equal
// inventories yield (true, empty map). Diff(a, b) relates to
// Diff(b, a) by swapping the *_missing_self and *_missing_other
// counts.
func Diff(a, b ModuleInventory) (bool, map[string]int) {
	diffs := make(map[string]int)

	for name, ea := range a.Functions {
		eb, ok := b.Functions[name]
		switch {
		case !ok:
			diffs[CatFunctionMissingOther]++
		case !ea.Equal(eb):
			diffs[CatFunctionMismatch]++
		}
	}
	for name := range b.Functions {
		if _, ok := a.Functions[name]; !ok {
			diffs[CatFunctionMissingSelf]++
		}
	}

	for name, ea := range a.Structs {
		eb, ok := b.Structs[name]
		switch {
		case !ok:
			diffs[CatStructMissingOther]++
		case !ea.Equal(eb):
			diffs[CatStructMismatch]++
		}
	}
	for name := range b.Structs {
		if _, ok := a.Structs[name]; !ok {
			diffs[CatStructMissingSelf]++
		}
	}

	return len(diffs) == 0, diffs
}
