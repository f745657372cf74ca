package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInventory() ModuleInventory {
	return ModuleInventory{
		Functions: map[string]FunctionEntry{
			"deposit": {
				Visibility: "Public",
				IsEntry:    boolPtr(true),
				TypeParams: intPtr(0),
				Params:     []TypeSig{`"U64"`},
			},
			"withdraw": {
				Visibility: "Public",
				IsEntry:    boolPtr(false),
				TypeParams: intPtr(0),
				Returns:    []TypeSig{`"U64"`},
			},
		},
		Structs: map[string]StructEntry{
			"Vault": {
				Abilities:  []string{"key"},
				TypeParams: intPtr(0),
				Fields:     []FieldEntry{{Name: "balance", Sig: `"U64"`}},
			},
		},
	}
}

func TestDiffIdenticalInventories(t *testing.T) {
	a := sampleInventory()
	b := sampleInventory()

	same, diffs := Diff(a, b)
	assert.True(t, same)
	assert.Empty(t, diffs)
}

func TestDiffCountsMissingAndMismatched(t *testing.T) {
	a := sampleInventory()
	b := sampleInventory()

	// withdraw only in a; extra only in b; deposit entry flag differs.
	delete(b.Functions, "withdraw")
	b.Functions["extra"] = FunctionEntry{Visibility: "Public"}
	dep := b.Functions["deposit"]
	dep.IsEntry = boolPtr(false)
	b.Functions["deposit"] = dep

	// Vault abilities differ; Treasury only in b.
	vault := b.Structs["Vault"]
	vault.Abilities = []string{"key", "store"}
	b.Structs["Vault"] = vault
	b.Structs["Treasury"] = StructEntry{}

	same, diffs := Diff(a, b)
	assert.False(t, same)
	assert.Equal(t, map[string]int{
		CatFunctionMissingOther: 1,
		CatFunctionMissingSelf:  1,
		CatFunctionMismatch:     1,
		CatStructMismatch:       1,
		CatStructMissingSelf:    1,
	}, diffs)
}

func TestDiffSwapsPerspective(t *testing.T) {
	a := sampleInventory()
	b := sampleInventory()
	delete(b.Functions, "withdraw")
	delete(a.Structs, "Vault")

	_, forward := Diff(a, b)
	_, backward := Diff(b, a)

	require.Equal(t, 1, forward[CatFunctionMissingOther])
	require.Equal(t, 1, backward[CatFunctionMissingSelf])
	require.Equal(t, 1, forward[CatStructMissingSelf])
	require.Equal(t, 1, backward[CatStructMissingOther])
}

func TestDiffTreatsAbsentValueAsDistinct(t *testing.T) {
	a := sampleInventory()
	b := sampleInventory()
	dep := b.Functions["deposit"]
	dep.IsEntry = nil
	b.Functions["deposit"] = dep

	same, diffs := Diff(a, b)
	assert.False(t, same)
	assert.Equal(t, 1, diffs[CatFunctionMismatch])
}
