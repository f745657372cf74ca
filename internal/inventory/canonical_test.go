package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
)

func TestSigFromTypePrimitives(t *testing.T) {
	assert.Equal(t, TypeSig(`"U64"`), SigFromType(bytecode.Type{Kind: bytecode.KindU64}))
	assert.Equal(t, TypeSig(`"Address"`), SigFromType(bytecode.Type{Kind: bytecode.KindAddress}))

	inner := bytecode.Type{Kind: bytecode.KindU8}
	assert.Equal(t, TypeSig(`{"Vector":"U8"}`), SigFromType(bytecode.Type{Kind: bytecode.KindVector, Elem: &inner}))
	assert.Equal(t, TypeSig(`{"TypeParameter":1}`), SigFromType(bytecode.Type{Kind: bytecode.KindTypeParameter, Index: 1}))
}

func TestSigSourcesAgree(t *testing.T) {
	// A &mut vector<0x2::coin::Coin<T0>> built from decoded bytecode.
	addr := "0000000000000000000000000000000000000000000000000000000000000002"
	coin := bytecode.Type{
		Kind:     bytecode.KindDatatype,
		Address:  addr,
		Module:   "coin",
		Name:     "Coin",
		TypeArgs: []bytecode.Type{{Kind: bytecode.KindTypeParameter, Index: 0}},
	}
	vec := bytecode.Type{Kind: bytecode.KindVector, Elem: &coin}
	fromBytecode := SigFromType(bytecode.Type{Kind: bytecode.KindMutableReference, Elem: &vec})

	// The same type as a normalized projection, with a long uppercase
	// address and keys in a different order.
	raw := json.RawMessage(`{"MutableReference":{"Vector":{"Struct":{
		"typeArguments":[{"TypeParameter":0}],
		"name":"Coin",
		"module":"coin",
		"address":"0x0000000000000000000000000000000000000000000000000000000000000002"
	}}}}`)
	fromJSON, err := SigFromJSON(raw)
	require.NoError(t, err)

	assert.Equal(t, fromBytecode, fromJSON)
	assert.Contains(t, string(fromJSON), `"address":"0x2"`)
}

func TestSigFromJSONRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "unknown primitive", raw: `"U512"`},
		{name: "unknown tag", raw: `{"Tuple":["U8"]}`},
		{name: "multiple keys", raw: `{"Vector":"U8","Reference":"U8"}`},
		{name: "bad struct address", raw: `{"Struct":{"address":"xyz","module":"m","name":"S","typeArguments":[]}}`},
		{name: "not a type", raw: `42`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SigFromJSON(json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestFromModulesDropsPrivateNonEntry(t *testing.T) {
	m := &bytecode.Module{
		Name: "vault",
		Functions: []bytecode.Function{
			{Name: "deposit", Visibility: bytecode.VisPublic},
			{Name: "init", Visibility: bytecode.VisPrivate, IsEntry: true},
			{Name: "helper", Visibility: bytecode.VisPrivate},
			{Name: "share", Visibility: bytecode.VisFriend},
		},
	}

	inv := FromModules([]*bytecode.Module{m})
	require.Contains(t, inv.Modules, "vault")
	fns := inv.Modules["vault"].Functions
	assert.Len(t, fns, 3)
	assert.Contains(t, fns, "deposit")
	assert.Contains(t, fns, "init")
	assert.Contains(t, fns, "share")
	assert.NotContains(t, fns, "helper")
}

func TestFromModulesSortsStructFields(t *testing.T) {
	m := &bytecode.Module{
		Name: "vault",
		Structs: []bytecode.Struct{{
			Name:      "Vault",
			Abilities: []string{"key"},
			Fields: []bytecode.Field{
				{Name: "balance", Type: bytecode.Type{Kind: bytecode.KindU64}},
				{Name: "admin", Type: bytecode.Type{Kind: bytecode.KindAddress}},
			},
		}},
	}

	inv := FromModules([]*bytecode.Module{m})
	s := inv.Modules["vault"].Structs["Vault"]
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "admin", s.Fields[0].Name)
	assert.Equal(t, "balance", s.Fields[1].Name)
}

func TestFromNormalized(t *testing.T) {
	doc := map[string]json.RawMessage{
		"vault": json.RawMessage(`{
			"name": "vault",
			"exposedFunctions": {
				"deposit": {
					"visibility": "Public",
					"isEntry": true,
					"typeParameters": [],
					"parameters": ["U64"],
					"return": []
				}
			},
			"structs": {
				"Vault": {
					"abilities": {"abilities": ["Store", "Key"]},
					"typeParameters": [],
					"fields": [
						{"name": "balance", "type": "U64"},
						{"name": "admin", "type": "Address"}
					]
				}
			}
		}`),
	}

	inv, err := FromNormalized(doc)
	require.NoError(t, err)
	require.Contains(t, inv.Modules, "vault")

	fn := inv.Modules["vault"].Functions["deposit"]
	assert.Equal(t, "Public", fn.Visibility)
	require.NotNil(t, fn.IsEntry)
	assert.True(t, *fn.IsEntry)
	require.NotNil(t, fn.TypeParams)
	assert.Equal(t, 0, *fn.TypeParams)
	assert.Equal(t, []TypeSig{`"U64"`}, fn.Params)

	s := inv.Modules["vault"].Structs["Vault"]
	assert.Equal(t, []string{"key", "store"}, s.Abilities)
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "admin", s.Fields[0].Name)
	assert.Equal(t, "balance", s.Fields[1].Name)
}

func TestFromNormalizedFallsBackToMapKey(t *testing.T) {
	doc := map[string]json.RawMessage{
		"vault": json.RawMessage(`{"exposedFunctions":{},"structs":{}}`),
	}
	inv, err := FromNormalized(doc)
	require.NoError(t, err)
	assert.Contains(t, inv.Modules, "vault")
}

func TestFromNormalizedRejectsBadModule(t *testing.T) {
	doc := map[string]json.RawMessage{
		"vault": json.RawMessage(`[]`),
	}
	_, err := FromNormalized(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "vault")
}
