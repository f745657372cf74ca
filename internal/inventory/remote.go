package inventory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// normalizedModule mirrors the projection's module encoding: camelCase
// keys, "exposedFunctions" instead of "functions", abilities nested one
// level deeper with PascalCase names.
type normalizedModule struct {
	Name             string                        `json:"name"`
	ExposedFunctions map[string]normalizedFunction `json:"exposedFunctions"`
	Structs          map[string]normalizedStruct   `json:"structs"`
}

type normalizedFunction struct {
	Visibility     string            `json:"visibility"`
	IsEntry        *bool             `json:"isEntry"`
	TypeParameters []json.RawMessage `json:"typeParameters"`
	Parameters     []json.RawMessage `json:"parameters"`
	Return         []json.RawMessage `json:"return"`
}

type normalizedStruct struct {
	Abilities struct {
		Abilities []string `json:"abilities"`
	} `json:"abilities"`
	TypeParameters []json.RawMessage `json:"typeParameters"`
	Fields         []struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	} `json:"fields"`
}

// FromNormalized parses a remote normalized-modules document (module
// name to module projection) into a package inventory of the same
// shape FromModules produces.
//
// Modules are keyed by the projection entry's own "name" field when
// present, falling back to the outer map key.
func FromNormalized(doc map[string]json.RawMessage) (PackageInventory, error) {
	out := PackageInventory{Modules: make(map[string]ModuleInventory, len(doc))}
	for key, raw := range doc {
		var nm normalizedModule
		if err := json.Unmarshal(raw, &nm); err != nil {
			return PackageInventory{}, fmt.Errorf("%w: module %s: %v", ErrParse, key, err)
		}
		name := nm.Name
		if name == "" {
			name = key
		}
		inv, err := fromNormalizedModule(nm)
		if err != nil {
			return PackageInventory{}, fmt.Errorf("module %s: %w", key, err)
		}
		out.Modules[name] = inv
	}
	return out, nil
}

func fromNormalizedModule(nm normalizedModule) (ModuleInventory, error) {
	inv := ModuleInventory{
		Functions: make(map[string]FunctionEntry, len(nm.ExposedFunctions)),
		Structs:   make(map[string]StructEntry, len(nm.Structs)),
	}

	for fname, nf := range nm.ExposedFunctions {
		entry := FunctionEntry{
			Visibility: nf.Visibility,
			IsEntry:    nf.IsEntry,
		}
		if nf.TypeParameters != nil {
			entry.TypeParams = intPtr(len(nf.TypeParameters))
		}
		for _, raw := range nf.Parameters {
			sig, err := SigFromJSON(raw)
			if err != nil {
				return ModuleInventory{}, fmt.Errorf("function %s: %w", fname, err)
			}
			entry.Params = append(entry.Params, sig)
		}
		for _, raw := range nf.Return {
			sig, err := SigFromJSON(raw)
			if err != nil {
				return ModuleInventory{}, fmt.Errorf("function %s: %w", fname, err)
			}
			entry.Returns = append(entry.Returns, sig)
		}
		inv.Functions[fname] = entry
	}

	for sname, ns := range nm.Structs {
		entry := StructEntry{}
		for _, a := range ns.Abilities.Abilities {
			entry.Abilities = append(entry.Abilities, strings.ToLower(a))
		}
		sort.Strings(entry.Abilities)
		if ns.TypeParameters != nil {
			entry.TypeParams = intPtr(len(ns.TypeParameters))
		}
		for _, f := range ns.Fields {
			sig, err := SigFromJSON(f.Type)
			if err != nil {
				return ModuleInventory{}, fmt.Errorf("struct %s field %s: %w", sname, f.Name, err)
			}
			entry.Fields = append(entry.Fields, FieldEntry{Name: f.Name, Sig: sig})
		}
		sortFields(entry.Fields)
		inv.Structs[sname] = entry
	}

	return inv, nil
}
