package inventory

import (
	"sort"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
)

// FromModules projects decoded modules into a package inventory.
//
// Normalized module projections only report public functions, friend
// functions, and entry functions, so private non-entry functions are
// dropped here to keep the two sides comparable. This assumes the
// remote visibility semantics stay fixed; if the service ever starts
// reporting private functions the filter needs a matching switch.
func FromModules(modules []*bytecode.Module) PackageInventory {
	out := PackageInventory{Modules: make(map[string]ModuleInventory, len(modules))}
	for _, m := range modules {
		out.Modules[m.Name] = fromModule(m)
	}
	return out
}

func fromModule(m *bytecode.Module) ModuleInventory {
	inv := ModuleInventory{
		Functions: make(map[string]FunctionEntry),
		Structs:   make(map[string]StructEntry),
	}

	for _, fn := range m.Functions {
		if fn.Visibility == bytecode.VisPrivate && !fn.IsEntry {
			continue
		}
		entry := FunctionEntry{
			Visibility: string(fn.Visibility),
			IsEntry:    boolPtr(fn.IsEntry),
			TypeParams: intPtr(fn.TypeParams),
		}
		for _, p := range fn.Params {
			entry.Params = append(entry.Params, SigFromType(p))
		}
		for _, r := range fn.Returns {
			entry.Returns = append(entry.Returns, SigFromType(r))
		}
		inv.Functions[fn.Name] = entry
	}

	for _, s := range m.Structs {
		entry := StructEntry{
			Abilities:  append([]string(nil), s.Abilities...),
			TypeParams: intPtr(s.TypeParams),
		}
		for _, f := range s.Fields {
			entry.Fields = append(entry.Fields, FieldEntry{Name: f.Name, Sig: SigFromType(f.Type)})
		}
		sortFields(entry.Fields)
		inv.Structs[s.Name] = entry
	}

	return inv
}

// sortFields orders fields by (name, signature) so declaration order
// differences between sources cannot produce spurious mismatches.
func sortFields(fields []FieldEntry) {
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Name != fields[j].Name {
			return fields[i].Name < fields[j].Name
		}
		return fields[i].Sig < fields[j].Sig
	})
}
