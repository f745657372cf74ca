package bytecode

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DecodeDir decodes every .mv file in a bytecode_modules directory.
// Files are processed in name order so results are deterministic.
func DecodeDir(dir string) ([]*Module, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var modules []*Module
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".mv" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		m, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("deserializing %s: %w", path, err)
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// DecodeMap decodes a package object's module map (module name to raw
// bytes) as returned by a remote fetch. Module names are processed in
// sorted order for deterministic output.
func DecodeMap(moduleMap map[string][]byte) ([]*Module, error) {
	names := make([]string, 0, len(moduleMap))
	for name := range moduleMap {
		names = append(names, name)
	}
	sort.Strings(names)

	modules := make([]*Module, 0, len(names))
	for _, name := range names {
		m, err := Decode(moduleMap[name])
		if err != nil {
			return nil, fmt.Errorf("deserializing module %s: %w", name, err)
		}
		modules = append(modules, m)
	}
	return modules, nil
}
