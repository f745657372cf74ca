// Package artifacts reads the on-disk package artifact store: a
// read-only dataset of published packages sharded by the first two hex
// digits of the package id.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/validation"
)

// Layout within a package directory.
const (
	bytecodeModulesDir = "bytecode_modules"
	linkageFile        = "bcs.json"
	metadataFile       = "metadata.json"
)

// Store reads packages from <Dir>/packages/<Dataset>/0x<2 hex>/<62 hex>.
type Store struct {
	Dir     string
	Dataset string
}

// New creates a store over the given root directory and dataset name.
func New(dir, dataset string) *Store {
	return &Store{Dir: dir, Dataset: dataset}
}

// PackageDir returns the artifact directory for a package id. The
// result is a pure function of the normalized id; it does not touch
// the filesystem.
func (s *Store) PackageDir(id string) (string, error) {
	norm, err := validation.NormalizePackageID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, "packages", s.Dataset, "0x"+norm[:2], norm[2:]), nil
}

// ModulesDir returns the package's bytecode module directory.
func (s *Store) ModulesDir(id string) (string, error) {
	dir, err := s.PackageDir(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, bytecodeModulesDir), nil
}

// HasPackage reports whether the package's bytecode directory exists.
func (s *Store) HasPackage(id string) bool {
	dir, err := s.PackageDir(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, bytecodeModulesDir))
	return err == nil && info.IsDir()
}

// LoadModules decodes every bytecode module of a locally stored
// package. ok is false when the package is not in the store; err is
// non-nil only for a present but unreadable or malformed package.
func (s *Store) LoadModules(id string) (modules []*bytecode.Module, ok bool, err error) {
	if !s.HasPackage(id) {
		return nil, false, nil
	}
	dir, err := s.PackageDir(id)
	if err != nil {
		return nil, false, err
	}
	modules, err = bytecode.DecodeDir(filepath.Join(dir, bytecodeModulesDir))
	if err != nil {
		return nil, false, fmt.Errorf("loading local modules for %s: %w", id, err)
	}
	return modules, true, nil
}

// LinkageDeps reads dependency package ids from the package's local
// linkage table document. A missing document yields no deps.
func (s *Store) LinkageDeps(id string) ([]string, error) {
	dir, err := s.PackageDir(id)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, linkageFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc struct {
		LinkageTable map[string]json.RawMessage `json:"linkageTable"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	deps := make([]string, 0, len(doc.LinkageTable))
	for dep := range doc.LinkageTable {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps, nil
}

// OriginalPackageID returns the pre-upgrade package id recorded in the
// artifact's metadata document. When the artifact or the field is
// absent, the input id is its own original id. Module bytecode keeps
// embedding the original address across upgrades, so this id decides
// which decoded modules belong to the package under verification.
func (s *Store) OriginalPackageID(id string) string {
	dir, err := s.PackageDir(id)
	if err != nil {
		return id
	}
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return id
	}
	var meta struct {
		OriginalPackageID string `json:"originalPackageId"`
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta.OriginalPackageID == "" {
		return id
	}
	return meta.OriginalPackageID
}

// PackageIDs walks the dataset and returns up to limit package ids in
// sorted order. limit <= 0 means no limit.
func (s *Store) PackageIDs(limit int) ([]string, error) {
	root := filepath.Join(s.Dir, "packages", s.Dataset)
	prefixes, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", root, err)
	}

	var ids []string
	for _, prefix := range prefixes {
		if !prefix.IsDir() || len(prefix.Name()) != 4 || prefix.Name()[:2] != "0x" {
			continue
		}
		pkgs, err := os.ReadDir(filepath.Join(root, prefix.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading shard %s: %w", prefix.Name(), err)
		}
		for _, pkg := range pkgs {
			if !pkg.IsDir() {
				continue
			}
			ids = append(ids, "0x"+prefix.Name()[2:]+pkg.Name())
		}
	}

	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
