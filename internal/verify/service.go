// Package verify compares a package's decoded bytecode inventory
// against the normalized module projection the fullnode reports for
// the same package.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/inventory"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/observability/metrics"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/validation"
)

// ModuleResolver resolves a package's full dependency closure.
type ModuleResolver interface {
	Closure(ctx context.Context, id string) ([]*bytecode.Module, error)
}

// MetadataStore answers original-package-id lookups from local
// artifact metadata.
type MetadataStore interface {
	OriginalPackageID(id string) string
}

// NormalizedFetcher fetches the remote normalized module projection.
type NormalizedFetcher interface {
	GetNormalizedModules(ctx context.Context, id string) (map[string]json.RawMessage, error)
}

// Result is the verification record for one package.
type Result struct {
	PackageID           string         `json:"resolved_package_id"`
	OK                  bool           `json:"ok"`
	Error               string         `json:"error,omitempty"`
	ModulesMissingLocal []string       `json:"modules_missing_local"`
	ModulesMissingRPC   []string       `json:"modules_missing_rpc"`
	ModulesWithDiffs    []string       `json:"modules_with_diffs"`
	DiffSummary         map[string]int `json:"diff_summary"`
}

func emptyResult(id string) *Result {
	return &Result{
		PackageID:           id,
		ModulesMissingLocal: []string{},
		ModulesMissingRPC:   []string{},
		ModulesWithDiffs:    []string{},
		DiffSummary:         map[string]int{},
	}
}

// Failed builds the result record for a package whose verification
// aborted before a diff could be computed.
func Failed(id string, err error) *Result {
	r := emptyResult(id)
	r.Error = err.Error()
	return r
}

// Service runs package verifications.
type Service struct {
	resolver ModuleResolver
	store    MetadataStore
	rpc      NormalizedFetcher
	logger   *slog.Logger
}

// NewService creates a verification service.
func NewService(resolver ModuleResolver, store MetadataStore, rpc NormalizedFetcher, logger *slog.Logger) *Service {
	return &Service{resolver: resolver, store: store, rpc: rpc, logger: logger}
}

// Verify builds both inventories for one package and diffs them.
// The returned error is terminal for this package; no partial diff is
// reported alongside it.
func (s *Service) Verify(ctx context.Context, id string) (*Result, error) {
	norm, err := validation.NormalizePackageID(id)
	if err != nil {
		return nil, err
	}

	closure, err := s.resolver.Closure(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("resolving closure for %s: %w", validation.HexLiteral(norm), err)
	}
	metrics.ModulesDecodedTotal.Add(float64(len(closure)))

	local, err := s.localInventory(norm, closure)
	if err != nil {
		return nil, err
	}

	metrics.RPCRequestsTotal.WithLabelValues("sui_getNormalizedMoveModulesByPackage").Inc()
	doc, err := s.rpc.GetNormalizedModules(ctx, "0x"+norm)
	if err != nil {
		return nil, fmt.Errorf("fetching normalized modules for %s: %w", validation.HexLiteral(norm), err)
	}
	remote, err := inventory.FromNormalized(doc)
	if err != nil {
		return nil, err
	}

	return s.compare(norm, local, remote), nil
}

// localInventory filters the closure down to the modules that belong
// to the package under verification and projects them. Module bytecode
// keeps embedding the address of its original publication across
// upgrades, so the filter uses the reconciled original id rather than
// the current one.
func (s *Service) localInventory(norm string, closure []*bytecode.Module) (inventory.PackageInventory, error) {
	original := s.store.OriginalPackageID("0x" + norm)
	origNorm, err := validation.NormalizePackageID(original)
	if err != nil {
		return inventory.PackageInventory{}, fmt.Errorf("original package id %q: %w", original, err)
	}
	if origNorm != norm {
		s.logger.Debug("reconciled package address",
			"package_id", validation.HexLiteral(norm),
			"original_id", validation.HexLiteral(origNorm))
	}

	var own []*bytecode.Module
	present := map[string]bool{}
	for _, m := range closure {
		present[m.Address] = true
		if m.Address == origNorm {
			own = append(own, m)
		}
	}
	if len(own) == 0 {
		e := &LocalModulesNotFoundError{Address: validation.HexLiteral(origNorm)}
		for addr := range present {
			e.Present = append(e.Present, validation.HexLiteral(addr))
		}
		sort.Strings(e.Present)
		return inventory.PackageInventory{}, e
	}
	return inventory.FromModules(own), nil
}

// compare diffs the two package inventories module by module.
func (s *Service) compare(norm string, local, remote inventory.PackageInventory) *Result {
	r := emptyResult(validation.HexLiteral(norm))

	for name := range remote.Modules {
		if _, ok := local.Modules[name]; !ok {
			r.ModulesMissingLocal = append(r.ModulesMissingLocal, name)
		}
	}
	for name, localMod := range local.Modules {
		remoteMod, ok := remote.Modules[name]
		if !ok {
			r.ModulesMissingRPC = append(r.ModulesMissingRPC, name)
			continue
		}
		equal, counts := inventory.Diff(localMod, remoteMod)
		if !equal {
			r.ModulesWithDiffs = append(r.ModulesWithDiffs, name)
			for cat, n := range counts {
				r.DiffSummary[cat] += n
			}
		}
	}

	sort.Strings(r.ModulesMissingLocal)
	sort.Strings(r.ModulesMissingRPC)
	sort.Strings(r.ModulesWithDiffs)
	r.OK = len(r.ModulesMissingLocal) == 0 &&
		len(r.ModulesMissingRPC) == 0 &&
		len(r.ModulesWithDiffs) == 0
	return r
}

// VerifyAll verifies each package in turn. A per-package failure is
// recorded in that package's result and does not stop the remaining
// packages.
func (s *Service) VerifyAll(ctx context.Context, ids []string) []*Result {
	results := make([]*Result, 0, len(ids))
	for _, id := range ids {
		res, err := s.Verify(ctx, id)
		switch {
		case err != nil:
			s.logger.Error("verification failed", "package_id", id, "error", err)
			metrics.VerificationsTotal.WithLabelValues("error").Inc()
			res = Failed(id, err)
		case res.OK:
			s.logger.Info("verification ok", "package_id", res.PackageID)
			metrics.VerificationsTotal.WithLabelValues("ok").Inc()
		default:
			s.logger.Warn("verification found differences",
				"package_id", res.PackageID,
				"modules_missing_local", len(res.ModulesMissingLocal),
				"modules_missing_rpc", len(res.ModulesMissingRPC),
				"modules_with_diffs", len(res.ModulesWithDiffs))
			metrics.VerificationsTotal.WithLabelValues("diff").Inc()
		}
		for cat, n := range res.DiffSummary {
			metrics.DiffsTotal.WithLabelValues(cat).Add(float64(n))
		}
		results = append(results, res)
	}
	return results
}
