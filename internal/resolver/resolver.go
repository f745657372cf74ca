// Package resolver resolves a package's full dependency closure into
// decoded modules, preferring the local artifact store and falling
// back to remote fetches.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/validation"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/pkg/sui"
)

// LocalStore defines the artifact store operations the resolver needs.
type LocalStore interface {
	LoadModules(id string) (modules []*bytecode.Module, ok bool, err error)
	LinkageDeps(id string) ([]string, error)
}

// Fetcher defines the remote operations the resolver needs.
type Fetcher interface {
	GetPackage(ctx context.Context, id string) (*sui.RawPackage, error)
}

// Resolver walks the dependency graph of a package.
type Resolver struct {
	store   LocalStore
	fetcher Fetcher
	logger  *slog.Logger
}

// New creates a resolver.
func New(store LocalStore, fetcher Fetcher, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, fetcher: fetcher, logger: logger}
}

// Closure returns the decoded modules of the root package and every
// transitively linked dependency package. Revisits are idempotent, so
// diamond-shaped dependency graphs contribute each package once.
func (r *Resolver) Closure(ctx context.Context, rootID string) ([]*bytecode.Module, error) {
	root, err := validation.NormalizePackageID(rootID)
	if err != nil {
		return nil, fmt.Errorf("root package id %s: %w", rootID, err)
	}

	var all []*bytecode.Module

	// The root is always loaded up front, before any dependency work.
	// A failed local lookup (wrong dataset dir, missing shard) must
	// not silently produce a deps-only closure.
	seen := map[string]bool{root: true}
	var queue []string

	rootModules, ok, err := r.store.LoadModules(root)
	if err != nil {
		return nil, err
	}
	if ok {
		all = append(all, rootModules...)
		deps, err := r.store.LinkageDeps(root)
		if err != nil {
			return nil, fmt.Errorf("linkage deps for %s: %w", root, err)
		}
		queue = enqueue(queue, seen, deps)
	} else {
		pkg, err := r.fetchPackage(ctx, root)
		if err != nil {
			return nil, err
		}
		modules, err := bytecode.DecodeMap(pkg.ModuleMap)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", root, err)
		}
		all = append(all, modules...)
		queue = enqueue(queue, seen, pkg.DependencyIDs())
	}

	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if seen[id] {
			continue
		}
		seen[id] = true

		modules, ok, err := r.store.LoadModules(id)
		if err != nil {
			return nil, err
		}
		if ok {
			all = append(all, modules...)
			deps, err := r.store.LinkageDeps(id)
			if err != nil {
				return nil, fmt.Errorf("linkage deps for %s: %w", id, err)
			}
			queue = enqueue(queue, seen, deps)
			continue
		}

		pkg, err := r.fetchPackage(ctx, id)
		if err != nil {
			return nil, err
		}
		queue = enqueue(queue, seen, pkg.DependencyIDs())
		modules, err = bytecode.DecodeMap(pkg.ModuleMap)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", id, err)
		}
		all = append(all, modules...)
	}

	return all, nil
}

func (r *Resolver) fetchPackage(ctx context.Context, id string) (*sui.RawPackage, error) {
	norm, err := validation.NormalizePackageID(id)
	if err != nil {
		return nil, fmt.Errorf("dependency package id %s: %w", id, err)
	}
	r.logger.Debug("fetching package via rpc", "package_id", norm)
	return r.fetcher.GetPackage(ctx, "0x"+norm)
}

// enqueue normalizes dep ids and pushes unseen ones onto the queue.
// Unparseable ids are skipped; they fail properly if anything else
// references them as a required fetch.
func enqueue(queue []string, seen map[string]bool, deps []string) []string {
	for _, dep := range deps {
		norm, err := validation.NormalizePackageID(dep)
		if err != nil {
			continue
		}
		if !seen[norm] {
			queue = append(queue, norm)
		}
	}
	return queue
}
