package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/report"
)

// idSources describes where to collect package ids from.
type idSources struct {
	ids         []string // from repeated --package-id
	idsFile     string   // line-oriented file, # comments
	mvrCatalog  string   // MVR catalog.json
	mvrNetwork  string   // mainnet or testnet
	fromSummary string   // previous summary JSONL
	max         int      // 0 means no limit
}

// mvrCatalog is the subset of the Move Registry catalog document the
// id collector reads.
type mvrCatalogDoc struct {
	Names []map[string]json.RawMessage `json:"names"`
}

// collectPackageIDs merges ids from all configured sources into a
// sorted, deduplicated list, truncated to max when set.
func collectPackageIDs(src idSources) ([]string, error) {
	set := map[string]bool{}

	for _, id := range src.ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			set[trimmed] = true
		}
	}

	if src.idsFile != "" {
		data, err := os.ReadFile(src.idsFile)
		if err != nil {
			return nil, fmt.Errorf("reading ids file %s: %w", src.idsFile, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			set[line] = true
		}
	}

	if src.mvrCatalog != "" {
		ids, err := idsFromMVRCatalog(src.mvrCatalog, src.mvrNetwork)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			set[id] = true
		}
	}

	if src.fromSummary != "" {
		ids, err := report.ReadPackageIDs(src.fromSummary)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			set[id] = true
		}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if src.max > 0 && len(ids) > src.max {
		ids = ids[:src.max]
	}
	return ids, nil
}

func idsFromMVRCatalog(path, network string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mvr catalog %s: %w", path, err)
	}
	var catalog mvrCatalogDoc
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing mvr catalog %s: %w", path, err)
	}
	if catalog.Names == nil {
		return nil, fmt.Errorf("mvr catalog %s missing 'names' array", path)
	}

	field := "mainnet_package_info_id"
	if network == "testnet" {
		field = "testnet_package_info_id"
	}

	var ids []string
	for _, entry := range catalog.Names {
		raw, ok := entry[field]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids, nil
}
