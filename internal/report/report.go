// Package report writes and reads run artifacts: JSONL summaries and
// the derived index documents.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/stackless"
)

// BatchRow is one line of a batch extraction summary.
type BatchRow struct {
	PackageID          string             `json:"package_id"`
	Dataset            string             `json:"dataset"`
	ArtifactDir        string             `json:"resolved_artifact_dir"`
	BytecodeModulesDir string             `json:"resolved_bytecode_modules_dir"`
	ModuleNames        []string           `json:"module_names"`
	StacklessSummary   *stackless.Summary `json:"stackless_summary"`
	StacklessError     string             `json:"stackless_error,omitempty"`
}

// Writer emits one JSON document per line.
type Writer struct {
	enc *json.Encoder
}

// NewWriter creates a JSONL writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write appends one row.
func (w *Writer) Write(row any) error {
	return w.enc.Encode(row)
}

// ReadPackageIDs extracts package ids from a summary JSONL, accepting
// either verification rows (resolved_package_id) or batch rows
// (package_id). The result is sorted and deduplicated; blank and
// unparseable lines are skipped.
func ReadPackageIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row struct {
			ResolvedPackageID string `json:"resolved_package_id"`
			PackageID         string `json:"package_id"`
		}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}
		if row.ResolvedPackageID != "" {
			ids = append(ids, row.ResolvedPackageID)
		} else if row.PackageID != "" {
			ids = append(ids, row.PackageID)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading summary %s: %w", path, err)
	}

	sort.Strings(ids)
	return dedupeSorted(ids), nil
}

func dedupeSorted(ids []string) []string {
	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}

// IndexMeta summarizes an index build.
type IndexMeta struct {
	SourceJSONL string `json:"source_jsonl"`
	Rows        int    `json:"rows"`
	OK          int    `json:"ok"`
	Error       int    `json:"error"`
}

// Index is the set of artifacts derived from a summary JSONL.
type Index struct {
	Meta        IndexMeta      `json:"meta"`
	ByPackageID map[string]int `json:"by_package_id"`
	Errors      map[string]int `json:"errors"`
}

// BuildIndex scans a summary JSONL and derives the index: first line
// number per package id, error-message frequencies, and row totals. A
// row is an error row when it carries a stackless_error or a non-empty
// top-level error string.
func BuildIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary %s: %w", path, err)
	}
	defer f.Close()

	ix := &Index{
		Meta:        IndexMeta{SourceJSONL: path},
		ByPackageID: map[string]int{},
		Errors:      map[string]int{},
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ix.Meta.Rows++

		var row struct {
			ResolvedPackageID string  `json:"resolved_package_id"`
			PackageID         string  `json:"package_id"`
			StacklessError    *string `json:"stackless_error"`
			Error             string  `json:"error"`
		}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("parsing summary line %d: %w", ix.Meta.Rows, err)
		}

		id := row.ResolvedPackageID
		if id == "" {
			id = row.PackageID
		}
		if id == "" {
			id = "<missing>"
		}
		if _, ok := ix.ByPackageID[id]; !ok {
			ix.ByPackageID[id] = ix.Meta.Rows
		}

		switch {
		case row.StacklessError != nil:
			ix.Errors[*row.StacklessError]++
		case row.Error != "":
			ix.Errors[row.Error]++
		default:
			ix.Meta.OK++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading summary %s: %w", path, err)
	}

	ix.Meta.Error = ix.Meta.Rows - ix.Meta.OK
	return ix, nil
}

// WriteFiles writes the index as meta.json, by_package_id.json, and
// errors.json under dir, creating it if needed.
func (ix *Index) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index dir %s: %w", dir, err)
	}
	files := map[string]any{
		"meta.json":          ix.Meta,
		"by_package_id.json": ix.ByPackageID,
		"errors.json":        ix.Errors,
	}
	for name, doc := range files {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}
