package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/stackless"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/verify"
)

func writeSummary(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "summary.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestWriterEmitsOneLinePerRow(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Write(verify.Failed("0x1", assert.AnError)))
	require.NoError(t, w.Write(&BatchRow{
		PackageID:        "0x2",
		Dataset:          "mainnet_most_used",
		ModuleNames:      []string{"coin"},
		StacklessSummary: &stackless.Summary{Modules: 1},
	}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"resolved_package_id":"0x1"`)
	assert.Contains(t, string(lines[1]), `"stackless_summary"`)
}

func TestReadPackageIDsSortsAndDedupes(t *testing.T) {
	path := writeSummary(t, `
{"resolved_package_id":"0xb","ok":true}
{"package_id":"0xa"}

{"resolved_package_id":"0xb","ok":false}
not json at all
{"other_field":1}
`)

	ids, err := ReadPackageIDs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xa", "0xb"}, ids)
}

func TestBuildIndexCountsRowsAndErrors(t *testing.T) {
	path := writeSummary(t, `
{"package_id":"0x1","stackless_error":"panic: boom"}
{"package_id":"0x2"}
{"resolved_package_id":"0x3","ok":false,"error":"rpc failed"}
{"package_id":"0x1"}
`)

	ix, err := BuildIndex(path)
	require.NoError(t, err)

	assert.Equal(t, 4, ix.Meta.Rows)
	assert.Equal(t, 2, ix.Meta.OK)
	assert.Equal(t, 2, ix.Meta.Error)
	assert.Equal(t, path, ix.Meta.SourceJSONL)
	// First occurrence wins for line numbers.
	assert.Equal(t, map[string]int{"0x1": 1, "0x2": 2, "0x3": 3}, ix.ByPackageID)
	assert.Equal(t, map[string]int{"panic: boom": 1, "rpc failed": 1}, ix.Errors)
}

func TestIndexWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	ix := &Index{
		Meta:        IndexMeta{SourceJSONL: "s.jsonl", Rows: 1, OK: 1},
		ByPackageID: map[string]int{"0x1": 1},
		Errors:      map[string]int{},
	}
	require.NoError(t, ix.WriteFiles(dir))

	for _, name := range []string{"meta.json", "by_package_id.json", "errors.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}
