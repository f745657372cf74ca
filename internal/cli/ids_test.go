package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCollectPackageIDsMergesSortsAndDedupes(t *testing.T) {
	idsFile := writeTempFile(t, "ids.txt", `
# curated set
0xb

0xa
0xc
`)

	ids, err := collectPackageIDs(idSources{
		ids:     []string{" 0xc ", "0xd", ""},
		idsFile: idsFile,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xa", "0xb", "0xc", "0xd"}, ids)
}

func TestCollectPackageIDsMax(t *testing.T) {
	ids, err := collectPackageIDs(idSources{
		ids: []string{"0xc", "0xa", "0xb"},
		max: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xa", "0xb"}, ids)
}

func TestCollectPackageIDsEmptySources(t *testing.T) {
	ids, err := collectPackageIDs(idSources{})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCollectPackageIDsMissingFile(t *testing.T) {
	_, err := collectPackageIDs(idSources{idsFile: filepath.Join(t.TempDir(), "absent.txt")})
	assert.Error(t, err)
}

func TestIDsFromMVRCatalog(t *testing.T) {
	catalog := writeTempFile(t, "catalog.json", `{
		"names": [
			{"name": "app/core", "mainnet_package_info_id": "0x1", "testnet_package_info_id": "0x2"},
			{"name": "app/extras", "mainnet_package_info_id": "0x3"},
			{"name": "app/unreleased"},
			{"name": "app/odd", "mainnet_package_info_id": 7}
		]
	}`)

	t.Run("mainnet", func(t *testing.T) {
		ids, err := idsFromMVRCatalog(catalog, "mainnet")
		require.NoError(t, err)
		assert.Equal(t, []string{"0x1", "0x3"}, ids)
	})

	t.Run("testnet", func(t *testing.T) {
		ids, err := idsFromMVRCatalog(catalog, "testnet")
		require.NoError(t, err)
		assert.Equal(t, []string{"0x2"}, ids)
	})

	t.Run("missing names array", func(t *testing.T) {
		empty := writeTempFile(t, "empty.json", `{}`)
		_, err := idsFromMVRCatalog(empty, "mainnet")
		assert.Error(t, err)
	})
}
