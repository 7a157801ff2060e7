package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestZIP creates a ZIP archive containing the given name -> content entries.
func writeTestZIP(t *testing.T, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{
		"tl_2019_36_tract.shp": "shp bytes",
		"tl_2019_36_tract.dbf": "dbf bytes",
		"tl_2019_36_tract.prj": "prj bytes",
	})

	destDir := t.TempDir()
	paths, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	data, err := os.ReadFile(filepath.Join(destDir, "tl_2019_36_tract.shp"))
	require.NoError(t, err)
	assert.Equal(t, "shp bytes", string(data))
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{
		"../escape.txt": "nope",
	})

	_, err := ExtractZIP(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestExtractZIP_MissingArchive(t *testing.T) {
	_, err := ExtractZIP(filepath.Join(t.TempDir(), "absent.zip"), t.TempDir())
	assert.Error(t, err)
}
