package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks an archive into destDir and returns the paths of the
// extracted files. TIGER/Line archives are flat, with the shapefile sidecars
// (.shp, .shx, .dbf, .prj) at the root; nested entries are still handled and
// directory entries are skipped.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	extracted := make([]string, 0, len(r.File))
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		dest, err := entryDestPath(entry.Name, destDir)
		if err != nil {
			return extracted, err
		}
		if err := writeZIPEntry(entry, dest); err != nil {
			return extracted, err
		}
		extracted = append(extracted, dest)
	}

	return extracted, nil
}

// entryDestPath resolves an archive entry name under destDir, rejecting
// entries that would escape it.
func entryDestPath(name, destDir string) (string, error) {
	dest := filepath.Join(destDir, name)
	rel, err := filepath.Rel(destDir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: entry %q escapes destination", name)
	}
	return dest, nil
}

func writeZIPEntry(entry *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return eris.Wrap(err, "zip: create directory")
	}

	rc, err := entry.Open()
	if err != nil {
		return eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "zip: create file")
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close() //nolint:errcheck
		return eris.Wrap(err, "zip: write file")
	}
	return out.Close()
}
