package tiger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mromano1/equity-atlas/internal/fetcher"
)

// Download fetches a TIGER/Line ZIP from the Census Bureau and extracts it.
// Already-downloaded archives are reused. Returns the path to the .shp file.
func Download(ctx context.Context, f fetcher.Fetcher, url, cacheDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "tiger.download"),
		zap.String("url", url),
	)

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", eris.Wrap(err, "tiger: create cache dir")
	}

	parts := strings.Split(url, "/")
	zipName := parts[len(parts)-1]
	zipPath := filepath.Join(cacheDir, zipName)

	// Skip download if the ZIP already exists with content.
	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		log.Debug("zip already cached, skipping download", zap.String("path", zipPath))
	} else {
		log.Info("downloading TIGER shapefile")
		n, err := f.DownloadToFile(ctx, url, zipPath)
		if err != nil {
			return "", eris.Wrap(err, "tiger: download shapefile")
		}
		log.Info("downloaded TIGER shapefile", zap.Int64("bytes", n))
	}

	extractDir := filepath.Join(cacheDir, strings.TrimSuffix(zipName, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "tiger: create extract dir")
	}

	if _, err := fetcher.ExtractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "tiger: extract zip")
	}

	shpPath, err := findFileByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "tiger: find .shp file")
	}

	return shpPath, nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
