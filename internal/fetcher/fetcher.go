// Package fetcher provides the transport layer for Census data downloads:
// an HTTP fetcher with per-host rate limiting and bounded retry, and an FTP
// fetcher for the Census Bureau FTP mirror.
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// saveToFile copies r to path through a temp file, renaming on success. An
// interrupted transfer never leaves a partial file at path, which the
// download cache would otherwise treat as complete.
func saveToFile(r io.Reader, path string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".partial-*")
	if err != nil {
		return 0, eris.Wrap(err, "create temp file")
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return n, eris.Wrap(err, "write file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return n, eris.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return n, eris.Wrap(err, "rename into place")
	}
	return n, nil
}
