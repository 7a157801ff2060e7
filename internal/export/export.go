// Package export writes county results to disk in tabular and geographic
// formats.
package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mromano1/equity-atlas/internal/equity"
)

// Format names an output format.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shapefile"
	FormatXLSX      Format = "xlsx"
)

// AllFormats lists every supported format in write order.
var AllFormats = []Format{FormatCSV, FormatGeoJSON, FormatShapefile, FormatXLSX}

// ParseFormats maps a comma-separated list to formats, rejecting unknown
// names. An empty list means all formats.
func ParseFormats(s string) ([]Format, error) {
	if strings.TrimSpace(s) == "" {
		return AllFormats, nil
	}
	var formats []Format
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		switch f {
		case FormatCSV, FormatGeoJSON, FormatShapefile, FormatXLSX:
			formats = append(formats, f)
		default:
			return nil, eris.Errorf("export: unknown format %q", part)
		}
	}
	return formats, nil
}

// Result records the outcome of one format's write.
type Result struct {
	Format Format
	Path   string
	Err    error
}

// Export writes the counties to dir in each requested format. A failure in
// one format does not stop the others; each outcome is returned separately.
func Export(counties []equity.County, dir, baseName string, formats []Format) []Result {
	if baseName == "" {
		baseName = "counties"
	}

	results := make([]Result, 0, len(formats))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		err = eris.Wrapf(err, "export: create output dir %s", dir)
		for _, f := range formats {
			results = append(results, Result{Format: f, Err: err})
		}
		return results
	}

	for _, f := range formats {
		var (
			path string
			err  error
		)
		switch f {
		case FormatCSV:
			path = filepath.Join(dir, baseName+".csv")
			err = WriteCSV(counties, path)
		case FormatGeoJSON:
			path = filepath.Join(dir, baseName+".geojson")
			err = WriteGeoJSON(counties, path)
		case FormatShapefile:
			path = filepath.Join(dir, baseName+".shp")
			err = WriteShapefile(counties, path)
		case FormatXLSX:
			path = filepath.Join(dir, baseName+".xlsx")
			err = WriteXLSX(counties, path)
		default:
			err = eris.Errorf("export: unknown format %q", f)
		}

		if err != nil {
			zap.L().Error("export: format failed",
				zap.String("format", string(f)),
				zap.Error(err),
			)
		} else {
			zap.L().Info("export: wrote file",
				zap.String("format", string(f)),
				zap.String("path", path),
			)
		}
		results = append(results, Result{Format: f, Path: path, Err: err})
	}
	return results
}

// FirstError returns the first failed result's error, or nil.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
