package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/mromano1/equity-atlas/internal/equity"
)

func countySquare(minX, minY, size float64) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	poly := geom.NewPolygon(geom.XY)
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		minX, minY,
		minX + size, minY,
		minX + size, minY + size,
		minX, minY + size,
		minX, minY,
	})
	if err := poly.Push(ring); err != nil {
		panic(err)
	}
	if err := mp.Push(poly); err != nil {
		panic(err)
	}
	return mp
}

func sampleCounties() []equity.County {
	return []equity.County{
		{
			GEOID: "36005", StateFIPS: "36", CountyFIPS: "005", Name: "Bronx County",
			Tracts: 2, PovertyUniverse: 7000, BelowHalf: 500, HalfToOne: 750,
			Population: 7150, ALand: 30, AWater: 5, PovertyRate: 17.4825,
			Geom: countySquare(-73.93, 40.79, 0.1),
		},
		{
			GEOID: "36047", StateFIPS: "36", CountyFIPS: "047", Name: "Kings County",
			Tracts: 1, PovertyUniverse: 5000, BelowHalf: 100, HalfToOne: 150,
			Population: 5100, ALand: 40, AWater: 10, PovertyRate: 4.902,
			Geom: countySquare(-74.0, 40.58, 0.1),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counties.csv")
	require.NoError(t, WriteCSV(sampleCounties(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "36005", rows[1][0])
	assert.Equal(t, "Bronx County", rows[1][1])
	assert.Equal(t, "17.4825", rows[1][11])
}

func TestGeoJSON(t *testing.T) {
	data, err := GeoJSON(sampleCounties())
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "36005", fc.Features[0].ID)
	assert.Equal(t, "MultiPolygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, "Bronx County", fc.Features[0].Properties["name"])
	assert.InDelta(t, 17.4825, fc.Features[0].Properties["poverty_rate"].(float64), 1e-9)
}

func TestGeoJSON_NilGeometry(t *testing.T) {
	counties := sampleCounties()
	counties[1].Geom = nil

	data, err := GeoJSON(counties)
	require.NoError(t, err)

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Len(t, fc.Features, 2)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counties.xlsx")
	require.NoError(t, WriteXLSX(sampleCounties(), path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Counties", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "geoid", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "36005", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Bronx County", sheet.Rows[1].Cells[1].String())
}

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counties.shp")
	require.NoError(t, WriteShapefile(sampleCounties(), path))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	var geoids []string
	count := 0
	for r.Next() {
		_, shape := r.Shape()
		_, ok := shape.(*shp.Polygon)
		assert.True(t, ok)
		geoids = append(geoids, r.ReadAttribute(count, 0))
		count++
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"36005", "36047"}, geoids)

	// Projection sidecar.
	prj, err := os.ReadFile(filepath.Join(filepath.Dir(path), "counties.prj"))
	require.NoError(t, err)
	assert.Contains(t, string(prj), "WGS_1984")
}

func TestWriteShapefile_AttributeTooWide(t *testing.T) {
	counties := sampleCounties()
	// NAME is a 64-char DBF field.
	counties[0].Name = strings.Repeat("Longacre ", 10)

	err := WriteShapefile(counties, filepath.Join(t.TempDir(), "counties.shp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "36005")
}

func TestWriteShapefile_SkipsNilGeometry(t *testing.T) {
	counties := sampleCounties()
	counties[0].Geom = nil
	path := filepath.Join(t.TempDir(), "counties.shp")
	require.NoError(t, WriteShapefile(counties, path))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	count := 0
	for r.Next() {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestParseFormats(t *testing.T) {
	formats, err := ParseFormats("csv, GeoJSON")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatCSV, FormatGeoJSON}, formats)

	formats, err = ParseFormats("")
	require.NoError(t, err)
	assert.Equal(t, AllFormats, formats)

	_, err = ParseFormats("kml")
	assert.Error(t, err)
}

func TestExport_AllFormats(t *testing.T) {
	dir := t.TempDir()
	results := Export(sampleCounties(), dir, "counties", AllFormats)
	require.Len(t, results, len(AllFormats))
	require.NoError(t, FirstError(results))

	for _, r := range results {
		_, err := os.Stat(r.Path)
		assert.NoError(t, err, "missing output for %s", r.Format)
	}
}

func TestExport_MixedResults(t *testing.T) {
	counties := sampleCounties()
	counties[0].Name = strings.Repeat("x", 80)

	results := Export(counties, t.TempDir(), "counties", AllFormats)
	require.Len(t, results, len(AllFormats))

	byFormat := make(map[Format]Result, len(results))
	for _, r := range results {
		byFormat[r.Format] = r
	}
	assert.NoError(t, byFormat[FormatCSV].Err)
	assert.NoError(t, byFormat[FormatGeoJSON].Err)
	assert.NoError(t, byFormat[FormatXLSX].Err)
	assert.Error(t, byFormat[FormatShapefile].Err)

	// A single failed format is enough for a nonzero exit.
	assert.Error(t, FirstError(results))
}

func TestExport_CollectsFailures(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("not a dir"), 0o644))

	results := Export(sampleCounties(), blocked, "counties", AllFormats)
	require.Len(t, results, len(AllFormats))
	for _, r := range results {
		assert.Error(t, r.Err)
	}
	assert.Error(t, FirstError(results))
}
