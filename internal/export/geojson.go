package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mromano1/equity-atlas/internal/equity"
)

// GeoJSON marshals the counties as a FeatureCollection, one feature per
// county with its attributes as properties. Counties without geometry get an
// empty MultiPolygon rather than being dropped.
func GeoJSON(counties []equity.County) ([]byte, error) {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(counties)),
	}
	for i := range counties {
		c := &counties[i]
		g := c.Geom
		if g == nil {
			g = geom.NewMultiPolygon(geom.XY).SetSRID(4326)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         c.GEOID,
			Geometry:   g,
			Properties: countyProperties(c),
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal geojson")
	}
	return data, nil
}

// WriteGeoJSON writes the FeatureCollection to path.
func WriteGeoJSON(counties []equity.County, path string) error {
	data, err := GeoJSON(counties)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

func countyProperties(c *equity.County) map[string]interface{} {
	return map[string]interface{}{
		"geoid":            c.GEOID,
		"name":             c.Name,
		"state_fips":       c.StateFIPS,
		"county_fips":      c.CountyFIPS,
		"tracts":           c.Tracts,
		"poverty_universe": c.PovertyUniverse,
		"below_half":       c.BelowHalf,
		"half_to_one":      c.HalfToOne,
		"population":       c.Population,
		"aland":            c.ALand,
		"awater":           c.AWater,
		"poverty_rate":     c.PovertyRate,
	}
}
