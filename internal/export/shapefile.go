package export

import (
	"math"
	"os"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/mromano1/equity-atlas/internal/equity"
)

// DBF field names are capped at 10 characters by the format.
func shapefileFields() []shp.Field {
	return []shp.Field{
		shp.StringField("GEOID", 5),
		shp.StringField("NAME", 64),
		shp.NumberField("TRACTS", 10),
		shp.NumberField("POVUNIV", 14),
		shp.NumberField("BELOWHALF", 14),
		shp.NumberField("HALFTOONE", 14),
		shp.NumberField("POP", 14),
		shp.NumberField("ALAND", 18),
		shp.NumberField("AWATER", 18),
		shp.FloatField("POVRATE", 12, 4),
	}
}

const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// WriteShapefile writes the counties as a polygon shapefile (.shp/.shx/.dbf)
// with a WGS84 .prj sidecar. Counties without geometry are skipped.
func WriteShapefile(counties []equity.County, path string) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	if err := w.SetFields(shapefileFields()); err != nil {
		w.Close()
		return eris.Wrapf(err, "export: init dbf for %s", path)
	}

	row := 0
	for i := range counties {
		c := &counties[i]
		if c.Geom == nil || c.Geom.NumPolygons() == 0 {
			continue
		}
		w.Write(toShpPolygon(c.Geom))
		if err := writeCountyRow(w, row, c); err != nil {
			w.Close()
			return err
		}
		row++
	}
	w.Close()

	prjPath := strings.TrimSuffix(path, ".shp") + ".prj"
	if err := os.WriteFile(prjPath, []byte(wgs84WKT), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", prjPath)
	}
	return nil
}

// writeCountyRow fills one DBF record. go-shp rejects values wider than the
// declared field.
func writeCountyRow(w *shp.Writer, row int, c *equity.County) error {
	values := []interface{}{
		c.GEOID,
		c.Name,
		c.Tracts,
		int(c.PovertyUniverse),
		int(c.BelowHalf),
		int(c.HalfToOne),
		int(c.Population),
		int(c.ALand),
		int(c.AWater),
		c.PovertyRate,
	}
	for field, v := range values {
		if err := w.WriteAttribute(row, field, v); err != nil {
			return eris.Wrapf(err, "export: write attributes for county %s", c.GEOID)
		}
	}
	return nil
}

// toShpPolygon flattens a MultiPolygon into the shapefile part/point layout:
// each ring of each polygon becomes one part.
func toShpPolygon(mp *geom.MultiPolygon) *shp.Polygon {
	var (
		points []shp.Point
		parts  []int32
	)
	box := shp.Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}

	for p := 0; p < mp.NumPolygons(); p++ {
		poly := mp.Polygon(p)
		for r := 0; r < poly.NumLinearRings(); r++ {
			ring := poly.LinearRing(r)
			coords := ring.FlatCoords()
			stride := ring.Stride()

			parts = append(parts, int32(len(points)))
			for i := 0; i+1 < len(coords); i += stride {
				x, y := coords[i], coords[i+1]
				points = append(points, shp.Point{X: x, Y: y})
				box.MinX = math.Min(box.MinX, x)
				box.MinY = math.Min(box.MinY, y)
				box.MaxX = math.Max(box.MaxX, x)
				box.MaxY = math.Max(box.MaxY, y)
			}
		}
	}

	return &shp.Polygon{
		Box:       box,
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     parts,
		Points:    points,
	}
}
