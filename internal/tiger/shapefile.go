package tiger

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/mromano1/equity-atlas/internal/geoid"
)

// Boundary is one census tract boundary record: the identifier fields carried
// by the shapefile's DBF attributes plus the polygon geometry, in WGS84.
type Boundary struct {
	GEOID    string
	StateFP  string
	CountyFP string
	TractCE  string
	Name     string
	ALand    int64
	AWater   int64
	Geom     *geom.MultiPolygon
}

// ParseTracts reads a TIGER tract shapefile and returns one Boundary per
// record. Records with no geometry or malformed identifiers are skipped with
// a counter, not an error; TIGER files occasionally carry water-only slivers.
func ParseTracts(shpPath string) ([]Boundary, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name -> index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) string {
		idx, ok := fieldIdx[strings.ToLower(name)]
		if !ok {
			return ""
		}
		val := strings.TrimRight(reader.Attribute(idx), "\x00")
		return strings.TrimSpace(val)
	}

	var boundaries []Boundary
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		b := Boundary{
			StateFP:  attr("statefp"),
			CountyFP: attr("countyfp"),
			TractCE:  attr("tractce"),
			Name:     attr("namelsad"),
			ALand:    parseArea(attr("aland")),
			AWater:   parseArea(attr("awater")),
			Geom:     mp,
		}
		if b.Name == "" {
			b.Name = attr("name")
		}

		// Prefer the file's own GEOID; reconstruct when absent. Either way
		// the result is validated against the composite of the parts.
		b.GEOID = attr("geoid")
		if b.GEOID == "" {
			g, err := geoid.Tract(b.StateFP, b.CountyFP, b.TractCE)
			if err != nil {
				skipped++
				continue
			}
			b.GEOID = g
		}
		if _, err := geoid.Parse(b.GEOID); err != nil {
			skipped++
			continue
		}

		boundaries = append(boundaries, b)
	}

	if skipped > 0 {
		zap.L().Debug("tiger: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return boundaries, nil
}

func parseArea(v string) int64 {
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Some writers store areas as floats.
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0
		}
		return int64(f)
	}
	return n
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Each shapefile part becomes one single-ring polygon.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("tiger: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("tiger: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
