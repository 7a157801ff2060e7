// Package proj projects WGS84 geographic coordinates into UTM zones
// (EPSG 326xx) so geometries can be rendered and measured on a plane.
// The forward transverse-Mercator expansion follows the usual series used
// for UTM, good to well under a meter over a zone.
package proj

import (
	"math"

	"github.com/twpayne/go-geom"
)

// WGS84 ellipsoid.
const (
	semiMajor  = 6378137.0
	flattening = 1 / 298.257223563

	scaleFactor  = 0.9996
	falseEasting = 500000.0
)

// Zone is a UTM zone number (1-60, northern hemisphere).
type Zone int

// EPSG returns the EPSG code for the zone (northern hemisphere).
func (z Zone) EPSG() int { return 32600 + int(z) }

// CentralMeridian returns the zone's central meridian in degrees.
func (z Zone) CentralMeridian() float64 { return float64(z)*6 - 183 }

// ZoneForLon returns the UTM zone containing the given longitude.
func ZoneForLon(lon float64) Zone {
	z := int(math.Floor((lon+180)/6)) + 1
	if z < 1 {
		z = 1
	}
	if z > 60 {
		z = 60
	}
	return Zone(z)
}

// ZoneFor returns the UTM zone for a set of geometries, chosen from the
// midpoint of their combined longitude span. New York (zone 18) is the
// reference case; states spanning a zone boundary get the midpoint zone.
func ZoneFor(geoms []*geom.MultiPolygon) Zone {
	minLon := math.Inf(1)
	maxLon := math.Inf(-1)
	for _, g := range geoms {
		if g == nil || g.Empty() {
			continue
		}
		b := g.Bounds()
		minLon = math.Min(minLon, b.Min(0))
		maxLon = math.Max(maxLon, b.Max(0))
	}
	if math.IsInf(minLon, 1) {
		return ZoneForLon(0)
	}
	return ZoneForLon((minLon + maxLon) / 2)
}

// Forward projects a WGS84 lon/lat pair into the given UTM zone, returning
// easting and northing in meters.
func Forward(lon, lat float64, zone Zone) (x, y float64) {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180
	lam0 := zone.CentralMeridian() * math.Pi / 180

	e2 := flattening * (2 - flattening)
	ep2 := e2 / (1 - e2)

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := (lam - lam0) * cosPhi

	m := semiMajor * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*phi -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*phi) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*phi) -
		(35*e2*e2*e2/3072)*math.Sin(6*phi))

	x = falseEasting + scaleFactor*n*(a+
		(1-t+c)*a*a*a/6+
		(5-18*t+t*t+72*c-58*ep2)*a*a*a*a*a/120)

	y = scaleFactor * (m + n*tanPhi*(a*a/2+
		(5-t+9*c+4*c*c)*a*a*a*a/24+
		(61-58*t+t*t+600*c-330*ep2)*a*a*a*a*a*a/720))

	return x, y
}

// Project returns a copy of the geometry with every coordinate projected
// into the given UTM zone. The SRID is set to the zone's EPSG code.
func Project(mp *geom.MultiPolygon, zone Zone) *geom.MultiPolygon {
	if mp == nil {
		return nil
	}

	flat := mp.FlatCoords()
	projected := make([]float64, len(flat))
	stride := mp.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		x, y := Forward(flat[i], flat[i+1], zone)
		projected[i] = x
		projected[i+1] = y
		// Extra dimensions (Z/M) pass through untouched.
		for d := 2; d < stride; d++ {
			projected[i+d] = flat[i+d]
		}
	}

	out := geom.NewMultiPolygonFlat(mp.Layout(), projected, mp.Endss())
	out.SetSRID(zone.EPSG())
	return out
}
