package proj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestZoneForLon(t *testing.T) {
	assert.Equal(t, Zone(18), ZoneForLon(-74.0)) // New York
	assert.Equal(t, Zone(10), ZoneForLon(-123.1))
	assert.Equal(t, Zone(31), ZoneForLon(0.5))
}

func TestZone_EPSG(t *testing.T) {
	assert.Equal(t, 32618, Zone(18).EPSG())
}

func TestZone_CentralMeridian(t *testing.T) {
	assert.InDelta(t, -75.0, Zone(18).CentralMeridian(), 1e-9)
}

func TestForward_NewYork(t *testing.T) {
	// Lower Manhattan, checked against published UTM 18N coordinates.
	x, y := Forward(-74.0060, 40.7128, Zone(18))
	assert.InDelta(t, 583963, x, 15.0)
	assert.InDelta(t, 4507341, y, 15.0)
}

func TestForward_CentralMeridian(t *testing.T) {
	// A point on the central meridian projects to the false easting.
	x, _ := Forward(-75.0, 42.0, Zone(18))
	assert.InDelta(t, 500000, x, 1e-6)
}

func TestForward_NorthingIncreasesWithLatitude(t *testing.T) {
	_, y1 := Forward(-74.0, 40.0, Zone(18))
	_, y2 := Forward(-74.0, 41.0, Zone(18))
	assert.Greater(t, y2, y1)
}

func TestProject(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	poly := geom.NewPolygon(geom.XY)
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		-74.1, 40.7,
		-73.9, 40.7,
		-73.9, 40.9,
		-74.1, 40.9,
		-74.1, 40.7,
	})
	require.NoError(t, poly.Push(ring))
	require.NoError(t, mp.Push(poly))

	out := Project(mp, Zone(18))
	require.NotNil(t, out)
	assert.Equal(t, 32618, out.SRID())
	assert.Equal(t, len(mp.FlatCoords()), len(out.FlatCoords()))

	// Projected coordinates are in meters, far from lon/lat magnitudes.
	b := out.Bounds()
	assert.Greater(t, b.Min(0), 100000.0)
	assert.Greater(t, b.Min(1), 1000000.0)

	// Input untouched.
	assert.InDelta(t, -74.1, mp.Bounds().Min(0), 1e-9)
}

func TestProject_Nil(t *testing.T) {
	assert.Nil(t, Project(nil, Zone(18)))
}

func TestZoneFor(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	poly := geom.NewPolygon(geom.XY)
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		-79.0, 42.0, -72.0, 42.0, -72.0, 45.0, -79.0, 45.0, -79.0, 42.0,
	})
	require.NoError(t, poly.Push(ring))
	require.NoError(t, mp.Push(poly))

	// Midpoint of -79..-72 is -75.5, zone 18.
	assert.Equal(t, Zone(18), ZoneFor([]*geom.MultiPolygon{mp}))
}

func TestZoneFor_Empty(t *testing.T) {
	assert.Equal(t, ZoneForLon(0), ZoneFor(nil))
}
