package equity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tractFeature(geoid, name string, universe, below, half, pop, aland int64) TractFeature {
	return TractFeature{
		Record: record(geoid, name, universe, below, half, pop),
		ALand:  aland,
		Geom:   square(-74.0, 40.8, 0.01),
	}
}

func TestDissolveByCounty(t *testing.T) {
	tracts := []TractFeature{
		tractFeature("36005000100", "Census Tract 1, Bronx County, New York", 4000, 300, 500, 4100, 10),
		tractFeature("36005000200", "Census Tract 2, Bronx County, New York", 3000, 200, 250, 3050, 20),
		tractFeature("36047000100", "Census Tract 1, Kings County, New York", 5000, 100, 150, 5100, 30),
	}

	counties := DissolveByCounty(tracts)
	require.Len(t, counties, 2)

	// Sorted by GEOID.
	bronx := counties[0]
	assert.Equal(t, "36005", bronx.GEOID)
	assert.Equal(t, "36", bronx.StateFIPS)
	assert.Equal(t, "005", bronx.CountyFIPS)
	assert.Equal(t, "Bronx County", bronx.Name)
	assert.Equal(t, 2, bronx.Tracts)
	assert.Equal(t, int64(7000), bronx.PovertyUniverse)
	assert.Equal(t, int64(500), bronx.BelowHalf)
	assert.Equal(t, int64(750), bronx.HalfToOne)
	assert.Equal(t, int64(7150), bronx.Population)
	assert.Equal(t, int64(30), bronx.ALand)

	// Geometry merged: two tract squares -> two polygons in one MultiPolygon.
	require.NotNil(t, bronx.Geom)
	assert.Equal(t, 2, bronx.Geom.NumPolygons())

	kings := counties[1]
	assert.Equal(t, "36047", kings.GEOID)
	assert.Equal(t, 1, kings.Tracts)
	assert.Equal(t, 1, kings.Geom.NumPolygons())
}

func TestDissolveByCounty_NilGeometry(t *testing.T) {
	f := tractFeature("36005000100", "Census Tract 1, Bronx County, New York", 1, 0, 0, 1, 0)
	f.Geom = nil

	counties := DissolveByCounty([]TractFeature{f})
	require.Len(t, counties, 1)
	assert.Equal(t, 0, counties[0].Geom.NumPolygons())
}

func TestComputeRates(t *testing.T) {
	counties := []County{
		{GEOID: "36005", BelowHalf: 500, HalfToOne: 750, Population: 10000},
		{GEOID: "36047", BelowHalf: 0, HalfToOne: 0, Population: 8000},
	}

	counties = ComputeRates(counties)
	assert.InDelta(t, 12.5, counties[0].PovertyRate, 1e-9)
	assert.Zero(t, counties[1].PovertyRate)
}

func TestComputeRates_ZeroPopulation(t *testing.T) {
	counties := ComputeRates([]County{
		{GEOID: "36005", BelowHalf: 10, HalfToOne: 10, Population: 0},
	})
	assert.Zero(t, counties[0].PovertyRate)
}
