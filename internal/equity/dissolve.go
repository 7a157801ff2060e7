package equity

import (
	"sort"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/mromano1/equity-atlas/internal/geoid"
)

// County is one dissolved county: summed tract counts, a merged geometry,
// and the derived poverty rate.
type County struct {
	GEOID           string  `json:"geoid"`
	StateFIPS       string  `json:"state_fips"`
	CountyFIPS      string  `json:"county_fips"`
	Name            string  `json:"name"`
	Tracts          int     `json:"tracts"`
	PovertyUniverse int64   `json:"poverty_universe"`
	BelowHalf       int64   `json:"below_half"`
	HalfToOne       int64   `json:"half_to_one"`
	Population      int64   `json:"population"`
	ALand           int64   `json:"aland"`
	AWater          int64   `json:"awater"`
	PovertyRate     float64 `json:"poverty_rate"`
	Geom            *geom.MultiPolygon `json:"-"`
}

// DissolveByCounty groups tract features by their 5-digit county GEOID,
// summing the numeric attributes and collecting every tract polygon into one
// county MultiPolygon. Output is sorted by GEOID.
func DissolveByCounty(tracts []TractFeature) []County {
	byCounty := make(map[string]*County)

	for _, t := range tracts {
		key, err := geoid.CountyOf(t.Record.GEOID)
		if err != nil {
			zap.L().Warn("equity: dissolve skipping malformed GEOID",
				zap.String("geoid", t.Record.GEOID),
				zap.Error(err),
			)
			continue
		}

		c, ok := byCounty[key]
		if !ok {
			c = &County{
				GEOID:      key,
				StateFIPS:  t.Record.StateFIPS,
				CountyFIPS: t.Record.CountyFIPS,
				Name:       countyNameFromTract(t.Record.Name),
				Geom:       geom.NewMultiPolygon(geom.XY).SetSRID(4326),
			}
			byCounty[key] = c
		}

		c.Tracts++
		c.PovertyUniverse += t.Record.PovertyUniverse
		c.BelowHalf += t.Record.BelowHalf
		c.HalfToOne += t.Record.HalfToOne
		c.Population += t.Record.Population
		c.ALand += t.ALand
		c.AWater += t.AWater

		if t.Geom == nil {
			continue
		}
		for i := 0; i < t.Geom.NumPolygons(); i++ {
			if err := c.Geom.Push(t.Geom.Polygon(i)); err != nil {
				zap.L().Debug("equity: dissolve skipping polygon",
					zap.String("geoid", t.Record.GEOID),
					zap.Error(err),
				)
			}
		}
	}

	counties := make([]County, 0, len(byCounty))
	for _, c := range byCounty {
		counties = append(counties, *c)
	}
	sort.Slice(counties, func(i, j int) bool { return counties[i].GEOID < counties[j].GEOID })

	zap.L().Info("equity: dissolved tracts to counties",
		zap.Int("tracts", len(tracts)),
		zap.Int("counties", len(counties)),
	)
	return counties
}

// ComputeRates derives the poverty rate for each county: the share of the
// population below the 1.0 income-to-poverty threshold, as a percentage.
// Counties with zero population get rate 0 rather than NaN.
func ComputeRates(counties []County) []County {
	for i := range counties {
		c := &counties[i]
		if c.Population == 0 {
			zap.L().Warn("equity: county has zero population, rate set to 0",
				zap.String("geoid", c.GEOID),
			)
			c.PovertyRate = 0
			continue
		}
		c.PovertyRate = float64(c.BelowHalf+c.HalfToOne) / float64(c.Population) * 100
	}
	return counties
}
