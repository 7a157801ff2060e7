// Package equity joins tract-level ACS statistics with tract boundaries and
// aggregates them into county-level poverty figures.
package equity

import (
	"strings"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/mromano1/equity-atlas/internal/acs"
	"github.com/mromano1/equity-atlas/internal/tiger"
)

// TractFeature is a tract's statistics with its boundary attached.
type TractFeature struct {
	Record acs.TractRecord
	ALand  int64
	AWater int64
	Geom   *geom.MultiPolygon
}

// JoinReport summarizes how the two datasets lined up. Mismatches are
// reported, never fatal: tract inventories drift between ACS vintages and
// TIGER releases.
type JoinReport struct {
	Matched             int `json:"matched"`
	UnmatchedRecords    int `json:"unmatched_records"`
	UnmatchedBoundaries int `json:"unmatched_boundaries"`
	DuplicateBoundaries int `json:"duplicate_boundaries"`
}

// Join matches ACS tract records to boundaries by GEOID. When a GEOID appears
// more than once on the boundary side the last one wins.
func Join(records []acs.TractRecord, boundaries []tiger.Boundary) ([]TractFeature, JoinReport) {
	var report JoinReport

	byGEOID := make(map[string]tiger.Boundary, len(boundaries))
	for _, b := range boundaries {
		if _, dup := byGEOID[b.GEOID]; dup {
			report.DuplicateBoundaries++
			zap.L().Warn("equity: duplicate boundary GEOID, keeping last",
				zap.String("geoid", b.GEOID),
			)
		}
		byGEOID[b.GEOID] = b
	}

	matched := make(map[string]bool, len(records))
	features := make([]TractFeature, 0, len(records))
	for _, r := range records {
		b, ok := byGEOID[r.GEOID]
		if !ok {
			report.UnmatchedRecords++
			continue
		}
		matched[r.GEOID] = true
		features = append(features, TractFeature{
			Record: r,
			ALand:  b.ALand,
			AWater: b.AWater,
			Geom:   b.Geom,
		})
	}
	report.Matched = len(features)
	report.UnmatchedBoundaries = len(byGEOID) - len(matched)

	if report.UnmatchedRecords > 0 || report.UnmatchedBoundaries > 0 {
		zap.L().Warn("equity: join left unmatched rows",
			zap.Int("matched", report.Matched),
			zap.Int("unmatched_records", report.UnmatchedRecords),
			zap.Int("unmatched_boundaries", report.UnmatchedBoundaries),
		)
	}

	return features, report
}

// countyNameFromTract extracts the county portion of an ACS tract NAME,
// which reads "Census Tract 1, Bronx County, New York".
func countyNameFromTract(name string) string {
	parts := strings.Split(name, ", ")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
