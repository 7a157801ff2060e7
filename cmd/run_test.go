package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mromano1/equity-atlas/internal/equity"
	"github.com/mromano1/equity-atlas/internal/pipeline"
	"github.com/mromano1/equity-atlas/internal/store"
)

func TestPrintRunSummary(t *testing.T) {
	result := &pipeline.Result{
		RunID: "run-1",
		Counties: []equity.County{
			{GEOID: "36005", Name: "Bronx County", Population: 1418207, PovertyRate: 27.4},
		},
		Summary: store.RunSummary{
			Tracts:   339,
			Matched:  337,
			Counties: 1,
			Outputs:  []string{"out/counties.svg", "out/counties.csv"},
		},
	}

	var b strings.Builder
	printRunSummary(&b, result)
	out := b.String()

	assert.Contains(t, out, "Run run-1 complete")
	assert.Contains(t, out, "Bronx County")
	// Population grouped with thousands separators.
	assert.Contains(t, out, "1,418,207")
	assert.Contains(t, out, "27.4%")
	assert.Contains(t, out, "wrote out/counties.svg")
	assert.Contains(t, out, "wrote out/counties.csv")
}
