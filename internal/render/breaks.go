// Package render draws county choropleth maps as standalone SVG documents.
package render

import (
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// QuantileBreaks returns the upper bound of each of n classes over values,
// computed at evenly spaced quantiles. When the data has too few distinct
// values to support n quantile classes it falls back to equal intervals.
func QuantileBreaks(values []float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, eris.Errorf("render: need at least 2 classes, got %d", n)
	}
	if len(values) == 0 {
		return nil, eris.New("render: no values to classify")
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	breaks := make([]float64, n)
	for i := 1; i <= n; i++ {
		p := float64(i) / float64(n)
		breaks[i-1] = stat.Quantile(p, stat.LinInterp, sorted, nil)
	}

	if distinct(breaks) < len(breaks) {
		return equalIntervalBreaks(sorted[0], sorted[len(sorted)-1], n), nil
	}
	return breaks, nil
}

func equalIntervalBreaks(min, max float64, n int) []float64 {
	breaks := make([]float64, n)
	step := (max - min) / float64(n)
	for i := 1; i <= n; i++ {
		breaks[i-1] = min + step*float64(i)
	}
	breaks[n-1] = max
	return breaks
}

func distinct(vals []float64) int {
	seen := make(map[float64]bool, len(vals))
	for _, v := range vals {
		seen[v] = true
	}
	return len(seen)
}

// ClassOf returns the index of the class whose upper bound first covers v.
// Values above the last break clamp to the last class.
func ClassOf(v float64, breaks []float64) int {
	for i, b := range breaks {
		if v <= b {
			return i
		}
	}
	return len(breaks) - 1
}
