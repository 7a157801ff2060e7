package geoid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTract_Pads(t *testing.T) {
	g, err := Tract("36", "5", "100")
	require.NoError(t, err)
	assert.Equal(t, "36005000100", g)
}

func TestTract_AlreadyPadded(t *testing.T) {
	g, err := Tract("36", "061", "018700")
	require.NoError(t, err)
	assert.Equal(t, "36061018700", g)
}

func TestTract_SingleDigitState(t *testing.T) {
	g, err := Tract("1", "73", "10500")
	require.NoError(t, err)
	assert.Equal(t, "01073010500", g)
}

func TestTract_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		state  string
		county string
		tract  string
	}{
		{"empty state", "", "061", "018700"},
		{"non-numeric county", "36", "0A1", "018700"},
		{"overwide tract", "36", "061", "0187001"},
		{"overwide state", "361", "061", "018700"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tract(tc.state, tc.county, tc.tract)
			assert.Error(t, err)
		})
	}
}

func TestCounty(t *testing.T) {
	g, err := County("36", "5")
	require.NoError(t, err)
	assert.Equal(t, "36005", g)
}

func TestParse_RoundTrip(t *testing.T) {
	c, err := Parse("36061018700")
	require.NoError(t, err)
	assert.Equal(t, "36", c.StateFIPS)
	assert.Equal(t, "061", c.CountyFIPS)
	assert.Equal(t, "018700", c.TractCE)
}

func TestParse_BadLength(t *testing.T) {
	_, err := Parse("3606101870")
	assert.Error(t, err)
}

func TestParse_NonNumeric(t *testing.T) {
	_, err := Parse("36061O18700")
	assert.Error(t, err)
}

func TestCountyOf(t *testing.T) {
	g, err := CountyOf("36005000100")
	require.NoError(t, err)
	assert.Equal(t, "36005", g)
}

func TestFIPSCodes(t *testing.T) {
	// Spot-check a few states.
	assert.Equal(t, "36", FIPSCodes["NY"])
	assert.Equal(t, "06", FIPSCodes["CA"])
	assert.Equal(t, "51", FIPSCodes["VA"])
}

func TestAbbrFromFIPS(t *testing.T) {
	abbr, ok := AbbrFromFIPS("36")
	assert.True(t, ok)
	assert.Equal(t, "NY", abbr)

	_, ok = AbbrFromFIPS("99")
	assert.False(t, ok)
}

func TestFIPSFromAbbr_CaseInsensitive(t *testing.T) {
	fips, ok := FIPSFromAbbr("ny")
	assert.True(t, ok)
	assert.Equal(t, "36", fips)
}

func TestAllStateFIPS_Sorted(t *testing.T) {
	fips := AllStateFIPS()
	assert.Len(t, fips, 51)
	for i := 1; i < len(fips); i++ {
		assert.True(t, fips[i-1] <= fips[i], "FIPS codes should be sorted")
	}
}
