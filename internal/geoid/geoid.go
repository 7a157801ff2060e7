// Package geoid builds and parses Census geographic identifiers. A tract
// GEOID is the concatenation of the 2-digit state FIPS, 3-digit county FIPS,
// and 6-digit tract code; the county GEOID is the first five digits.
package geoid

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	stateLen  = 2
	countyLen = 3
	tractLen  = 6

	// TractLen is the length of a full tract GEOID.
	TractLen = stateLen + countyLen + tractLen
	// CountyLen is the length of a county GEOID.
	CountyLen = stateLen + countyLen
)

// Tract builds an 11-digit tract GEOID from its components, zero-padding
// each to its fixed width. Components must be numeric and no wider than
// their field.
func Tract(state, county, tract string) (string, error) {
	s, err := pad(state, stateLen, "state")
	if err != nil {
		return "", err
	}
	c, err := pad(county, countyLen, "county")
	if err != nil {
		return "", err
	}
	t, err := pad(tract, tractLen, "tract")
	if err != nil {
		return "", err
	}
	return s + c + t, nil
}

// County builds a 5-digit county GEOID from state and county FIPS codes.
func County(state, county string) (string, error) {
	s, err := pad(state, stateLen, "state")
	if err != nil {
		return "", err
	}
	c, err := pad(county, countyLen, "county")
	if err != nil {
		return "", err
	}
	return s + c, nil
}

// Components holds the parsed pieces of a tract GEOID.
type Components struct {
	StateFIPS  string
	CountyFIPS string
	TractCE    string
}

// Parse splits an 11-digit tract GEOID back into its components.
func Parse(geoid string) (Components, error) {
	if len(geoid) != TractLen {
		return Components{}, eris.Errorf("geoid: expected %d digits, got %q", TractLen, geoid)
	}
	if !digits(geoid) {
		return Components{}, eris.Errorf("geoid: non-numeric identifier %q", geoid)
	}
	return Components{
		StateFIPS:  geoid[:stateLen],
		CountyFIPS: geoid[stateLen : stateLen+countyLen],
		TractCE:    geoid[stateLen+countyLen:],
	}, nil
}

// CountyOf returns the 5-digit county prefix of a tract GEOID.
func CountyOf(tractGEOID string) (string, error) {
	c, err := Parse(tractGEOID)
	if err != nil {
		return "", err
	}
	return c.StateFIPS + c.CountyFIPS, nil
}

// pad left-pads a numeric component with zeros to the given width.
func pad(v string, width int, field string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", eris.Errorf("geoid: empty %s component", field)
	}
	if !digits(v) {
		return "", eris.Errorf("geoid: non-numeric %s component %q", field, v)
	}
	if len(v) > width {
		return "", eris.Errorf("geoid: %s component %q wider than %d digits", field, v, width)
	}
	return strings.Repeat("0", width-len(v)) + v, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// FIPSCodes maps state abbreviation to 2-digit FIPS code for all 50 states + DC.
var FIPSCodes = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
	"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
	"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
	"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
	"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
	"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
	"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
	"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
	"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
	"WY": "56",
}

// abbrByFIPS is a reverse lookup from FIPS code to state abbreviation.
var abbrByFIPS map[string]string

func init() {
	abbrByFIPS = make(map[string]string, len(FIPSCodes))
	for abbr, fips := range FIPSCodes {
		abbrByFIPS[fips] = abbr
	}
}

// AbbrFromFIPS returns the state abbreviation for a FIPS code.
func AbbrFromFIPS(fips string) (string, bool) {
	abbr, ok := abbrByFIPS[fips]
	return abbr, ok
}

// FIPSFromAbbr returns the FIPS code for a state abbreviation.
func FIPSFromAbbr(abbr string) (string, bool) {
	fips, ok := FIPSCodes[strings.ToUpper(abbr)]
	return fips, ok
}

// AllStateFIPS returns a sorted list of all state FIPS codes.
func AllStateFIPS() []string {
	codes := make([]string, 0, len(FIPSCodes))
	for _, fips := range FIPSCodes {
		codes = append(codes, fips)
	}
	sort.Strings(codes)
	return codes
}
