// Package acs fetches American Community Survey 5-year estimates from the
// Census Bureau API. The API returns JSON arrays of arrays: a header row of
// variable names followed by one row per geography.
package acs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mromano1/equity-atlas/internal/fetcher"
	"github.com/mromano1/equity-atlas/internal/geoid"
)

// DefaultBaseURL is the Census data API root.
const DefaultBaseURL = "https://api.census.gov/data"

// TractRecord is one tract's worth of ACS poverty statistics. Counts are the
// raw ACS estimates; GEOID is reconstructed from the state, county, and tract
// identifier fields with fixed-width zero padding.
type TractRecord struct {
	GEOID           string `json:"geoid"`
	Name            string `json:"name"`
	StateFIPS       string `json:"state_fips"`
	CountyFIPS      string `json:"county_fips"`
	TractCE         string `json:"tract_ce"`
	PovertyUniverse int64  `json:"poverty_universe"` // C17002_001E
	BelowHalf       int64  `json:"below_half"`       // C17002_002E
	HalfToOne       int64  `json:"half_to_one"`      // C17002_003E
	Population      int64  `json:"population"`       // B01003_001E
}

// Options configures the ACS client.
type Options struct {
	BaseURL string
	APIKey  string
	Dataset string // e.g. "acs/acs5"
}

// Client queries the ACS API through a Fetcher.
type Client struct {
	fetcher fetcher.Fetcher
	opts    Options
}

// NewClient creates an ACS client.
func NewClient(f fetcher.Fetcher, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Dataset == "" {
		opts.Dataset = "acs/acs5"
	}
	return &Client{fetcher: f, opts: opts}
}

// queryURL builds the tract-level query for one state. The wildcard county
// selector returns every tract in the state in a single response.
func (c *Client) queryURL(year int, stateFIPS string, codes []string) string {
	get := "NAME," + strings.Join(codes, ",")
	q := url.Values{}
	q.Set("get", get)
	q.Set("for", "tract:*")
	q.Set("in", fmt.Sprintf("state:%s county:*", stateFIPS))
	if c.opts.APIKey != "" {
		q.Set("key", c.opts.APIKey)
	}
	return fmt.Sprintf("%s/%d/%s?%s", c.opts.BaseURL, year, c.opts.Dataset, q.Encode())
}

// TractPoverty fetches the poverty variables for every tract in a state.
func (c *Client) TractPoverty(ctx context.Context, year int, stateFIPS string) ([]TractRecord, error) {
	codes, err := VariableCodes()
	if err != nil {
		return nil, err
	}

	u := c.queryURL(year, stateFIPS, codes)
	zap.L().Info("acs: fetching tract estimates",
		zap.Int("year", year),
		zap.String("state_fips", stateFIPS),
		zap.Strings("variables", codes),
	)

	body, err := c.fetcher.Download(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "acs: fetch year %d state %s", year, stateFIPS)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "acs: read response")
	}

	records, err := parseResponse(data)
	if err != nil {
		return nil, err
	}

	zap.L().Info("acs: fetched tract estimates",
		zap.String("state_fips", stateFIPS),
		zap.Int("tracts", len(records)),
	)
	return records, nil
}

// parseResponse decodes the array-of-arrays payload into tract records.
func parseResponse(data []byte) ([]TractRecord, error) {
	var raw [][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "acs: unmarshal response")
	}
	if len(raw) < 2 {
		return nil, nil // header only, no data rows
	}

	header := raw[0]
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}

	for _, required := range []string{"NAME", "state", "county", "tract"} {
		if _, ok := colIdx[required]; !ok {
			return nil, eris.Errorf("acs: response missing %q column", required)
		}
	}

	records := make([]TractRecord, 0, len(raw)-1)
	for _, row := range raw[1:] {
		state := col(row, colIdx, "state")
		county := col(row, colIdx, "county")
		tract := col(row, colIdx, "tract")

		g, err := geoid.Tract(state, county, tract)
		if err != nil {
			zap.L().Warn("acs: skipping row with malformed identifiers",
				zap.String("state", state),
				zap.String("county", county),
				zap.String("tract", tract),
				zap.Error(err),
			)
			continue
		}

		comps, err := geoid.Parse(g)
		if err != nil {
			continue
		}

		records = append(records, TractRecord{
			GEOID:           g,
			Name:            col(row, colIdx, "NAME"),
			StateFIPS:       comps.StateFIPS,
			CountyFIPS:      comps.CountyFIPS,
			TractCE:         comps.TractCE,
			PovertyUniverse: parseCount(col(row, colIdx, "C17002_001E")),
			BelowHalf:       parseCount(col(row, colIdx, "C17002_002E")),
			HalfToOne:       parseCount(col(row, colIdx, "C17002_003E")),
			Population:      parseCount(col(row, colIdx, "B01003_001E")),
		})
	}

	return records, nil
}

func col(row []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseCount converts an ACS count value to int64. Empty strings, "null",
// and the negative annotation sentinels (-666666666 and friends) become 0.
func parseCount(v string) int64 {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "null") {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
