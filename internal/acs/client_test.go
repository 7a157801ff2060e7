package acs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/mromano1/equity-atlas/internal/fetcher"
)

const sampleResponse = `[
["NAME","C17002_001E","C17002_002E","C17002_003E","B01003_001E","state","county","tract"],
["Census Tract 1, Bronx County, New York","4123","350","612","4201","36","5","100"],
["Census Tract 187, New York County, New York","2980","120","240","3010","36","061","018700"]
]`

func testClient(srv *httptest.Server, key string) *Client {
	u, _ := url.Parse(srv.URL)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		RateLimiters: map[string]*rate.Limiter{u.Host: rate.NewLimiter(rate.Inf, 1)},
	})
	return NewClient(f, Options{BaseURL: srv.URL, APIKey: key})
}

func TestTractPoverty(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		assert.Equal(t, "/2019/acs/acs5", r.URL.Path)
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := testClient(srv, "secret-key")
	records, err := c.TractPoverty(context.Background(), 2019, "36")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "NAME,C17002_001E,C17002_002E,C17002_003E,B01003_001E", gotQuery.Get("get"))
	assert.Equal(t, "tract:*", gotQuery.Get("for"))
	assert.Equal(t, "state:36 county:*", gotQuery.Get("in"))
	assert.Equal(t, "secret-key", gotQuery.Get("key"))

	// Unpadded county "5" and tract "100" are zero-padded on ingest.
	first := records[0]
	assert.Equal(t, "36005000100", first.GEOID)
	assert.Equal(t, "36", first.StateFIPS)
	assert.Equal(t, "005", first.CountyFIPS)
	assert.Equal(t, "000100", first.TractCE)
	assert.Equal(t, int64(4123), first.PovertyUniverse)
	assert.Equal(t, int64(350), first.BelowHalf)
	assert.Equal(t, int64(612), first.HalfToOne)
	assert.Equal(t, int64(4201), first.Population)

	assert.Equal(t, "36061018700", records[1].GEOID)
}

func TestTractPoverty_NoKeyOmitsParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("key"))
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := testClient(srv, "")
	_, err := c.TractPoverty(context.Background(), 2019, "36")
	require.NoError(t, err)
}

func TestParseResponse_SentinelsAndNulls(t *testing.T) {
	payload := `[
["NAME","C17002_001E","C17002_002E","C17002_003E","B01003_001E","state","county","tract"],
["Tract X","-666666666","null","","120","36","047","000200"]
]`
	records, err := parseResponse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Zero(t, r.PovertyUniverse)
	assert.Zero(t, r.BelowHalf)
	assert.Zero(t, r.HalfToOne)
	assert.Equal(t, int64(120), r.Population)
}

func TestParseResponse_SkipsMalformedIdentifiers(t *testing.T) {
	payload := `[
["NAME","C17002_001E","C17002_002E","C17002_003E","B01003_001E","state","county","tract"],
["Bad","1","1","1","1","36","ABC","000100"],
["Good","1","1","1","1","36","047","000200"]
]`
	records, err := parseResponse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "36047000200", records[0].GEOID)
}

func TestParseResponse_HeaderOnly(t *testing.T) {
	payload := `[["NAME","C17002_001E","C17002_002E","C17002_003E","B01003_001E","state","county","tract"]]`
	records, err := parseResponse([]byte(payload))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseResponse_MissingColumn(t *testing.T) {
	payload := `[["NAME","C17002_001E"],["Tract","1"]]`
	_, err := parseResponse([]byte(payload))
	assert.Error(t, err)
}

func TestParseResponse_NotJSON(t *testing.T) {
	_, err := parseResponse([]byte("<html>error</html>"))
	assert.Error(t, err)
}

func TestVariables(t *testing.T) {
	vars, err := Variables()
	require.NoError(t, err)
	require.Len(t, vars, 4)
	assert.Equal(t, "C17002_001E", vars[0].Code)
	assert.Equal(t, "B01003_001E", vars[3].Code)

	codes, err := VariableCodes()
	require.NoError(t, err)
	assert.Equal(t, []string{"C17002_001E", "C17002_002E", "C17002_003E", "B01003_001E"}, codes)
}
