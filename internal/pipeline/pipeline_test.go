package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/mromano1/equity-atlas/internal/acs"
	"github.com/mromano1/equity-atlas/internal/config"
	"github.com/mromano1/equity-atlas/internal/store"
	"github.com/mromano1/equity-atlas/internal/tiger"
)

type fakeACS struct {
	records []acs.TractRecord
	err     error
	calls   int
}

func (f *fakeACS) TractPoverty(ctx context.Context, year int, stateFIPS string) ([]acs.TractRecord, error) {
	f.calls++
	return f.records, f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Census: config.Census{Year: 2019, StateFIPS: "36"},
		Tiger:  config.Tiger{CacheDir: filepath.Join(dir, "tiger")},
		Render: config.Render{Width: 400, Height: 300, Classes: 2},
		Export: config.Export{Dir: filepath.Join(dir, "out"), BaseName: "counties", Formats: "csv,geojson"},
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func tractRecord(geoid, name string) acs.TractRecord {
	return acs.TractRecord{
		GEOID: geoid, Name: name,
		StateFIPS: geoid[:2], CountyFIPS: geoid[2:5], TractCE: geoid[5:],
		PovertyUniverse: 4000, BelowHalf: 300, HalfToOne: 500, Population: 4100,
	}
}

func tractBoundary(geoid string, minX, minY float64) tiger.Boundary {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	poly := geom.NewPolygon(geom.XY)
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		minX, minY, minX + 0.01, minY, minX + 0.01, minY + 0.01, minX, minY + 0.01, minX, minY,
	})
	if err := poly.Push(ring); err != nil {
		panic(err)
	}
	if err := mp.Push(poly); err != nil {
		panic(err)
	}
	return tiger.Boundary{
		GEOID: geoid, StateFP: geoid[:2], CountyFP: geoid[2:5], TractCE: geoid[5:],
		ALand: 100, AWater: 10, Geom: mp,
	}
}

func seedInputs(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.SaveTracts(ctx, 2019, "36", []acs.TractRecord{
		tractRecord("36005000100", "Census Tract 1, Bronx County, New York"),
		tractRecord("36005000200", "Census Tract 2, Bronx County, New York"),
		tractRecord("36047000100", "Census Tract 1, Kings County, New York"),
	}))
	require.NoError(t, st.SaveBoundaries(ctx, 2019, []tiger.Boundary{
		tractBoundary("36005000100", -73.93, 40.79),
		tractBoundary("36005000200", -73.92, 40.79),
		tractBoundary("36047000100", -73.99, 40.64),
	}))
}

func TestPipeline_Run_CachedInputs(t *testing.T) {
	cfg := testConfig(t)
	st := newTestStore(t)
	seedInputs(t, st)

	// The ACS client errors if called; cached inputs must make it unreachable.
	acsClient := &fakeACS{err: eris.New("api down")}
	p := New(cfg, st, acsClient, nil)

	result, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Zero(t, acsClient.calls)

	assert.Equal(t, 3, result.Summary.Tracts)
	assert.Equal(t, 3, result.Summary.Matched)
	assert.Equal(t, 2, result.Summary.Counties)
	require.Len(t, result.Counties, 2)
	assert.Equal(t, "36005", result.Counties[0].GEOID)
	assert.InDelta(t, float64(800*2)/float64(4100*2)*100, result.Counties[0].PovertyRate, 1e-9)

	// Map and exports on disk.
	_, err = os.Stat(result.MapPath)
	assert.NoError(t, err)
	require.Len(t, result.Exports, 2)
	for _, e := range result.Exports {
		assert.NoError(t, e.Err)
		_, statErr := os.Stat(e.Path)
		assert.NoError(t, statErr)
	}

	// Run recorded as complete with counties persisted.
	run, err := st.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 2, run.Summary.Counties)

	saved, err := st.ListCounties(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestPipeline_Run_SkipOutputs(t *testing.T) {
	cfg := testConfig(t)
	st := newTestStore(t)
	seedInputs(t, st)

	p := New(cfg, st, &fakeACS{}, nil)
	result, err := p.Run(context.Background(), Options{SkipMap: true, SkipFiles: true})
	require.NoError(t, err)
	assert.Empty(t, result.MapPath)
	assert.Empty(t, result.Exports)
	assert.Empty(t, result.Summary.Outputs)
}

func TestPipeline_Run_ACSFailure(t *testing.T) {
	cfg := testConfig(t)
	st := newTestStore(t)

	p := New(cfg, st, &fakeACS{err: eris.New("api down")}, nil)
	_, err := p.Run(context.Background(), Options{})
	require.Error(t, err)

	// Failure recorded on the run.
	runs, err := st.ListRuns(context.Background(), store.RunFilter{Status: store.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].Summary)
	assert.Contains(t, runs[0].Summary.Error, "api down")
}

func TestPipeline_Run_RefreshBypassesCache(t *testing.T) {
	cfg := testConfig(t)
	st := newTestStore(t)
	seedInputs(t, st)

	// Refresh forces a new ACS fetch even though tracts are cached.
	acsClient := &fakeACS{err: eris.New("api down")}
	p := New(cfg, st, acsClient, nil)

	_, err := p.Run(context.Background(), Options{Refresh: true})
	require.Error(t, err)
	assert.Equal(t, 1, acsClient.calls)
}
