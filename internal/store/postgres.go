package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mromano1/equity-atlas/internal/acs"
	"github.com/mromano1/equity-atlas/internal/equity"
	"github.com/mromano1/equity-atlas/internal/tiger"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock implements it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	year       INTEGER NOT NULL,
	state_fips TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS acs_tracts (
	year             INTEGER NOT NULL,
	geoid            TEXT NOT NULL,
	name             TEXT NOT NULL,
	state_fips       TEXT NOT NULL,
	county_fips      TEXT NOT NULL,
	tract_ce         TEXT NOT NULL,
	poverty_universe BIGINT NOT NULL,
	below_half       BIGINT NOT NULL,
	half_to_one      BIGINT NOT NULL,
	population       BIGINT NOT NULL,
	PRIMARY KEY (year, geoid)
);

CREATE TABLE IF NOT EXISTS tract_geoms (
	year        INTEGER NOT NULL,
	geoid       TEXT NOT NULL,
	state_fips  TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	tract_ce    TEXT NOT NULL,
	name        TEXT NOT NULL,
	aland       BIGINT NOT NULL,
	awater      BIGINT NOT NULL,
	geom        BYTEA,
	PRIMARY KEY (year, geoid)
);

CREATE TABLE IF NOT EXISTS county_stats (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	geoid            TEXT NOT NULL,
	name             TEXT NOT NULL,
	state_fips       TEXT NOT NULL,
	county_fips      TEXT NOT NULL,
	tracts           INTEGER NOT NULL,
	poverty_universe BIGINT NOT NULL,
	below_half       BIGINT NOT NULL,
	half_to_one      BIGINT NOT NULL,
	population       BIGINT NOT NULL,
	aland            BIGINT NOT NULL,
	awater           BIGINT NOT NULL,
	poverty_rate     DOUBLE PRECISION NOT NULL,
	geom             BYTEA,
	PRIMARY KEY (run_id, geoid)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state_fips);
CREATE INDEX IF NOT EXISTS idx_acs_tracts_state ON acs_tracts(year, state_fips);
CREATE INDEX IF NOT EXISTS idx_tract_geoms_state ON tract_geoms(year, state_fips);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, year int, stateFIPS string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, year, state_fips, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, year, stateFIPS, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &Run{
		ID:        id,
		Year:      year,
		StateFIPS: stateFIPS,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status RunStatus, summary *RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		string(status), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, year, state_fips, status, summary, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanPgRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, year, state_fips, status, summary, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.StateFIPS != "" {
		args = append(args, filter.StateFIPS)
		query += ` AND state_fips = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveTracts(ctx context.Context, year int, stateFIPS string, records []acs.TractRecord) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM acs_tracts WHERE year = $1 AND state_fips = $2`, year, stateFIPS,
	); err != nil {
		return eris.Wrap(err, "postgres: clear tracts")
	}

	for _, r := range records {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO acs_tracts (year, geoid, name, state_fips, county_fips, tract_ce,
				poverty_universe, below_half, half_to_one, population)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			year, r.GEOID, r.Name, r.StateFIPS, r.CountyFIPS, r.TractCE,
			r.PovertyUniverse, r.BelowHalf, r.HalfToOne, r.Population,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert tract %s", r.GEOID)
		}
	}
	return nil
}

func (s *PostgresStore) LoadTracts(ctx context.Context, year int, stateFIPS string) ([]acs.TractRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT geoid, name, state_fips, county_fips, tract_ce,
			poverty_universe, below_half, half_to_one, population
		 FROM acs_tracts WHERE year = $1 AND state_fips = $2 ORDER BY geoid`,
		year, stateFIPS,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load tracts")
	}
	defer rows.Close()

	var records []acs.TractRecord
	for rows.Next() {
		var r acs.TractRecord
		if err := rows.Scan(&r.GEOID, &r.Name, &r.StateFIPS, &r.CountyFIPS, &r.TractCE,
			&r.PovertyUniverse, &r.BelowHalf, &r.HalfToOne, &r.Population,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tract")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: load tracts iterate")
}

func (s *PostgresStore) SaveBoundaries(ctx context.Context, year int, boundaries []tiger.Boundary) error {
	for _, b := range boundaries {
		wkb, err := encodeGeom(b.Geom)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode boundary %s", b.GEOID)
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO tract_geoms (year, geoid, state_fips, county_fips, tract_ce, name, aland, awater, geom)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (year, geoid) DO UPDATE SET
				state_fips = EXCLUDED.state_fips, county_fips = EXCLUDED.county_fips,
				tract_ce = EXCLUDED.tract_ce, name = EXCLUDED.name,
				aland = EXCLUDED.aland, awater = EXCLUDED.awater, geom = EXCLUDED.geom`,
			year, b.GEOID, b.StateFP, b.CountyFP, b.TractCE, b.Name, b.ALand, b.AWater, wkb,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert boundary %s", b.GEOID)
		}
	}
	return nil
}

func (s *PostgresStore) LoadBoundaries(ctx context.Context, year int, stateFIPS string) ([]tiger.Boundary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT geoid, state_fips, county_fips, tract_ce, name, aland, awater, geom
		 FROM tract_geoms WHERE year = $1 AND state_fips = $2 ORDER BY geoid`,
		year, stateFIPS,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load boundaries")
	}
	defer rows.Close()

	var boundaries []tiger.Boundary
	for rows.Next() {
		var (
			b   tiger.Boundary
			wkb []byte
		)
		if err := rows.Scan(&b.GEOID, &b.StateFP, &b.CountyFP, &b.TractCE, &b.Name, &b.ALand, &b.AWater, &wkb); err != nil {
			return nil, eris.Wrap(err, "postgres: scan boundary")
		}
		if b.Geom, err = decodeGeom(wkb); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode boundary %s", b.GEOID)
		}
		boundaries = append(boundaries, b)
	}
	return boundaries, eris.Wrap(rows.Err(), "postgres: load boundaries iterate")
}

func (s *PostgresStore) SaveCounties(ctx context.Context, runID string, counties []equity.County) error {
	for _, c := range counties {
		wkb, err := encodeGeom(c.Geom)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode county %s", c.GEOID)
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO county_stats (run_id, geoid, name, state_fips, county_fips, tracts,
				poverty_universe, below_half, half_to_one, population, aland, awater, poverty_rate, geom)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			runID, c.GEOID, c.Name, c.StateFIPS, c.CountyFIPS, c.Tracts,
			c.PovertyUniverse, c.BelowHalf, c.HalfToOne, c.Population,
			c.ALand, c.AWater, c.PovertyRate, wkb,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert county %s", c.GEOID)
		}
	}
	return nil
}

func (s *PostgresStore) ListCounties(ctx context.Context, runID string) ([]equity.County, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT geoid, name, state_fips, county_fips, tracts,
			poverty_universe, below_half, half_to_one, population, aland, awater, poverty_rate, geom
		 FROM county_stats WHERE run_id = $1 ORDER BY geoid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list counties")
	}
	defer rows.Close()
	return scanPgCounties(rows)
}

func (s *PostgresStore) LatestCounties(ctx context.Context) ([]equity.County, error) {
	var runID string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM runs WHERE status = $1 ORDER BY created_at DESC LIMIT 1`,
		string(RunStatusComplete),
	).Scan(&runID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest run")
	}
	return s.ListCounties(ctx, runID)
}

func scanPgRun(row pgx.Row) (*Run, error) {
	var (
		r           Run
		summaryJSON []byte
	)
	err := row.Scan(&r.ID, &r.Year, &r.StateFIPS, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if len(summaryJSON) > 0 && string(summaryJSON) != "null" {
		r.Summary = &RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}

func scanPgCounties(rows pgx.Rows) ([]equity.County, error) {
	var counties []equity.County
	for rows.Next() {
		var (
			c   equity.County
			wkb []byte
			err error
		)
		if err = rows.Scan(&c.GEOID, &c.Name, &c.StateFIPS, &c.CountyFIPS, &c.Tracts,
			&c.PovertyUniverse, &c.BelowHalf, &c.HalfToOne, &c.Population,
			&c.ALand, &c.AWater, &c.PovertyRate, &wkb,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan county")
		}
		if c.Geom, err = decodeGeom(wkb); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode county %s", c.GEOID)
		}
		counties = append(counties, c)
	}
	return counties, eris.Wrap(rows.Err(), "postgres: counties iterate")
}

