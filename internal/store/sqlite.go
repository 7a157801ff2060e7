package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mromano1/equity-atlas/internal/acs"
	"github.com/mromano1/equity-atlas/internal/equity"
	"github.com/mromano1/equity-atlas/internal/tiger"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	year       INTEGER NOT NULL,
	state_fips TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS acs_tracts (
	year             INTEGER NOT NULL,
	geoid            TEXT NOT NULL,
	name             TEXT NOT NULL,
	state_fips       TEXT NOT NULL,
	county_fips      TEXT NOT NULL,
	tract_ce         TEXT NOT NULL,
	poverty_universe INTEGER NOT NULL,
	below_half       INTEGER NOT NULL,
	half_to_one      INTEGER NOT NULL,
	population       INTEGER NOT NULL,
	PRIMARY KEY (year, geoid)
);

CREATE TABLE IF NOT EXISTS tract_geoms (
	year        INTEGER NOT NULL,
	geoid       TEXT NOT NULL,
	state_fips  TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	tract_ce    TEXT NOT NULL,
	name        TEXT NOT NULL,
	aland       INTEGER NOT NULL,
	awater      INTEGER NOT NULL,
	geom        BLOB,
	PRIMARY KEY (year, geoid)
);

CREATE TABLE IF NOT EXISTS county_stats (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	geoid            TEXT NOT NULL,
	name             TEXT NOT NULL,
	state_fips       TEXT NOT NULL,
	county_fips      TEXT NOT NULL,
	tracts           INTEGER NOT NULL,
	poverty_universe INTEGER NOT NULL,
	below_half       INTEGER NOT NULL,
	half_to_one      INTEGER NOT NULL,
	population       INTEGER NOT NULL,
	aland            INTEGER NOT NULL,
	awater           INTEGER NOT NULL,
	poverty_rate     REAL NOT NULL,
	geom             BLOB,
	PRIMARY KEY (run_id, geoid)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state_fips);
CREATE INDEX IF NOT EXISTS idx_acs_tracts_state ON acs_tracts(year, state_fips);
CREATE INDEX IF NOT EXISTS idx_tract_geoms_state ON tract_geoms(year, state_fips);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, year int, stateFIPS string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, year, state_fips, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, year, stateFIPS, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status RunStatus, summary *RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(status), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, year, state_fips, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, year, state_fips, status, summary, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.StateFIPS != "" {
		query += ` AND state_fips = ?`
		args = append(args, filter.StateFIPS)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveTracts(ctx context.Context, year int, stateFIPS string, records []acs.TractRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save tracts")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM acs_tracts WHERE year = ? AND state_fips = ?`, year, stateFIPS,
	); err != nil {
		return eris.Wrap(err, "sqlite: clear tracts")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO acs_tracts (year, geoid, name, state_fips, county_fips, tract_ce,
			poverty_universe, below_half, half_to_one, population)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert tract")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			year, r.GEOID, r.Name, r.StateFIPS, r.CountyFIPS, r.TractCE,
			r.PovertyUniverse, r.BelowHalf, r.HalfToOne, r.Population,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert tract %s", r.GEOID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save tracts")
}

func (s *SQLiteStore) LoadTracts(ctx context.Context, year int, stateFIPS string) ([]acs.TractRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT geoid, name, state_fips, county_fips, tract_ce,
			poverty_universe, below_half, half_to_one, population
		 FROM acs_tracts WHERE year = ? AND state_fips = ? ORDER BY geoid`,
		year, stateFIPS,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load tracts")
	}
	defer rows.Close()

	var records []acs.TractRecord
	for rows.Next() {
		var r acs.TractRecord
		if err := rows.Scan(&r.GEOID, &r.Name, &r.StateFIPS, &r.CountyFIPS, &r.TractCE,
			&r.PovertyUniverse, &r.BelowHalf, &r.HalfToOne, &r.Population,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tract")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: load tracts iterate")
}

func (s *SQLiteStore) SaveBoundaries(ctx context.Context, year int, boundaries []tiger.Boundary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save boundaries")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO tract_geoms (year, geoid, state_fips, county_fips, tract_ce, name, aland, awater, geom)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert boundary")
	}
	defer stmt.Close()

	for _, b := range boundaries {
		wkb, err := encodeGeom(b.Geom)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode boundary %s", b.GEOID)
		}
		if _, err := stmt.ExecContext(ctx,
			year, b.GEOID, b.StateFP, b.CountyFP, b.TractCE, b.Name, b.ALand, b.AWater, wkb,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert boundary %s", b.GEOID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save boundaries")
}

func (s *SQLiteStore) LoadBoundaries(ctx context.Context, year int, stateFIPS string) ([]tiger.Boundary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT geoid, state_fips, county_fips, tract_ce, name, aland, awater, geom
		 FROM tract_geoms WHERE year = ? AND state_fips = ? ORDER BY geoid`,
		year, stateFIPS,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load boundaries")
	}
	defer rows.Close()

	var boundaries []tiger.Boundary
	for rows.Next() {
		var (
			b   tiger.Boundary
			wkb []byte
		)
		if err := rows.Scan(&b.GEOID, &b.StateFP, &b.CountyFP, &b.TractCE, &b.Name, &b.ALand, &b.AWater, &wkb); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan boundary")
		}
		if b.Geom, err = decodeGeom(wkb); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode boundary %s", b.GEOID)
		}
		boundaries = append(boundaries, b)
	}
	return boundaries, eris.Wrap(rows.Err(), "sqlite: load boundaries iterate")
}

func (s *SQLiteStore) SaveCounties(ctx context.Context, runID string, counties []equity.County) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save counties")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO county_stats (run_id, geoid, name, state_fips, county_fips, tracts,
			poverty_universe, below_half, half_to_one, population, aland, awater, poverty_rate, geom)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert county")
	}
	defer stmt.Close()

	for _, c := range counties {
		wkb, err := encodeGeom(c.Geom)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode county %s", c.GEOID)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, c.GEOID, c.Name, c.StateFIPS, c.CountyFIPS, c.Tracts,
			c.PovertyUniverse, c.BelowHalf, c.HalfToOne, c.Population,
			c.ALand, c.AWater, c.PovertyRate, wkb,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert county %s", c.GEOID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save counties")
}

func (s *SQLiteStore) ListCounties(ctx context.Context, runID string) ([]equity.County, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT geoid, name, state_fips, county_fips, tracts,
			poverty_universe, below_half, half_to_one, population, aland, awater, poverty_rate, geom
		 FROM county_stats WHERE run_id = ? ORDER BY geoid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list counties")
	}
	defer rows.Close()
	return scanCounties(rows)
}

func (s *SQLiteStore) LatestCounties(ctx context.Context) ([]equity.County, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE status = ? ORDER BY created_at DESC LIMIT 1`,
		string(RunStatusComplete),
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest run")
	}
	return s.ListCounties(ctx, runID)
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r           Run
		summaryJSON sql.NullString
	)
	err := row.Scan(&r.ID, &r.Year, &r.StateFIPS, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(err, "sqlite: run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if summaryJSON.Valid && summaryJSON.String != "" && summaryJSON.String != "null" {
		r.Summary = &RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}

func scanCounties(rows *sql.Rows) ([]equity.County, error) {
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
			return nil, eris.Wrap(err, "sqlite: scan county")
		}
		if c.Geom, err = decodeGeom(wkb); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode county %s", c.GEOID)
		}
		counties = append(counties, c)
	}
	return counties, eris.Wrap(rows.Err(), "sqlite: counties iterate")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}
