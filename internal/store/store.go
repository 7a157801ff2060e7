// Package store persists fetched tract data, dissolved county results, and
// pipeline run metadata. Two implementations are provided: SQLite for
// single-machine use and PostgreSQL for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/mromano1/equity-atlas/internal/acs"
	"github.com/mromano1/equity-atlas/internal/equity"
	"github.com/mromano1/equity-atlas/internal/tiger"
)

// RunStatus tracks a pipeline run through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary captures what a run produced.
type RunSummary struct {
	Tracts              int      `json:"tracts"`
	Boundaries          int      `json:"boundaries"`
	Matched             int      `json:"matched"`
	UnmatchedRecords    int      `json:"unmatched_records"`
	UnmatchedBoundaries int      `json:"unmatched_boundaries"`
	Counties            int      `json:"counties"`
	Outputs             []string `json:"outputs,omitempty"`
	Error               string   `json:"error,omitempty"`
}

// Run is one pipeline execution.
type Run struct {
	ID        string      `json:"id"`
	Year      int         `json:"year"`
	StateFIPS string      `json:"state_fips"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    RunStatus `json:"status,omitempty"`
	StateFIPS string    `json:"state_fips,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, year int, stateFIPS string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, status RunStatus, summary *RunSummary) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Tract inputs, cached per vintage and state
	SaveTracts(ctx context.Context, year int, stateFIPS string, records []acs.TractRecord) error
	LoadTracts(ctx context.Context, year int, stateFIPS string) ([]acs.TractRecord, error)
	SaveBoundaries(ctx context.Context, year int, boundaries []tiger.Boundary) error
	LoadBoundaries(ctx context.Context, year int, stateFIPS string) ([]tiger.Boundary, error)

	// County results per run
	SaveCounties(ctx context.Context, runID string, counties []equity.County) error
	ListCounties(ctx context.Context, runID string) ([]equity.County, error)
	LatestCounties(ctx context.Context) ([]equity.County, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
