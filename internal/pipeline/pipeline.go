// Package pipeline runs the end-to-end flow: fetch ACS poverty statistics,
// download and parse tract boundaries, join them by GEOID, dissolve tracts
// into counties, then render and export the results.
package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mromano1/equity-atlas/internal/acs"
	"github.com/mromano1/equity-atlas/internal/config"
	"github.com/mromano1/equity-atlas/internal/equity"
	"github.com/mromano1/equity-atlas/internal/export"
	"github.com/mromano1/equity-atlas/internal/fetcher"
	"github.com/mromano1/equity-atlas/internal/render"
	"github.com/mromano1/equity-atlas/internal/store"
	"github.com/mromano1/equity-atlas/internal/tiger"
)

// ACSClient fetches tract-level poverty statistics.
type ACSClient interface {
	TractPoverty(ctx context.Context, year int, stateFIPS string) ([]acs.TractRecord, error)
}

// Pipeline orchestrates one run. Stages execute sequentially; each stage's
// output feeds the next.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	acs     ACSClient
	fetcher fetcher.Fetcher
}

// Options toggles stage behavior for a run.
type Options struct {
	Refresh   bool // ignore cached inputs in the store
	SkipMap   bool
	SkipFiles bool
}

// Result is what a completed run produced.
type Result struct {
	RunID    string
	Counties []equity.County
	Summary  store.RunSummary
	MapPath  string
	Exports  []export.Result
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, st store.Store, acsClient ACSClient, f fetcher.Fetcher) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		acs:     acsClient,
		fetcher: f,
	}
}

// Run executes the full pipeline for the configured year and state.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	year := p.cfg.Census.Year
	stateFIPS := p.cfg.Census.StateFIPS
	log := zap.L().With(zap.Int("year", year), zap.String("state", stateFIPS))
	log.Info("pipeline: starting run")

	run, err := p.store.CreateRun(ctx, year, stateFIPS)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	result, err := p.execute(ctx, run.ID, opts, log)
	if err != nil {
		failSummary := &store.RunSummary{Error: err.Error()}
		if result != nil {
			failSummary = &result.Summary
			failSummary.Error = err.Error()
		}
		if completeErr := p.store.CompleteRun(ctx, run.ID, store.RunStatusFailed, failSummary); completeErr != nil {
			log.Warn("pipeline: failed to record failure", zap.Error(completeErr))
		}
		return nil, err
	}

	result.RunID = run.ID
	if err := p.store.CompleteRun(ctx, run.ID, store.RunStatusComplete, &result.Summary); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}
	log.Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("counties", result.Summary.Counties),
	)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string, opts Options, log *zap.Logger) (*Result, error) {
	year := p.cfg.Census.Year
	stateFIPS := p.cfg.Census.StateFIPS
	result := &Result{}

	records, err := p.loadTracts(ctx, year, stateFIPS, opts.Refresh, log)
	if err != nil {
		return nil, err
	}
	result.Summary.Tracts = len(records)

	boundaries, err := p.loadBoundaries(ctx, year, stateFIPS, opts.Refresh, log)
	if err != nil {
		return result, err
	}
	result.Summary.Boundaries = len(boundaries)

	features, report := equity.Join(records, boundaries)
	result.Summary.Matched = report.Matched
	result.Summary.UnmatchedRecords = report.UnmatchedRecords
	result.Summary.UnmatchedBoundaries = report.UnmatchedBoundaries

	counties := equity.ComputeRates(equity.DissolveByCounty(features))
	result.Counties = counties
	result.Summary.Counties = len(counties)

	if err := p.store.SaveCounties(ctx, runID, counties); err != nil {
		return result, eris.Wrap(err, "pipeline: save counties")
	}

	if !opts.SkipMap {
		path, err := p.renderMap(counties)
		if err != nil {
			return result, err
		}
		result.MapPath = path
		result.Summary.Outputs = append(result.Summary.Outputs, path)
	}

	if !opts.SkipFiles {
		formats, err := export.ParseFormats(p.cfg.Export.Formats)
		if err != nil {
			return result, err
		}
		results := export.Export(counties, p.cfg.Export.Dir, p.cfg.Export.BaseName, formats)
		result.Exports = results
		for _, r := range results {
			if r.Err == nil {
				result.Summary.Outputs = append(result.Summary.Outputs, r.Path)
			}
		}
		if err := export.FirstError(results); err != nil {
			return result, eris.Wrap(err, "pipeline: export")
		}
	}

	return result, nil
}

func (p *Pipeline) loadTracts(ctx context.Context, year int, stateFIPS string, refresh bool, log *zap.Logger) ([]acs.TractRecord, error) {
	if !refresh {
		cached, err := p.store.LoadTracts(ctx, year, stateFIPS)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load cached tracts")
		}
		if len(cached) > 0 {
			log.Info("pipeline: using cached ACS tracts", zap.Int("tracts", len(cached)))
			return cached, nil
		}
	}

	records, err := p.acs.TractPoverty(ctx, year, stateFIPS)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch ACS")
	}
	if err := p.store.SaveTracts(ctx, year, stateFIPS, records); err != nil {
		return nil, eris.Wrap(err, "pipeline: save tracts")
	}
	return records, nil
}

func (p *Pipeline) loadBoundaries(ctx context.Context, year int, stateFIPS string, refresh bool, log *zap.Logger) ([]tiger.Boundary, error) {
	if !refresh {
		cached, err := p.store.LoadBoundaries(ctx, year, stateFIPS)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load cached boundaries")
		}
		if len(cached) > 0 {
			log.Info("pipeline: using cached boundaries", zap.Int("boundaries", len(cached)))
			return cached, nil
		}
	}

	url := tiger.DownloadURL(tiger.TractProduct(), year, stateFIPS)
	if p.cfg.Tiger.UseFTP {
		url = tiger.FTPMirrorURL(tiger.TractProduct(), year, stateFIPS)
	}
	shpPath, err := tiger.Download(ctx, p.fetcher, url, p.cfg.Tiger.CacheDir)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: download boundaries")
	}
	boundaries, err := tiger.ParseTracts(shpPath)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: parse boundaries")
	}
	if err := p.store.SaveBoundaries(ctx, year, boundaries); err != nil {
		return nil, eris.Wrap(err, "pipeline: save boundaries")
	}
	return boundaries, nil
}

func (p *Pipeline) renderMap(counties []equity.County) (string, error) {
	title := p.cfg.Render.Title
	if title == "" {
		title = "Poverty rate by county"
	}
	svg, err := render.Choropleth(counties, render.Options{
		Width:   p.cfg.Render.Width,
		Height:  p.cfg.Render.Height,
		Classes: p.cfg.Render.Classes,
		Title:   title,
	})
	if err != nil {
		return "", eris.Wrap(err, "pipeline: render map")
	}

	if err := os.MkdirAll(p.cfg.Export.Dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "pipeline: create output dir %s", p.cfg.Export.Dir)
	}
	path := filepath.Join(p.cfg.Export.Dir, p.cfg.Export.BaseName+".svg")
	if err := os.WriteFile(path, svg, 0o644); err != nil {
		return "", eris.Wrapf(err, "pipeline: write %s", path)
	}
	return path, nil
}
