package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/mromano1/equity-atlas/internal/acs"
	"github.com/mromano1/equity-atlas/internal/fetcher"
	"github.com/mromano1/equity-atlas/internal/pipeline"
	"github.com/mromano1/equity-atlas/internal/store"
)

// pipelineEnv holds the initialized store, clients, and pipeline needed by
// the data commands.
type pipelineEnv struct {
	Store    store.Store
	ACS      *acs.Client
	Fetcher  fetcher.Fetcher
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newBoundaryFetcher() fetcher.Fetcher {
	if cfg.Tiger.UseFTP {
		return fetcher.NewFTPFetcher(fetcher.FTPOptions{})
	}
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
}

// initEnv sets up the store, the ACS client, the boundary fetcher, and the
// pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	acsClient := acs.NewClient(httpFetcher, acs.Options{
		BaseURL: cfg.Census.BaseURL,
		APIKey:  cfg.Census.APIKey,
		Dataset: cfg.Census.Dataset,
	})
	boundaryFetcher := newBoundaryFetcher()

	return &pipelineEnv{
		Store:    st,
		ACS:      acsClient,
		Fetcher:  boundaryFetcher,
		Pipeline: pipeline.New(cfg, st, acsClient, boundaryFetcher),
	}, nil
}
