// Package server exposes stored county results over HTTP: JSON and GeoJSON
// for the data, SVG for the map.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mromano1/equity-atlas/internal/config"
	"github.com/mromano1/equity-atlas/internal/equity"
	"github.com/mromano1/equity-atlas/internal/export"
	"github.com/mromano1/equity-atlas/internal/render"
	"github.com/mromano1/equity-atlas/internal/store"
)

// Server serves pipeline results from the store.
type Server struct {
	cfg   *config.Config
	store store.Store
}

// New creates a Server.
func New(cfg *config.Config, st store.Store) *Server {
	return &Server{cfg: cfg, store: st}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/runs", s.handleRuns)
	r.Get("/api/runs/{runID}", s.handleRun)
	r.Get("/api/counties", s.handleCounties)
	r.Get("/counties.geojson", s.handleGeoJSON)
	r.Get("/map.svg", s.handleMap)

	return r
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.Int("port", s.cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status:    store.RunStatus(r.URL.Query().Get("status")),
		StateFIPS: r.URL.Query().Get("state"),
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// countiesForRequest resolves the run selector: explicit run ID or the latest
// complete run.
func (s *Server) countiesForRequest(r *http.Request) ([]equity.County, error) {
	if runID := r.URL.Query().Get("run"); runID != "" {
		return s.store.ListCounties(r.Context(), runID)
	}
	return s.store.LatestCounties(r.Context())
}

func (s *Server) handleCounties(w http.ResponseWriter, r *http.Request) {
	counties, err := s.countiesForRequest(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if counties == nil {
		writeError(w, http.StatusNotFound, eris.New("no completed runs"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counties": counties})
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	counties, err := s.countiesForRequest(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if counties == nil {
		writeError(w, http.StatusNotFound, eris.New("no completed runs"))
		return
	}
	data, err := export.GeoJSON(counties)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	counties, err := s.countiesForRequest(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if counties == nil {
		writeError(w, http.StatusNotFound, eris.New("no completed runs"))
		return
	}

	title := s.cfg.Render.Title
	if title == "" {
		title = "Poverty rate by county"
	}
	svg, err := render.Choropleth(counties, render.Options{
		Width:   s.cfg.Render.Width,
		Height:  s.cfg.Render.Height,
		Classes: s.cfg.Render.Classes,
		Title:   title,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	zap.L().Warn("server: request failed", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
