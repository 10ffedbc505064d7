// Package server exposes the record store and the dashboard views over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/hivdash/hivdash/dataset"
	"github.com/arthur-debert/hivdash/hivdash/geo"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	maxUploadBytes    = 32 << 20
)

// Server serves the HTTP API. Every view reads the same cached dataset;
// every write goes through it so the cache is invalidated.
type Server struct {
	data   *dataset.Dataset
	world  *geo.World
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a server over store. A nil world uses the embedded sample.
func New(store types.Store, world *geo.World, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if world == nil {
		var err error
		if world, err = geo.Load(""); err != nil {
			return nil, err
		}
	}

	s := &Server{
		data:   dataset.New(store, logger),
		world:  world,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/records", s.handleListRecords)
	s.mux.HandleFunc("POST /api/records", s.handleCreateRecord)
	s.mux.HandleFunc("GET /api/records/{id}", s.handleGetRecord)
	s.mux.HandleFunc("PUT /api/records/{id}", s.handleUpdateRecord)
	s.mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)

	s.mux.HandleFunc("POST /api/import", s.handleImport)
	s.mux.HandleFunc("GET /api/export", s.handleExport)

	s.mux.HandleFunc("GET /api/views/maps/choropleth", s.viewHandler(ViewChoropleth))
	s.mux.HandleFunc("GET /api/views/maps/bubbles", s.viewHandler(ViewBubbles))
	s.mux.HandleFunc("GET /api/views/{view}", s.handleView)
	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	s.mux.HandleFunc("GET /charts/{file}", s.handleChart)
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return instrument(s.mux)
}

// Dataset returns the cache the server reads from.
func (s *Server) Dataset() *dataset.Dataset {
	return s.data
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
