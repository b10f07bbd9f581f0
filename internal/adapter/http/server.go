package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SnapshotProvider returns the snapshot to serve, or nil if none is built yet.
type SnapshotProvider interface {
	Snapshot() *domain.Snapshot
}

// Server exposes health, readiness, metrics, and aggregate API endpoints.
type Server struct {
	httpServer *http.Server
	snapshots  SnapshotProvider
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 aggregate routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, snapshots SnapshotProvider, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		snapshots: snapshots,
		metrics:   metrics,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/detections", s.withSnapshot(groupingDetections, s.handleDetections))
	mux.HandleFunc("GET /api/v1/aggregates/by-date", s.withSnapshot(groupingDate, s.handleByDate))
	mux.HandleFunc("GET /api/v1/aggregates/by-grid", s.withSnapshot(groupingGrid, s.handleByGrid))
	mux.HandleFunc("GET /api/v1/aggregates/by-region", s.withSnapshot(groupingRegion, s.handleByRegion))
	mux.HandleFunc("GET /api/v1/summary", s.withSnapshot(groupingSummary, s.handleSummary))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type snapshotHandler func(w http.ResponseWriter, r *http.Request, snap *domain.Snapshot)

// withSnapshot resolves the current snapshot once per request so that a
// concurrent refresh cannot mix two snapshots in one response.
func (s *Server) withSnapshot(grouping string, h snapshotHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.snapshots.Snapshot()
		if snap == nil {
			writeError(w, http.StatusServiceUnavailable, "no detection snapshot built yet")
			return
		}
		s.metrics.AggregationRequests.WithLabelValues(grouping).Inc()
		w.Header().Set("X-Snapshot-Built-At", snap.BuiltAt().Format(time.RFC3339))
		h(w, r, snap)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
