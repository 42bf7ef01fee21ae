package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/ondemand"
	"github.com/couchcryptid/aqi-map-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BatchRunner is the reference batch as seen by the feed.
type BatchRunner interface {
	Snapshot() pipeline.BatchState
	Start(ctx context.Context, locs []domain.ReferenceLocation) error
}

// QueryLane is the on-demand lane as seen by the feed.
type QueryLane interface {
	Snapshot() ondemand.State
	Query(ctx context.Context, lat, lon float64) (domain.LocationResult, error)
	Locate(ctx context.Context, g domain.Geolocator) (domain.LocationResult, error)
}

// Feed wires the map data endpoints. Routes for a nil Batch or Lane are not
// registered. BaseContext bounds batch runs started over HTTP and defaults
// to context.Background.
type Feed struct {
	Batch       BatchRunner
	Locations   []domain.ReferenceLocation
	Lane        QueryLane
	Geolocator  domain.Geolocator
	BaseContext context.Context
}

// Server exposes health, readiness, metrics, and map feed HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	feed       Feed
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the /api/v1 feed routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, feed Feed, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	if feed.BaseContext == nil {
		feed.BaseContext = context.Background()
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		feed:   feed,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	if feed.Batch != nil {
		mux.HandleFunc("GET /api/v1/reference", s.handleReference)
		mux.HandleFunc("POST /api/v1/reference/refresh", s.handleRefresh)
	}
	if feed.Lane != nil {
		mux.HandleFunc("GET /api/v1/query", s.handleQuery)
		mux.HandleFunc("GET /api/v1/selection", s.handleSelection)
		mux.HandleFunc("POST /api/v1/locate", s.handleLocate)
	}

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

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
