// Package httpapi exposes the batch engine over a JSON REST surface.
package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/taigaharvest/saphouse-go/internal/adapters/metrics"
	appbatch "github.com/taigaharvest/saphouse-go/internal/application/batch"
	"github.com/taigaharvest/saphouse-go/internal/infrastructure/config"
)

// Services bundles the application services the HTTP surface exposes
type Services struct {
	Lifecycle  *appbatch.LifecycleService
	Assignment *appbatch.AssignmentService
	Linker     *appbatch.LinkerService
	Drafts     *appbatch.DraftService
	Queries    *appbatch.QueryService
}

// Server is the HTTP front of the engine
type Server struct {
	cfg      config.ServerConfig
	services Services
	server   *http.Server
}

// NewServer wires the route table and middleware chain
func NewServer(cfg config.ServerConfig, services Services, httpMetrics *metrics.HTTPMetricsCollector) *Server {
	s := &Server{cfg: cfg, services: services}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	handler = withMetrics(httpMetrics, handler)
	if cfg.RateLimit.Enabled {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.Requests), cfg.RateLimit.Burst)
		handler = withRateLimit(limiter, handler)
	}
	handler = withLogging(handler)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.cfg.MetricsEnabled && metrics.IsEnabled() {
		mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	// Processing batches
	mux.HandleFunc("POST /v1/processing-batches", s.handleCreateProcessing)
	mux.HandleFunc("GET /v1/processing-batches", s.handleListProcessing)
	mux.HandleFunc("GET /v1/processing-batches/{id}", s.handleGetProcessing)
	mux.HandleFunc("PATCH /v1/processing-batches/{id}", s.handleUpdateProcessing)
	mux.HandleFunc("DELETE /v1/processing-batches/{id}", s.handleDeleteProcessing)
	mux.HandleFunc("PUT /v1/processing-batches/{id}/units", s.handleSetUnits)
	mux.HandleFunc("POST /v1/processing-batches/{id}/submit", s.handleSubmitProcessing)
	mux.HandleFunc("POST /v1/processing-batches/{id}/reopen", s.handleReopenProcessing)
	mux.HandleFunc("POST /v1/processing-batches/{id}/cancel", s.handleCancelProcessing)

	// Packaging batches
	mux.HandleFunc("POST /v1/packaging-batches", s.handleDerivePackaging)
	mux.HandleFunc("GET /v1/packaging-batches", s.handleListPackaging)
	mux.HandleFunc("GET /v1/packaging-batches/eligible-sources", s.handlePackagingSources)
	mux.HandleFunc("GET /v1/packaging-batches/{id}", s.handleGetPackaging)
	mux.HandleFunc("PATCH /v1/packaging-batches/{id}", s.handleUpdatePackaging)
	mux.HandleFunc("DELETE /v1/packaging-batches/{id}", s.handleDeletePackaging)
	mux.HandleFunc("POST /v1/packaging-batches/{id}/submit", s.handleSubmitPackaging)
	mux.HandleFunc("POST /v1/packaging-batches/{id}/reopen", s.handleReopenPackaging)
	mux.HandleFunc("POST /v1/packaging-batches/{id}/cancel", s.handleCancelPackaging)

	// Labeling batches
	mux.HandleFunc("POST /v1/labeling-batches", s.handleDeriveLabeling)
	mux.HandleFunc("GET /v1/labeling-batches", s.handleListLabeling)
	mux.HandleFunc("GET /v1/labeling-batches/eligible-sources", s.handleLabelingSources)
	mux.HandleFunc("GET /v1/labeling-batches/{id}", s.handleGetLabeling)
	mux.HandleFunc("PATCH /v1/labeling-batches/{id}", s.handleUpdateLabeling)
	mux.HandleFunc("DELETE /v1/labeling-batches/{id}", s.handleDeleteLabeling)
	mux.HandleFunc("POST /v1/labeling-batches/{id}/submit", s.handleSubmitLabeling)
	mux.HandleFunc("POST /v1/labeling-batches/{id}/reopen", s.handleReopenLabeling)
	mux.HandleFunc("POST /v1/labeling-batches/{id}/cancel", s.handleCancelLabeling)

	// Unit ledger and field drafts
	mux.HandleFunc("GET /v1/raw-units", s.handleListFreeUnits)
	mux.HandleFunc("DELETE /v1/raw-units/{id}", s.handleDeleteUnit)
	mux.HandleFunc("POST /v1/drafts", s.handleRecordDraft)
	mux.HandleFunc("GET /v1/drafts", s.handleListDrafts)
	mux.HandleFunc("GET /v1/drafts/{id}", s.handleGetDraft)

	// Audit trail
	mux.HandleFunc("GET /v1/batches/{id}/events", s.handleListEvents)
}

// Handler returns the full middleware-wrapped handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving HTTP until the listener fails or Shutdown runs
func (s *Server) Start() error {
	log.Printf("http server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
