// Package httpapi implements the HTTP surface: routing, middleware, and
// request/response translation between JSON and the repository layer.
package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/issueboard/server/internal/metrics"
	"github.com/issueboard/server/internal/repository"
	"github.com/issueboard/server/internal/store"
)

// Config carries the subset of process configuration the HTTP layer needs
// to build its middleware stack.
type Config struct {
	APIKey         string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Server holds everything a request handler needs: the repository, a
// logger, the metrics collector, and the store handle for health checks.
type Server struct {
	repo    *repository.Repository
	store   *store.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config
}

// New constructs a Server. Call Router to obtain the wired http.Handler.
func New(repo *repository.Repository, st *store.Store, logger *zap.Logger, m *metrics.Metrics, cfg Config) *Server {
	return &Server{repo: repo, store: st, logger: logger, metrics: m, cfg: cfg}
}

// Router builds the complete handler: routing plus the full middleware
// stack, with auth applied to every /api/* route except /api/health.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/issues", s.handleListIssues)
	protected.HandleFunc("POST /api/issues", s.handleCreateIssue)
	protected.HandleFunc("GET /api/issues/count", s.handleCountIssues)
	protected.HandleFunc("GET /api/issues/{id}", s.handleGetIssue)
	protected.HandleFunc("PATCH /api/issues/{id}", s.handleUpdateIssue)
	protected.HandleFunc("DELETE /api/issues/{id}", s.handleDeleteIssue)
	protected.HandleFunc("PATCH /api/issues/{id}/move", s.handleMoveIssue)
	protected.HandleFunc("PUT /api/issues/{id}/labels", s.handleReplaceIssueLabels)
	protected.HandleFunc("GET /api/users", s.handleListUsers)
	protected.HandleFunc("GET /api/labels", s.handleListLabels)

	mux.Handle("/api/", chain(protected, withAuthMiddleware(s.cfg.APIKey)))

	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return chain(mux,
		withRequestIDMiddleware(),
		withAccessLogMiddleware(s.logger, s.metrics),
		withRecoverMiddleware(s.logger),
		withCORSMiddleware(s.cfg.AllowedOrigins),
		withTracingMiddleware(),
		withTimeoutMiddleware(timeout),
	)
}
