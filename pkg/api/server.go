// Package api serves the routing HTTP contract: CRUD on per-model
// routings, on-demand validation and ordering reads, login, a
// read-only GraphQL endpoint, health and Prometheus metrics.
//
// Writes answer the full ValidationResult so editing clients can
// highlight the areas a rejected change touched. A rejected write is
// 422, a structurally broken one (duplicate area, unknown
// predecessor) is 400, and neither persists anything.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aaron-1990/line-routing/pkg/auth"
	"github.com/Aaron-1990/line-routing/pkg/graphql"
	"github.com/Aaron-1990/line-routing/pkg/logging"
	"github.com/Aaron-1990/line-routing/pkg/metrics"
	"github.com/Aaron-1990/line-routing/pkg/store"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// Server is the HTTP API server.
type Server struct {
	svc            *store.Service
	logger         logging.Logger
	reg            *metrics.Registry
	jwtManager     *auth.JWTManager
	userStore      *auth.UserStore
	apiKeyStore    *auth.APIKeyStore
	graphqlHandler *graphql.GraphQLHandler
	authEnabled    bool
	maxBodyBytes   int64
	version        string
	startTime      time.Time
	httpServer     *http.Server
}

// Options configures the server. Zero values fall back to sane
// defaults; auth fields may be left nil when AuthEnabled is false.
type Options struct {
	Logger       logging.Logger
	Registry     *metrics.Registry
	JWTManager   *auth.JWTManager
	UserStore    *auth.UserStore
	APIKeyStore  *auth.APIKeyStore
	AuthEnabled  bool
	MaxBodyBytes int64
	Version      string
}

// NewServer creates an API server over the routing service.
func NewServer(svc *store.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	logger = logger.With(logging.Component("api"))

	reg := opts.Registry
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		svc:          svc,
		logger:       logger,
		reg:          reg,
		jwtManager:   opts.JWTManager,
		userStore:    opts.UserStore,
		apiKeyStore:  opts.APIKeyStore,
		authEnabled:  opts.AuthEnabled,
		maxBodyBytes: maxBody,
		version:      version,
		startTime:    time.Now(),
	}

	schema, err := graphql.NewSchema(svc)
	if err != nil {
		// The REST surface still works; /graphql answers 503.
		logger.Warn("failed to build GraphQL schema", logging.Error(err))
	} else {
		s.graphqlHandler = graphql.NewGraphQLHandler(schema)
	}

	return s
}

// Handler builds the full middleware chain and routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/routings", s.requireAuth(s.handleRoutings))
	mux.HandleFunc("/routings/", s.requireAuth(s.handleRoutingSubtree))
	mux.HandleFunc("/graphql", s.requireAuth(s.handleGraphQL))

	var handler http.Handler = mux
	handler = s.bodySizeLimitMiddleware(handler, s.maxBodyBytes)
	handler = s.corsMiddleware(handler)
	handler = s.metricsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.requestIDMiddleware(handler)
	handler = s.panicRecoveryMiddleware(handler)
	return handler
}

// Start serves HTTP on addr and blocks until the listener fails or
// Shutdown is called.
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting",
		logging.String("addr", addr),
		logging.String("backend", s.svc.Backend()),
		logging.Bool("auth", s.authEnabled),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	models, err := s.svc.ListModels(r.Context())
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Backend:   s.svc.Backend(),
		Models:    len(models),
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if s.graphqlHandler == nil {
		s.respondError(w, http.StatusServiceUnavailable, "GraphQL endpoint not available")
		return
	}
	s.graphqlHandler.ServeHTTP(w, r)
}

// Helper methods

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// sanitizeError logs the full error and returns a generic message so
// internal details never reach clients.
func (s *Server) sanitizeError(operation string, err error) string {
	s.logger.Error(operation+" failed", logging.Error(err))
	return operation + " failed"
}
