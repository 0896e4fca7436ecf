package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/clinigraph/clinigraph/pkg/builder"
	"github.com/clinigraph/clinigraph/pkg/compliance"
	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/metrics"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/retrieval"
	"github.com/clinigraph/clinigraph/pkg/store"
)

// Server exposes the compliance engine over HTTP.
type Server struct {
	repo      *store.Repository
	builder   *builder.Builder
	retriever *retrieval.Retriever
	checker   *compliance.Orchestrator
	fixer     *compliance.FixOrchestrator

	metrics   *metrics.Registry
	logger    logging.Logger
	validate  *validator.Validate
	jwtSecret []byte
}

type ServerOption func(*Server)

// WithJWTSecret enables bearer-token auth on mutating endpoints.
func WithJWTSecret(secret string) ServerOption {
	return func(s *Server) {
		if secret != "" {
			s.jwtSecret = []byte(secret)
		}
	}
}

func WithServerMetrics(m *metrics.Registry) ServerOption {
	return func(s *Server) { s.metrics = m }
}

func NewServer(
	repo *store.Repository,
	b *builder.Builder,
	r *retrieval.Retriever,
	checker *compliance.Orchestrator,
	fixer *compliance.FixOrchestrator,
	logger logging.Logger,
	opts ...ServerOption,
) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Server{
		repo:      repo,
		builder:   b,
		retriever: r,
		checker:   checker,
		fixer:     fixer,
		logger:    logger,
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the full route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	mux.HandleFunc("/regulations/ingest", s.requireAuth(s.post(s.handleIngest)))
	mux.HandleFunc("/regulations/retrieve", s.post(s.handleRetrieve))
	mux.HandleFunc("/regulations/check-compliance", s.post(s.handleCheckCompliance))
	mux.HandleFunc("/regulations/propose-fixes", s.post(s.handleProposeFixes))
	mux.HandleFunc("/regulations/jurisdictions", s.get(s.handleJurisdictions))
	mux.HandleFunc("/regulations/graph/stats", s.get(s.handleGraphStats))
	mux.HandleFunc("/regulations/graph/data", s.get(s.handleGraphData))

	return s.loggingMiddleware(s.metricsMiddleware(mux))
}

func (s *Server) post(next http.HandlerFunc) http.HandlerFunc {
	return s.method(http.MethodPost, next)
}

func (s *Server) get(next http.HandlerFunc) http.HandlerFunc {
	return s.method(http.MethodGet, next)
}

func (s *Server) method(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}

// decode unmarshals and validates a request body. A false return means the
// error response has already been written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// respondDomainError maps engine errors onto HTTP statuses.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case model.IsNotFound(err):
		s.respondError(w, http.StatusNotFound, err.Error())
	case model.IsValidation(err):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", logging.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
	}
}
