package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ontology/internal/domain"
	"github.com/kailas-cloud/ontology/internal/domain/aggregation"
	"github.com/kailas-cloud/ontology/internal/domain/archetype"
	domattr "github.com/kailas-cloud/ontology/internal/domain/attribution"
	logpkg "github.com/kailas-cloud/ontology/internal/logger"
	healthuc "github.com/kailas-cloud/ontology/internal/usecase/health"
)

// maxBodyBytes caps the attribution request body.
const maxBodyBytes = 1 << 16

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Attributor computes archetype distributions for a subject.
type Attributor interface {
	Attribute(ctx context.Context, subject string, kind aggregation.Kind) (domattr.Result, error)
}

// Catalog lists the loaded vocabulary.
type Catalog interface {
	All() []archetype.Definition
}

// PrototypeIndex reports which archetypes have a built prototype.
type PrototypeIndex interface {
	Has(name string) bool
}

// HealthChecker aggregates dependency checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the attribution HTTP API.
type Server struct {
	attribution   Attributor
	catalog       Catalog
	prototypes    PrototypeIndex
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	attribution Attributor,
	catalog Catalog,
	prototypes PrototypeIndex,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		attribution: attribution,
		catalog:     catalog,
		prototypes:  prototypes,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput),
		sentinelHandler(domain.ErrUnknownPolicy, http.StatusBadRequest, CodeUnknownPolicy),
		sentinelHandler(domain.ErrInsufficientData, http.StatusBadRequest, CodeInsufficientData),
		sentinelHandler(domain.ErrSubjectNotFound, http.StatusNotFound, CodeSubjectNotFound),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, CodeVectorDimMismatch),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/ontology", s.AnalyzeProfile)
	r.Get("/subjects/{subject}/attribution", s.GetAttribution)
	r.Get("/archetypes", s.ListArchetypes)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// AnalyzeProfile handles POST /api/ontology.
func (s *Server) AnalyzeProfile(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "username is required")
		return
	}

	s.attribute(w, r, req.Username, aggregation.Kind(req.Policy))
}

// GetAttribution handles GET /subjects/{subject}/attribution.
func (s *Server) GetAttribution(w http.ResponseWriter, r *http.Request) {
	var subject string
	err := runtime.BindStyledParameterWithOptions("simple", "subject", chi.URLParam(r, "subject"), &subject,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter subject")
		return
	}

	var policy string
	if err := runtime.BindQueryParameter("form", true, false, "policy", r.URL.Query(), &policy); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter policy")
		return
	}

	s.attribute(w, r, subject, aggregation.Kind(policy))
}

func (s *Server) attribute(w http.ResponseWriter, r *http.Request, subject string, kind aggregation.Kind) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.attribution.Attribute(ctx, subject, kind)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, attributionToResponse(&res))
}

// ListArchetypes handles GET /archetypes.
func (s *Server) ListArchetypes(w http.ResponseWriter, _ *http.Request) {
	defs := s.catalog.All()
	items := make([]ArchetypeResponse, len(defs))
	for i, d := range defs {
		md := d.Metadata()
		items[i] = ArchetypeResponse{
			Name:         d.Name(),
			Phrases:      len(d.Phrases()),
			HasPrototype: s.prototypes != nil && s.prototypes.Has(d.Name()),
			Valence:      md.Valence,
			CoreFear:     md.CoreFear,
			CoreDesire:   md.CoreDesire,
			Description:  md.Description,
		}
	}
	writeJSON(w, http.StatusOK, ArchetypeListResponse{Items: items, Total: len(items)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// NotFound answers unknown routes in the API error format.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
		w.Header().Set("X-Embedding-Texts", strconv.Itoa(usage.Texts))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrUnknownPolicy,
		domain.ErrInsufficientData,
		domain.ErrSubjectNotFound,
		domain.ErrUpstream,
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx)
	if !log.Core().Enabled(zap.FatalLevel) {
		log = s.logger
	}
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func attributionToResponse(res *domattr.Result) AttributionResponse {
	ids := res.Identities()
	items := make([]IdentityResponse, len(ids))
	for i, id := range ids {
		weight := id.Weight
		item := IdentityResponse{
			Name:        id.Name,
			Valence:     id.Metadata.Valence,
			CoreFear:    id.Metadata.CoreFear,
			CoreDesire:  id.Metadata.CoreDesire,
			Description: id.Metadata.Description,
		}
		if res.Policy() == aggregation.BestMatchKind {
			votes := id.Votes
			item.Weight = &weight
			item.Votes = &votes
		} else {
			item.Percent = &weight
		}
		items[i] = item
	}
	return AttributionResponse{
		Username:           res.Subject(),
		Policy:             string(res.Policy()),
		TotalPostsAnalyzed: res.TotalDocuments(),
		Identities:         items,
	}
}
