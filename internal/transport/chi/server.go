package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	logpkg "github.com/kailas-cloud/venuerank/internal/logger"
	"github.com/kailas-cloud/venuerank/internal/metrics"
	"github.com/kailas-cloud/venuerank/internal/usecase/health"
	"github.com/kailas-cloud/venuerank/internal/usecase/recommend"
	"github.com/kailas-cloud/venuerank/internal/version"
)

const maxBodyBytes = 1 << 20

// Recommender runs the recommendation pipeline.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (recommend.Result, error)
	Suggest(ctx context.Context, req recommend.SuggestRequest) ([]domain.RankedSuggestion, error)
}

// HealthReporter aggregates dependency health.
type HealthReporter interface {
	Check(ctx context.Context) health.Report
}

// Server serves the venuerank HTTP API.
type Server struct {
	recommender Recommender
	health      HealthReporter
	logger      *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(recommender Recommender, health HealthReporter, logger *zap.Logger) *Server {
	return &Server{recommender: recommender, health: health, logger: logger}
}

// Router builds the chi router with the middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := gochi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r gochi.Router) {
		r.Post("/recommendations", s.Recommend)
		r.Post("/suggestions", s.Suggest)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
	return r
}

// Recommend handles POST /api/v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PeopleCount < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "people_count must not be negative")
		return
	}
	if len(req.Categories) == 0 && len(req.CollectedTags) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "categories or collected_tags is required")
		return
	}

	r, usage := usageContext(r)
	res, err := s.recommender.Recommend(r.Context(), recommend.Request{
		RequestID:        chiMiddleware.GetReqID(r.Context()),
		Region:           req.Region,
		PeopleCount:      req.PeopleCount,
		Categories:       req.Categories,
		CollectedTags:    req.CollectedTags,
		RandomCategories: req.RandomCategories,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make(map[string][]VenueItem, len(res.Recommendations))
	for category, venues := range res.Recommendations {
		items := make([]VenueItem, len(venues))
		for i, v := range venues {
			items[i] = venueToItem(v)
		}
		out[category] = items
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, RecommendResponse{RequestID: res.RequestID, Recommendations: out})
}

// Suggest handles POST /api/v1/suggestions.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NResults < 0 || req.PeopleCount < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "n_results and people_count must not be negative")
		return
	}

	r, usage := usageContext(r)
	suggestions, err := s.recommender.Suggest(r.Context(), recommend.SuggestRequest{
		Keyword:        req.Keyword,
		Region:         req.Region,
		Category:       req.Category,
		PeopleCount:    req.PeopleCount,
		RequestedCount: req.NResults,
		Enhance:        req.Enhance,
		Weights:        req.Weights,
		MinSimilarity:  req.MinSimilarity,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SuggestionItem, len(suggestions))
	for i, sg := range suggestions {
		items[i] = suggestionToItem(sg)
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, SuggestResponse{Items: items, Total: len(items)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == health.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	embedding, judge := usage.Snapshot()
	if embedding > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(embedding))
	}
	if judge > 0 {
		w.Header().Set("X-Judge-Tokens", strconv.Itoa(judge))
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

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	if errors.Is(err, domain.ErrInvalidRequest) {
		log.Warn("domain error", zap.Error(err))
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
