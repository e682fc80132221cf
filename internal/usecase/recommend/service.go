// Package recommend runs the per-category recommendation pipeline.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/venuerank/internal/domain"
	logpkg "github.com/kailas-cloud/venuerank/internal/logger"
	"github.com/kailas-cloud/venuerank/internal/metrics"
	"github.com/kailas-cloud/venuerank/internal/usecase/judge"
	"github.com/kailas-cloud/venuerank/internal/usecase/normalize"
	"github.com/kailas-cloud/venuerank/internal/usecase/retrieval"
	"github.com/kailas-cloud/venuerank/internal/usecase/scoring"
)

// Options are the pipeline knobs applied to every request.
type Options struct {
	RequestedCount int
	MaxResults     int
	RandomCount    int
	MinSimilarity  float64
	Multiplier     int
	Weights        domain.Weights
	Enhance        bool
	// Concurrency bounds the categories processed at once.
	Concurrency int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		RequestedCount: 15,
		MaxResults:     judge.DefaultMaxResults,
		RandomCount:    10,
		MinSimilarity:  0.2,
		Multiplier:     retrieval.DefaultMultiplier,
		Weights:        domain.Weights{Keyword: 0.5, Semantic: 0.3, Rerank: 0.2},
		Concurrency:    4,
	}
}

// Request is one multi-category recommendation request.
type Request struct {
	RequestID        string
	Region           string
	PeopleCount      int
	Categories       []string
	CollectedTags    map[string][]string
	RandomCategories []string
}

// Result maps every processed category to its final venue list.
type Result struct {
	RequestID       string
	Recommendations map[string][]domain.VenueDetail
}

// SuggestRequest runs retrieval, scoring and selection for one category.
type SuggestRequest struct {
	Keyword        string
	Region         string
	Category       string
	PeopleCount    int
	RequestedCount int
	Enhance        bool
	Weights        *domain.Weights
	MinSimilarity  *float64
}

// Service orchestrates the pipeline stages.
type Service struct {
	normalizer Normalizer
	retriever  Retriever
	scorer     Scorer
	joiner     Joiner
	filter     RelevanceFilter
	sampler    RandomSampler
	opts       Options
	logger     *zap.Logger
}

// New creates an orchestrator.
func New(
	normalizer Normalizer, retriever Retriever, scorer Scorer,
	joiner Joiner, filter RelevanceFilter, sampler RandomSampler,
	opts Options, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Service{
		normalizer: normalizer,
		retriever:  retriever,
		scorer:     scorer,
		joiner:     joiner,
		filter:     filter,
		sampler:    sampler,
		opts:       opts,
		logger:     logger.Named("recommend"),
	}
}

// Recommend runs one pipeline per category. A failing category yields an empty
// list and never affects the others.
func (s *Service) Recommend(ctx context.Context, req Request) (Result, error) {
	if req.PeopleCount < 0 {
		return Result{}, fmt.Errorf("%w: people count must not be negative", domain.ErrInvalidRequest)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	// The HTTP layer already tags its request logger with the request id.
	log := s.logger.With(zap.String("request_id", requestID))
	if l, ok := logpkg.Lookup(ctx); ok {
		log = l.Named("recommend")
	}

	categories := categoriesOf(req)
	random := make(map[string]struct{}, len(req.RandomCategories))
	for _, c := range req.RandomCategories {
		random[strings.TrimSpace(c)] = struct{}{}
	}

	log.Info("Recommendation started",
		zap.String("region", req.Region),
		zap.Int("people", req.PeopleCount),
		zap.Strings("categories", categories),
		zap.Strings("random_categories", req.RandomCategories))

	lists := make([][]domain.VenueDetail, len(categories))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, category := range categories {
		_, isRandom := random[category]
		keywords := req.CollectedTags[category]
		g.Go(func() error {
			lists[i] = s.runCategory(ctx, log.With(zap.String("category", category)), req, category, keywords, isRandom)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]domain.VenueDetail, len(categories))
	total := 0
	for i, category := range categories {
		out[category] = lists[i]
		total += len(lists[i])
	}
	log.Info("Recommendation finished", zap.Int("total", total))

	return Result{RequestID: requestID, Recommendations: out}, nil
}

// Suggest exposes the ranked suggestions before detail join and judge filtering.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) ([]domain.RankedSuggestion, error) {
	if req.PeopleCount < 0 || req.RequestedCount < 0 {
		return nil, fmt.Errorf("%w: counts must not be negative", domain.ErrInvalidRequest)
	}
	requested := req.RequestedCount
	if requested == 0 {
		requested = s.opts.RequestedCount
	}
	weights := s.opts.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}
	threshold := s.opts.MinSimilarity
	if req.MinSimilarity != nil {
		threshold = *req.MinSimilarity
	}

	q := s.normalizer.Normalize(ctx, normalize.Input{
		Raw:         req.Keyword,
		Category:    req.Category,
		PeopleCount: req.PeopleCount,
		Enhance:     req.Enhance,
	})
	return s.rank(ctx, q, req.Region, req.Category, requested, weights, threshold)
}

func (s *Service) runCategory(
	ctx context.Context, log *zap.Logger, req Request,
	category string, keywords []string, isRandom bool,
) (venues []domain.VenueDetail) {
	mode := "pipeline"
	if isRandom {
		mode = "random"
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Category pipeline panicked", zap.Any("panic", r), zap.Stack("stack"))
			venues = []domain.VenueDetail{}
		}
		metrics.CategoryResults.WithLabelValues(mode).Observe(float64(len(venues)))
	}()

	var err error
	if isRandom {
		venues, err = s.randomCategory(ctx, req.Region, category)
	} else {
		venues, err = s.pipelineCategory(ctx, req, category, keywords)
	}
	switch {
	case err != nil:
		log.Error("Category pipeline failed", zap.String("mode", mode), zap.Error(err))
		return []domain.VenueDetail{}
	case ctx.Err() != nil:
		log.Warn("Category pipeline cancelled", zap.String("mode", mode), zap.Error(ctx.Err()))
		return []domain.VenueDetail{}
	}

	if venues == nil {
		venues = []domain.VenueDetail{}
	}
	log.Info("Category done", zap.String("mode", mode), zap.Int("count", len(venues)))
	return venues
}

func (s *Service) randomCategory(ctx context.Context, region, category string) ([]domain.VenueDetail, error) {
	defer metrics.ObserveStage(metrics.StageRandom, time.Now())

	venues, err := s.sampler.RandomSample(ctx, region, domain.CategoryCode(category), s.opts.RandomCount)
	if err != nil {
		return nil, fmt.Errorf("random sample: %w", err)
	}
	return venues, nil
}

func (s *Service) pipelineCategory(
	ctx context.Context, req Request, category string, keywords []string,
) ([]domain.VenueDetail, error) {
	q := s.normalizer.Normalize(ctx, normalize.Input{
		Raw:         strings.Join(keywords, ", "),
		Category:    category,
		PeopleCount: req.PeopleCount,
		Enhance:     s.opts.Enhance,
	})

	suggestions, err := s.rank(ctx, q, req.Region, category, s.opts.RequestedCount, s.opts.Weights, s.opts.MinSimilarity)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return nil, nil
	}

	details := s.joiner.Join(ctx, suggestions)
	return s.filter.Filter(ctx, judge.Input{
		Venues:      details,
		Keywords:    q.Keywords,
		Category:    category,
		PeopleCount: req.PeopleCount,
		MaxResults:  s.opts.MaxResults,
	}), nil
}

func (s *Service) rank(
	ctx context.Context, q normalize.Query, region, category string,
	requested int, w domain.Weights, threshold float64,
) ([]domain.RankedSuggestion, error) {
	candidates := s.retriever.Retrieve(ctx, retrieval.Request{
		SearchQuery:    q.SearchQuery,
		Region:         region,
		CategoryCode:   domain.CategoryCode(category),
		RequestedCount: requested,
		Multiplier:     s.opts.Multiplier,
	})
	if len(candidates) == 0 {
		return nil, nil
	}

	scored, err := s.scorer.Score(ctx, q.SearchQuery, q.Keywords, candidates, w)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	return scoring.Select(scored, q.SearchQuery, threshold, requested), nil
}

// categoriesOf returns the requested categories, or the sorted collected-tag
// categories when none are requested. Blank and repeated labels are dropped.
func categoriesOf(req Request) []string {
	source := req.Categories
	if len(source) == 0 {
		source = make([]string, 0, len(req.CollectedTags))
		for c := range req.CollectedTags {
			source = append(source, c)
		}
		sort.Strings(source)
	}

	out := make([]string, 0, len(source))
	seen := make(map[string]struct{}, len(source))
	for _, c := range source {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
