// Package scoring fuses lexical, semantic and cross-encoder signals into one ranking.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/metrics"
)

// ErrPoolClosed is returned by Score after Release.
var ErrPoolClosed = errors.New("scoring pool closed")

// Scored is a candidate with its score breakdown.
type Scored struct {
	Candidate domain.Candidate
	Breakdown domain.ScoreBreakdown
}

// Service scores candidate pools on a bounded worker pool.
type Service struct {
	pool     *ants.Pool
	reranker Reranker
	logger   *zap.Logger
}

// New creates a scorer with poolSize workers. A nil reranker makes the relevance
// score equal to the semantic score for the lifetime of the service.
func New(poolSize int, reranker Reranker, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("create scoring pool: %w", err)
	}
	return &Service{pool: pool, reranker: reranker, logger: logger.Named("scorer")}, nil
}

// Release stops the worker pool. Score must not be called afterwards.
func (s *Service) Release() {
	s.pool.Release()
}

// RerankEnabled reports whether a cross-encoder is wired.
func (s *Service) RerankEnabled() bool {
	return s.reranker != nil
}

// Score returns the candidates sorted by descending fused score. Ties keep
// retrieval order. It fails only when ctx is done or the pool is closed.
func (s *Service) Score(
	ctx context.Context, searchQuery string, keywords []string,
	candidates []domain.Candidate, w domain.Weights,
) ([]Scored, error) {
	defer metrics.ObserveStage(metrics.StageScore, time.Now())

	if len(candidates) == 0 {
		return nil, nil
	}

	relevance := s.rerank(ctx, searchQuery, candidates)

	type outcome struct {
		scored []Scored
		err    error
	}
	done := make(chan outcome, 1)

	task := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("scoring panic: %v", r)}
			}
		}()
		done <- outcome{scored: fuse(candidates, keywords, relevance, w)}
	}
	if err := s.pool.Submit(task); err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return nil, ErrPoolClosed
		}
		return nil, fmt.Errorf("submit scoring task: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.scored, out.err
	}
}

// rerank returns normalized relevance per candidate, or nil when the semantic
// score should stand in.
func (s *Service) rerank(ctx context.Context, searchQuery string, candidates []domain.Candidate) []float64 {
	if s.reranker == nil {
		return nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.EmbeddingText
	}

	raw, err := s.reranker.Rerank(ctx, searchQuery, texts)
	if err == nil && len(raw) != len(candidates) {
		err = fmt.Errorf("%w: got %d scores for %d texts", domain.ErrRerankerUnavailable, len(raw), len(candidates))
	}
	if err != nil {
		metrics.Fallback("reranker", "error")
		s.logger.Warn("Rerank failed, relevance falls back to semantic score",
			zap.Int("candidates", len(candidates)),
			zap.Error(err))
		return nil
	}

	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = NormalizeRerank(v)
	}
	return out
}

func fuse(candidates []domain.Candidate, keywords []string, relevance []float64, w domain.Weights) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		semantic := SemanticScore(c.Distance)
		rel := semantic
		if relevance != nil {
			rel = relevance[i]
		}
		scored[i] = Scored{
			Candidate: c,
			Breakdown: domain.NewScoreBreakdown(LexicalScore(c.EmbeddingText, keywords), semantic, rel, w),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Breakdown.Fused > scored[j].Breakdown.Fused
	})
	return scored
}

// Select keeps candidates with fused score >= minThreshold, in order, up to requestedCount.
func Select(scored []Scored, searchQuery string, minThreshold float64, requestedCount int) []domain.RankedSuggestion {
	if requestedCount <= 0 {
		return nil
	}
	out := make([]domain.RankedSuggestion, 0, min(requestedCount, len(scored)))
	for _, sc := range scored {
		if len(out) == requestedCount {
			break
		}
		if sc.Breakdown.Fused < minThreshold {
			continue
		}
		out = append(out, domain.RankedSuggestion{
			VenueID:       sc.Candidate.ID,
			Breakdown:     sc.Breakdown,
			EmbeddingText: sc.Candidate.EmbeddingText,
			SearchQuery:   searchQuery,
		})
	}
	return out
}
