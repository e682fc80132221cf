// Package retrieval fetches the over-sized candidate pool for a normalized query.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/domain/filter"
	"github.com/kailas-cloud/venuerank/internal/metrics"
)

// DefaultMultiplier is the over-fetch factor applied when a request leaves it unset.
const DefaultMultiplier = 5

// Request describes one filtered nearest-neighbor lookup.
type Request struct {
	SearchQuery    string
	Region         string
	CategoryCode   string
	RequestedCount int
	Multiplier     int
}

// SearchCount is the candidate pool size: RequestedCount times Multiplier.
func (r Request) SearchCount() int {
	m := r.Multiplier
	if m <= 0 {
		m = 1
	}
	if r.RequestedCount <= 0 {
		return 0
	}
	return r.RequestedCount * m
}

// Service retrieves candidates from the vector index.
type Service struct {
	embed  Embedder
	index  domain.VenueIndex
	logger *zap.Logger
}

// New creates a retriever.
func New(embed Embedder, index domain.VenueIndex, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embed: embed, index: index, logger: logger.Named("retriever")}
}

// Retrieve returns at most req.SearchCount() candidates. Embedding and index
// failures are logged and reported as an empty pool.
func (s *Service) Retrieve(ctx context.Context, req Request) []domain.Candidate {
	defer metrics.ObserveStage(metrics.StageRetrieve, time.Now())

	candidates, err := s.retrieve(ctx, req)
	if err != nil {
		metrics.Fallback("retriever", "error")
		s.logger.Error("Retrieval failed",
			zap.String("query", req.SearchQuery),
			zap.String("region", req.Region),
			zap.String("category_code", req.CategoryCode),
			zap.Error(err))
		return nil
	}
	return candidates
}

func (s *Service) retrieve(ctx context.Context, req Request) ([]domain.Candidate, error) {
	limit := req.SearchCount()
	if limit == 0 {
		return nil, nil
	}

	embResult, err := s.embed.Embed(ctx, req.SearchQuery)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	expr := filter.ForVenue(req.Region, req.CategoryCode)
	candidates, err := s.index.Query(ctx, domain.IndexQuery{
		Vector: embResult.Embedding,
		Limit:  limit,
		Filter: expr,
	})
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	s.logger.Debug("Candidates retrieved",
		zap.String("filter", expr.String()),
		zap.Int("limit", limit),
		zap.Int("count", len(candidates)))
	return candidates, nil
}
