package recommend

import (
	"context"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/usecase/judge"
	"github.com/kailas-cloud/venuerank/internal/usecase/normalize"
	"github.com/kailas-cloud/venuerank/internal/usecase/retrieval"
	"github.com/kailas-cloud/venuerank/internal/usecase/scoring"
)

// Normalizer builds keywords and the search query from raw input.
type Normalizer interface {
	Normalize(ctx context.Context, in normalize.Input) normalize.Query
}

// Retriever fetches the candidate pool from the vector index.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) []domain.Candidate
}

// Scorer ranks a candidate pool by fused score.
type Scorer interface {
	Score(
		ctx context.Context, searchQuery string, keywords []string,
		candidates []domain.Candidate, w domain.Weights,
	) ([]scoring.Scored, error)
}

// Joiner resolves suggestions to stored venue records.
type Joiner interface {
	Join(ctx context.Context, suggestions []domain.RankedSuggestion) []domain.VenueDetail
}

// RelevanceFilter narrows the joined list with the external judge.
type RelevanceFilter interface {
	Filter(ctx context.Context, in judge.Input) []domain.VenueDetail
}

// RandomSampler returns unranked venues for random-recommendation categories.
type RandomSampler interface {
	RandomSample(ctx context.Context, region, categoryCode string, n int) ([]domain.VenueDetail, error)
}
