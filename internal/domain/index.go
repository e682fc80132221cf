package domain

import (
	"context"

	"github.com/kailas-cloud/venuerank/internal/domain/filter"
)

// IndexQuery is a nearest-neighbor request against a VenueIndex.
type IndexQuery struct {
	Vector []float32
	Limit  int
	Filter filter.Expression
}

// VenueIndex answers nearest-neighbor queries over indexed venue documents.
// Results are ordered by ascending distance and hold at most Limit entries.
type VenueIndex interface {
	Query(ctx context.Context, q IndexQuery) ([]Candidate, error)
}
