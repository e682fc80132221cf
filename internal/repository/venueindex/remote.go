// Package venueindex provides VenueIndex backends: a rueidis FT.SEARCH index,
// an Elasticsearch knn index and an in-process badger index.
package venueindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/venuerank/internal/db"
	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/domain/filter"
)

const contentField = "__content"

var remoteReturnFields = []string{
	contentField,
	filter.KeyRegion,
	filter.KeyCategoryCode,
	filter.KeyBusinessHours,
}

// searchStore is the consumer interface for the remote index (ISP).
type searchStore interface {
	Ping(ctx context.Context) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Remote implements domain.VenueIndex over a Redis/Valkey search index.
type Remote struct {
	store     searchStore
	indexName string
	keyPrefix string
}

var _ domain.VenueIndex = (*Remote)(nil)

// NewRemote creates a remote index. keyPrefix is stripped from hash keys to obtain venue ids.
func NewRemote(s searchStore, indexName, keyPrefix string) *Remote {
	return &Remote{store: s, indexName: indexName, keyPrefix: keyPrefix}
}

// Query runs FT.SEARCH KNN with the metadata pre-filter.
func (r *Remote) Query(ctx context.Context, q domain.IndexQuery) ([]domain.Candidate, error) {
	if q.Limit <= 0 || len(q.Vector) == 0 {
		return nil, nil
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Filters:      q.Filter,
		Vector:       q.Vector,
		K:            q.Limit,
		ReturnFields: remoteReturnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w: %w", r.indexName, domain.ErrIndexUnavailable, err)
	}
	if sr == nil {
		return nil, nil
	}

	out := make([]domain.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, domain.Candidate{
			ID:            strings.TrimPrefix(e.Key, r.keyPrefix),
			EmbeddingText: e.Fields[contentField],
			Region:        e.Fields[filter.KeyRegion],
			CategoryCode:  e.Fields[filter.KeyCategoryCode],
			BusinessHours: e.Fields[filter.KeyBusinessHours],
			Distance:      e.Distance,
		})
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// HealthCheck pings the backing store.
func (r *Remote) HealthCheck(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}
