// Package detail joins ranked suggestions with their stored venue records.
package detail

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/metrics"
)

// Service resolves suggestions to venue details.
type Service struct {
	venues VenueReader
	logger *zap.Logger
}

// New creates a detail joiner.
func New(venues VenueReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{venues: venues, logger: logger.Named("joiner")}
}

// Join returns venue details in suggestion order. Unknown ids are dropped;
// a storage failure yields an empty list.
func (s *Service) Join(ctx context.Context, suggestions []domain.RankedSuggestion) []domain.VenueDetail {
	defer metrics.ObserveStage(metrics.StageJoin, time.Now())

	if len(suggestions) == 0 {
		return nil
	}

	ids := make([]string, 0, len(suggestions))
	seen := make(map[string]struct{}, len(suggestions))
	for _, sg := range suggestions {
		if _, dup := seen[sg.VenueID]; dup {
			continue
		}
		seen[sg.VenueID] = struct{}{}
		ids = append(ids, sg.VenueID)
	}

	found, err := s.venues.GetByIDs(ctx, ids)
	if err != nil {
		metrics.Fallback("joiner", "error")
		s.logger.Error("Venue lookup failed", zap.Int("ids", len(ids)), zap.Error(err))
		return nil
	}

	out := make([]domain.VenueDetail, 0, len(ids))
	for _, id := range ids {
		v, ok := found[id]
		if !ok {
			s.logger.Debug("Venue missing from storage, dropped", zap.String("venue_id", id))
			continue
		}
		out = append(out, v)
	}
	return out
}
