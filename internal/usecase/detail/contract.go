package detail

import (
	"context"

	"github.com/kailas-cloud/venuerank/internal/domain"
)

// VenueReader resolves venue ids to full records. Missing ids are absent from the map.
type VenueReader interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.VenueDetail, error)
}
