package retrieval

import (
	"context"

	"github.com/kailas-cloud/venuerank/internal/domain"
)

// Embedder vectorizes the search query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
