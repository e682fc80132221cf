package embedding

import (
	"context"
	"strings"

	"github.com/kailas-cloud/venuerank/internal/domain"
)

// InstructionEmbedder prefixes every query with a task instruction, as
// asymmetric retrieval models (e5, bge, Qwen3-Embedding) expect. Venue
// documents are indexed without it.
type InstructionEmbedder struct {
	inner  domain.Embedder
	prefix string
}

var _ domain.Embedder = (*InstructionEmbedder)(nil)

// WithInstruction wraps inner. A blank instruction returns inner unchanged.
func WithInstruction(inner domain.Embedder, instruction string) domain.Embedder {
	if strings.TrimSpace(instruction) == "" {
		return inner
	}
	return &InstructionEmbedder{inner: inner, prefix: instruction}
}

func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return e.inner.Embed(ctx, e.prefix+text)
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
