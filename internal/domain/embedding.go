package domain

import "context"

// Embedder turns a search query into a vector. Decorators (cache, metrics,
// instruction prefix) wrap each other through this interface.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by collaborators that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is one query vector and the tokens billed for it.
// Cache hits report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
