package scoring

import "context"

// Reranker scores (query, document) pairs with a cross-encoder. Scores are raw
// logits aligned with texts.
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)
}
