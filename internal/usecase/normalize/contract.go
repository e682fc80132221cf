package normalize

import "context"

// Rewriter turns raw keywords into a natural-language search sentence.
type Rewriter interface {
	Rewrite(ctx context.Context, peopleCount int, category, keyword string) (string, error)
}
