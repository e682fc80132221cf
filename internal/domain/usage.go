package domain

import (
	"context"
	"sync"
)

type usageKey struct{}

// Usage collects token consumption of external models for one request.
// Categories run concurrently, so updates are synchronized.
type Usage struct {
	mu              sync.Mutex
	embeddingTokens int
	judgeTokens     int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records embedding tokens. Safe on a nil receiver.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.mu.Unlock()
}

// AddJudgeTokens records chat-completion tokens. Safe on a nil receiver.
func (u *Usage) AddJudgeTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.judgeTokens += n
	u.mu.Unlock()
}

// Snapshot returns the embedding and judge token totals.
func (u *Usage) Snapshot() (embedding, judge int) {
	if u == nil {
		return 0, 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens, u.judgeTokens
}
