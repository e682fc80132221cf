package domain

import (
	"context"
	"math"
	"sync"
	"testing"
)

func TestNewScoreBreakdown_ClampsBeforeFusion(t *testing.T) {
	w := Weights{Keyword: 0.5, Semantic: 0.3, Rerank: 0.2}
	b := NewScoreBreakdown(1.4, -0.2, 0.5, w)

	if b.Lexical != 1 || b.Semantic != 0 || b.Relevance != 0.5 {
		t.Fatalf("sub-scores not clamped: %+v", b)
	}
	want := 1*0.5 + 0*0.3 + 0.5*0.2
	if math.Abs(b.Fused-want) > 1e-12 {
		t.Errorf("fused = %f, want %f", b.Fused, want)
	}
}

func TestNewScoreBreakdown_WeightsNotNormalized(t *testing.T) {
	b := NewScoreBreakdown(1, 1, 1, Weights{Keyword: 1, Semantic: 1, Rerank: 1})
	if b.Fused != 3 {
		t.Errorf("fused = %f, want 3", b.Fused)
	}
}

func TestVenueDetail_Address(t *testing.T) {
	v := VenueDetail{Do: "서울특별시", Gu: "강남구", DetailAddress: " 테헤란로 1 "}
	if got := v.Address(); got != "서울특별시 강남구 테헤란로 1" {
		t.Errorf("Address() = %q", got)
	}
	if got := (VenueDetail{}).Address(); got != "" {
		t.Errorf("empty Address() = %q", got)
	}
}

func TestVenueDetail_MenuOrMissing(t *testing.T) {
	if got := (VenueDetail{Menu: "  "}).MenuOrMissing(); got != MissingMenu {
		t.Errorf("blank menu = %q, want %q", got, MissingMenu)
	}
	if got := (VenueDetail{Menu: "김치찌개 9000"}).MenuOrMissing(); got != "김치찌개 9000" {
		t.Errorf("menu = %q", got)
	}
}

func TestCategoryCode(t *testing.T) {
	tests := map[string]string{
		"음식점":  "0",
		" 카페 ": "1",
		"콘텐츠":  "2",
		"술집":   "",
		"":     "",
	}
	for label, want := range tests {
		if got := CategoryCode(label); got != want {
			t.Errorf("CategoryCode(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestUsage_ConcurrentAdds(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UsageFromContext(ctx).AddEmbeddingTokens(3)
			UsageFromContext(ctx).AddJudgeTokens(1)
		}()
	}
	wg.Wait()

	emb, judge := u.Snapshot()
	if emb != 30 || judge != 10 {
		t.Errorf("snapshot = (%d, %d), want (30, 10)", emb, judge)
	}
}

func TestUsage_NilSafe(t *testing.T) {
	var u *Usage
	u.AddEmbeddingTokens(1)
	if emb, judge := u.Snapshot(); emb != 0 || judge != 0 {
		t.Errorf("nil usage snapshot = (%d, %d)", emb, judge)
	}
}
