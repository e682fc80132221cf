package domain

// Weights are the per-call fusion weights. They are not normalized.
type Weights struct {
	Keyword  float64 `json:"keyword" yaml:"keyword"`
	Semantic float64 `json:"semantic" yaml:"semantic"`
	Rerank   float64 `json:"rerank" yaml:"rerank"`
}

// ScoreBreakdown holds the clamped sub-scores of one candidate and their weighted fusion.
type ScoreBreakdown struct {
	Lexical   float64 `json:"lexical"`
	Semantic  float64 `json:"semantic"`
	Relevance float64 `json:"relevance"`
	Fused     float64 `json:"fused"`
}

// NewScoreBreakdown clamps each sub-score to [0,1] and fuses them with w.
func NewScoreBreakdown(lexical, semantic, relevance float64, w Weights) ScoreBreakdown {
	b := ScoreBreakdown{
		Lexical:   Clamp01(lexical),
		Semantic:  Clamp01(semantic),
		Relevance: Clamp01(relevance),
	}
	b.Fused = b.Lexical*w.Keyword + b.Semantic*w.Semantic + b.Relevance*w.Rerank
	return b
}

// RankedSuggestion is a candidate that survived the similarity floor.
type RankedSuggestion struct {
	VenueID       string         `json:"venue_id"`
	Breakdown     ScoreBreakdown `json:"scores"`
	EmbeddingText string         `json:"document"`
	SearchQuery   string         `json:"search_query"`
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
