package scoring

import (
	"math"
	"strings"
)

const (
	matchWeight     = 0.7
	frequencyWeight = 0.3
	frequencyScale  = 5.0

	rerankOffset = 10.0
	rerankSpan   = 20.0
)

// LexicalScore measures how well keywords occur in text, case-insensitively.
// It returns 0.7*matchRatio + 0.3*min(1, log1p(occurrences)/5), or 0 without keywords.
func LexicalScore(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)

	found, occurrences := 0, 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if n := strings.Count(lower, kw); n > 0 {
			found++
			occurrences += n
		}
	}

	matchRatio := float64(found) / float64(len(keywords))
	frequency := math.Min(1, math.Log1p(float64(occurrences))/frequencyScale)
	return matchRatio*matchWeight + frequency*frequencyWeight
}

// SemanticScore converts an index distance to a similarity in [0,1].
func SemanticScore(distance float64) float64 {
	return math.Max(0, math.Min(1, 1-distance))
}

// NormalizeRerank maps a raw cross-encoder logit, centered near ±10, to [0,1].
func NormalizeRerank(raw float64) float64 {
	return math.Max(0, math.Min(1, (raw+rerankOffset)/rerankSpan))
}
