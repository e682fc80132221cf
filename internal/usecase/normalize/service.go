// Package normalize turns free-text interest keywords into keywords and a search query.
package normalize

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/metrics"
	"github.com/kailas-cloud/venuerank/internal/retry"
)

// Input is the raw query as collected from the user.
type Input struct {
	Raw         string
	Category    string
	PeopleCount int
	Enhance     bool
}

// Query is the normalized form consumed by retrieval and scoring.
type Query struct {
	Keywords    []string
	SearchQuery string
}

// Service normalizes raw keyword input.
type Service struct {
	rewriter Rewriter
	policy   retry.Policy
	logger   *zap.Logger
}

// New creates a normalizer. rewriter may be nil, in which case Enhance is ignored.
func New(rewriter Rewriter, policy retry.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{rewriter: rewriter, policy: policy, logger: logger.Named("normalizer")}
}

// Normalize tokenizes and normalizes the input. It never fails: a rewriter
// failure falls back to the category label followed by the keywords.
func (s *Service) Normalize(ctx context.Context, in Input) Query {
	defer metrics.ObserveStage(metrics.StageNormalize, time.Now())

	keywords := s.applySynonyms(Tokenize(in.Raw))
	fallback := BuildQuery(in.Category, keywords)
	q := Query{Keywords: keywords, SearchQuery: fallback}

	if !in.Enhance || s.rewriter == nil || strings.TrimSpace(in.Raw) == "" {
		return q
	}

	var rewritten string
	err := retry.Do(ctx, s.policy, s.logger, func(ctx context.Context) error {
		answer, err := s.rewriter.Rewrite(ctx, in.PeopleCount, strings.TrimSpace(in.Category), strings.TrimSpace(in.Raw))
		if err != nil {
			return err
		}
		rewritten = answer
		return nil
	})
	if err != nil || strings.TrimSpace(rewritten) == "" {
		metrics.Fallback("rewriter", "exhausted")
		s.logger.Warn("Query rewrite failed, using keyword query",
			zap.String("query", fallback),
			zap.Error(err))
		return q
	}

	q.SearchQuery = strings.TrimSpace(rewritten)
	return q
}

func (s *Service) applySynonyms(keywords []string) []string {
	for i, kw := range keywords {
		if canonical, ok := synonyms[strings.ToLower(kw)]; ok {
			s.logger.Info("Keyword substituted", zap.String("from", kw), zap.String("to", canonical))
			keywords[i] = canonical
		}
	}
	return keywords
}

// Tokenize splits on whitespace and commas and drops empty tokens.
func Tokenize(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// BuildQuery joins the category label and keywords with single spaces.
func BuildQuery(category string, keywords []string) string {
	parts := make([]string, 0, len(keywords)+1)
	if category = strings.TrimSpace(category); category != "" {
		parts = append(parts, category)
	}
	parts = append(parts, keywords...)
	return strings.Join(parts, " ")
}
