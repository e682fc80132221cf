// Package judge narrows a hybrid-ranked venue list with an external language-model judge.
package judge

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/metrics"
	"github.com/kailas-cloud/venuerank/internal/retry"
)

// DefaultMaxResults caps the filtered list when the input leaves MaxResults unset.
const DefaultMaxResults = 10

var integerPattern = regexp.MustCompile(`\d+`)

// Input is a hybrid-ranked venue list with the intent it was ranked for.
type Input struct {
	Venues      []domain.VenueDetail
	Keywords    []string
	Category    string
	PeopleCount int
	MaxResults  int
}

// Service selects and reorders venues through a Completer.
type Service struct {
	judge  Completer
	policy retry.Policy
	logger *zap.Logger
}

// New creates a relevance filter. A nil judge disables filtering: Filter then
// returns the input truncated to MaxResults.
func New(judge Completer, policy retry.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{judge: judge, policy: policy, logger: logger.Named("judge")}
}

// Filter returns the judge's selection in priority order, or the input order
// truncated to MaxResults when the judge is absent, fails or answers nothing usable.
// The input slice is never modified.
func (s *Service) Filter(ctx context.Context, in Input) []domain.VenueDetail {
	defer metrics.ObserveStage(metrics.StageJudge, time.Now())

	maxResults := in.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if s.judge == nil || len(in.Venues) == 0 {
		return truncate(in.Venues, maxResults)
	}

	prompt := BuildPrompt(in, maxResults)
	var answer string
	err := retry.Do(ctx, s.policy, s.logger, func(ctx context.Context) error {
		a, err := s.judge.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		answer = a
		return nil
	})
	if err != nil {
		metrics.Fallback("judge", "exhausted")
		s.logger.Warn("Judge unavailable, keeping hybrid order",
			zap.String("category", in.Category),
			zap.Error(err))
		return truncate(in.Venues, maxResults)
	}

	indices := ParseIndices(answer, len(in.Venues), maxResults)
	if len(indices) == 0 {
		metrics.Fallback("judge", "unparseable")
		s.logger.Warn("Judge answer has no valid index, keeping hybrid order",
			zap.String("category", in.Category),
			zap.String("answer", answer))
		return truncate(in.Venues, maxResults)
	}

	out := make([]domain.VenueDetail, len(indices))
	for i, idx := range indices {
		out[i] = in.Venues[idx-1]
	}
	s.logger.Info("Judge selection applied",
		zap.String("category", in.Category),
		zap.Int("candidates", len(in.Venues)),
		zap.Ints("selected", indices))
	return out
}

// ParseIndices extracts 1-based indices in [1, n] from answer, dropping duplicates
// while preserving first-seen order, and caps the result at maxResults.
func ParseIndices(answer string, n, maxResults int) []int {
	var out []int
	seen := make(map[int]struct{})
	for _, m := range integerPattern.FindAllString(answer, -1) {
		if len(out) == maxResults {
			break
		}
		idx, err := strconv.Atoi(m)
		if err != nil || idx < 1 || idx > n {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	return out
}

func truncate(venues []domain.VenueDetail, n int) []domain.VenueDetail {
	if len(venues) > n {
		venues = venues[:n]
	}
	out := make([]domain.VenueDetail, len(venues))
	copy(out, venues)
	return out
}
