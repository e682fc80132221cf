// Package langchain adapts langchaingo chat models to the query rewriting contract.
package langchain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/metrics"
)

const systemPrompt = `당신은 매장 검색을 위한 쿼리 최적화 전문가입니다.
사용자의 입력을 검색에 최적화된 간결한 한국어로 변환하세요.

중요 규칙:
- 핵심 키워드만 간결하게 유지 (과도한 설명 금지)
- 형용사 형태로 자연스럽게 연결
- 2-4단어로 구성 (너무 길면 검색 정확도 떨어짐)
- 구어체나 띄어쓰기 오류만 수정
- 한국어로만 답변`

// Config holds the rewriter model settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Rewriter turns raw user keywords into a short natural search sentence.
type Rewriter struct {
	model       llms.Model
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// New creates a rewriter backed by an OpenAI-compatible chat endpoint.
func New(cfg Config, logger *zap.Logger) (*Rewriter, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create rewriter model: %w", err)
	}
	return NewWithModel(model, cfg.Temperature, cfg.MaxTokens, logger), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, temperature float64, maxTokens int, logger *zap.Logger) *Rewriter {
	return &Rewriter{
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger.Named("rewriter"),
	}
}

// Rewrite asks the model for a rewritten query. The answer is stripped of
// surrounding quotes and trailing periods.
func (r *Rewriter) Rewrite(ctx context.Context, peopleCount int, category, keyword string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, BuildPrompt(peopleCount, category, keyword)),
	}

	opts := []llms.CallOption{llms.WithTemperature(r.temperature)}
	if r.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(r.maxTokens))
	}

	start := time.Now()
	resp, err := r.model.GenerateContent(ctx, content, opts...)
	metrics.ObserveExternal("rewrite", start, err)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices: %w", domain.ErrEmptyAnswer)
	}

	answer := CleanAnswer(resp.Choices[0].Content)
	if answer == "" {
		return "", fmt.Errorf("blank content: %w", domain.ErrEmptyAnswer)
	}
	r.logger.Info("Query rewritten", zap.String("keyword", keyword), zap.String("query", answer))
	return answer, nil
}

// CleanAnswer trims whitespace, quotes and periods from both ends.
func CleanAnswer(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'.`)
}

// BuildPrompt renders the user message. Group size is mentioned only for a single visitor.
func BuildPrompt(peopleCount int, category, keyword string) string {
	var contextParts []string
	if peopleCount == 1 {
		contextParts = append(contextParts, "혼자 방문")
	}
	if category != "" {
		contextParts = append(contextParts, "타입: "+category)
	}
	situation := "제약 없음"
	if len(contextParts) > 0 {
		situation = strings.Join(contextParts, ", ")
	}

	var b strings.Builder
	b.WriteString("다음 사용자 입력을 검색에 최적화된 간결한 한국어로 변환하세요.\n\n")
	b.WriteString("<사용자 입력>\n")
	b.WriteString(keyword)
	b.WriteString("\n\n<상황 정보>\n")
	b.WriteString(situation)
	if peopleCount > 0 {
		b.WriteString(" (인원 ")
		b.WriteString(strconv.Itoa(peopleCount))
		b.WriteString("명)")
	}
	b.WriteString(`

<변환 규칙>
1. 핵심 키워드만 유지 (2-4단어)
2. 1명일 때만 "혼자" 키워드 포함
3. 형용사 형태로 자연스럽게 연결
4. 쉼표나 불필요한 조사 제거

<변환 예시>
입력: "조용하고 분위기좋은곳" (1명)
출력: 혼자 가기 좋은 조용한 곳

입력: "데이트하기딱좋음" (2명)
출력: 데이트하기 좋은

입력: "삼겹살, 저렴한, 된장찌개" (2명 이상, 음식점)
출력: 저렴한 삼겹살 된장찌개

입력: "쑥라떼, 에끌레어" (2명 이상, 카페)
출력: 쑥라떼 에끌레어

변환된 검색어 (2-4단어, 한국어로만):`)
	return b.String()
}
