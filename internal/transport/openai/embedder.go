package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
)

// Config holds the query embedding endpoint settings.
type Config struct {
	APIKey  string
	BaseURL string
	// Model must match the model the venue index was built with.
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Embedder embeds search queries through an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger
}

var _ domain.Embedder = (*Embedder)(nil)

// NewEmbedder creates a query embedder.
func NewEmbedder(cfg *Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client: newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:  openai.EmbeddingModel(cfg.Model),
		logger: logger.Named("embedder"),
	}
}

// Embed returns the vector of text together with the billed tokens.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		e.logger.Debug("Embedding request failed", zap.String("model", string(e.model)), zap.Error(err))
		return domain.EmbeddingResult{}, parseAPIError("embedding", err, domain.ErrEmbeddingProviderError)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
