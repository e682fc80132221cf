// Package rerank is an HTTP client for a cross-encoder re-ranking service.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/metrics"
)

const probeQuery = "카페"

// Config holds the re-ranking service settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client scores (query, text) pairs through POST {base}/rerank.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// New creates a re-ranking client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rerank base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Rerank returns one raw (unbounded) score per text, aligned with texts.
func (c *Client) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	scores, err := c.rerank(ctx, query, texts)
	metrics.ObserveExternal("rerank", start, err)
	return scores, err
}

func (c *Client) rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts, RawScores: true})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w: %w", domain.ErrRerankerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank status %d: %s: %w", resp.StatusCode, msg, domain.ErrRerankerUnavailable)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w: %w", domain.ErrRerankerUnavailable, err)
	}

	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("rerank index %d out of range: %w", r.Index, domain.ErrRerankerUnavailable)
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank missing score for text %d: %w", i, domain.ErrRerankerUnavailable)
		}
	}
	return scores, nil
}

// Probe scores a single pair to confirm the service is usable.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.Rerank(ctx, probeQuery, []string{probeQuery})
	return err
}

// HealthCheck implements domain.HealthChecker.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Probe(ctx)
}
