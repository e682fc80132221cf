package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kailas-cloud/venuerank/internal/config"
	"github.com/kailas-cloud/venuerank/internal/domain"
	healthuc "github.com/kailas-cloud/venuerank/internal/usecase/health"
	"github.com/kailas-cloud/venuerank/internal/usecase/recommend"
)

func localConfig() config.Config {
	cfg := config.Config{
		HTTP:      config.HTTPConfig{Port: 8080},
		Index:     config.IndexConfig{Local: config.LocalIndexConfig{InMemory: true}},
		Embedding: config.EmbeddingConfig{Model: "text-embedding-3-small", APIKey: "test"},
		Venues:    config.VenuesConfig{DSN: "postgres://127.0.0.1:1/venues?sslmode=disable&connect_timeout=1"},
		Health:    config.HealthConfig{TimeoutSec: 2},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestBuild_LocalIndex(t *testing.T) {
	a, err := Build(context.Background(), localConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Recommender)
	require.NotNil(t, a.Health)

	report := a.Health.Check(context.Background())
	assert.Equal(t, healthuc.CheckOK, report.Checks["index"])
	assert.Contains(t, report.Checks, "embedding")
	assert.Contains(t, report.Checks, "venues")
	assert.NotContains(t, report.Checks, "rerank")
	assert.NotContains(t, report.Checks, "judge")
	// Postgres is unreachable in tests.
	assert.Equal(t, healthuc.Unhealthy, report.Status)
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := localConfig()
	cfg.Index.Driver = "chroma"

	_, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "unknown index driver")
}

func TestBuildReranker(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"index":0,"score":3.5}]`))
	}))
	defer healthy.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	a := &App{logger: zaptest.NewLogger(t)}
	ctx := context.Background()

	assert.Nil(t, a.buildReranker(ctx, config.RerankConfig{Enabled: false, BaseURL: healthy.URL}))
	assert.Nil(t, a.buildReranker(ctx, config.RerankConfig{Enabled: true}))
	assert.Nil(t, a.buildReranker(ctx, config.RerankConfig{Enabled: true, BaseURL: broken.URL, TimeoutSec: 1}))
	assert.NotNil(t, a.buildReranker(ctx, config.RerankConfig{Enabled: true, BaseURL: healthy.URL, TimeoutSec: 1}))
}

func TestOptionsFromConfig(t *testing.T) {
	assert.Equal(t, recommend.DefaultOptions(), OptionsFromConfig(config.RecommendConfig{}))

	floor := 0.0
	opts := OptionsFromConfig(config.RecommendConfig{
		RequestedCount: 20,
		MaxResults:     5,
		MinSimilarity:  &floor,
		Weights:        &config.Weights{Keyword: 0.75, Semantic: 0.2, Rerank: 0.05},
		Enhance:        true,
		Concurrency:    2,
	})
	assert.Equal(t, 20, opts.RequestedCount)
	assert.Equal(t, 5, opts.MaxResults)
	assert.Equal(t, 10, opts.RandomCount)
	assert.Zero(t, opts.MinSimilarity)
	assert.Equal(t, domain.Weights{Keyword: 0.75, Semantic: 0.2, Rerank: 0.05}, opts.Weights)
	assert.True(t, opts.Enhance)
	assert.Equal(t, 2, opts.Concurrency)
}

func TestClose_ReverseOrder(t *testing.T) {
	var order []int
	a := &App{}
	a.onClose(func() { order = append(order, 1) })
	a.onClose(func() { order = append(order, 2) })

	a.Close()
	a.Close()
	assert.Equal(t, []int{2, 1}, order)
}
