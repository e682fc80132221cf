// Package app assembles the recommendation engine from configuration.
// Both the HTTP server and the CLI build their dependencies here.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/config"
	dbRedis "github.com/kailas-cloud/venuerank/internal/db/redis"
	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/metrics"
	"github.com/kailas-cloud/venuerank/internal/repository/embcache"
	venuerepo "github.com/kailas-cloud/venuerank/internal/repository/venue"
	"github.com/kailas-cloud/venuerank/internal/repository/venueindex"
	"github.com/kailas-cloud/venuerank/internal/retry"
	"github.com/kailas-cloud/venuerank/internal/transport/langchain"
	openaiTransport "github.com/kailas-cloud/venuerank/internal/transport/openai"
	"github.com/kailas-cloud/venuerank/internal/transport/rerank"
	"github.com/kailas-cloud/venuerank/internal/usecase/detail"
	embeddinguc "github.com/kailas-cloud/venuerank/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/venuerank/internal/usecase/health"
	"github.com/kailas-cloud/venuerank/internal/usecase/judge"
	"github.com/kailas-cloud/venuerank/internal/usecase/normalize"
	"github.com/kailas-cloud/venuerank/internal/usecase/recommend"
	"github.com/kailas-cloud/venuerank/internal/usecase/retrieval"
	"github.com/kailas-cloud/venuerank/internal/usecase/scoring"
)

const judgeSystemPrompt = "당신은 모임 장소를 추천하는 전문가입니다. 요청된 형식으로만 답변하세요."

// App holds the wired engine and the resources it owns.
type App struct {
	Recommender *recommend.Service
	Health      *healthuc.Service

	closers []func()
	logger  *zap.Logger
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(fn func()) { a.closers = append(a.closers, fn) }

// Build connects to every configured collaborator and wires the pipeline.
// Optional collaborators (reranker, judge, rewriter, cache) that are disabled or
// unreachable are left out and the pipeline degrades around them.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	var components []healthuc.Component

	index, indexChecker, err := a.buildIndex(ctx, cfg.Index)
	if err != nil {
		return nil, err
	}
	components = append(components, healthuc.Component{Name: "index", Checker: indexChecker, Required: true})

	embedder, cache, err := a.buildEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	components = append(components, healthuc.Component{Name: "embedding", Checker: embeddingChecker{embedder}, Required: true})
	if cache != nil {
		components = append(components, healthuc.Component{Name: "embedding_cache", Checker: cache})
	}

	venues, err := venuerepo.Open(venuerepo.Config{
		DSN:             cfg.Venues.DSN,
		MaxOpenConns:    cfg.Venues.MaxOpenConns,
		MaxIdleConns:    cfg.Venues.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Venues.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("venue store: %w", err)
	}
	a.onClose(func() { _ = venues.Close() })
	components = append(components, healthuc.Component{Name: "venues", Checker: venues, Required: true})

	// Pass nil interface (not typed nil pointer!) when a collaborator is absent.
	var reranker scoring.Reranker
	if rr := a.buildReranker(ctx, cfg.Rerank); rr != nil {
		reranker = rr
		components = append(components, healthuc.Component{Name: "rerank", Checker: rr})
	}

	var completer judge.Completer
	if cfg.Judge.Enabled() {
		j := openaiTransport.NewJudge(&openaiTransport.JudgeConfig{
			APIKey:       cfg.Judge.APIKey,
			BaseURL:      cfg.Judge.BaseURL,
			Model:        cfg.Judge.Model,
			SystemPrompt: judgeSystemPrompt,
			Temperature:  float32(cfg.Judge.Temperature),
			MaxTokens:    cfg.Judge.MaxTokens,
			Timeout:      time.Duration(cfg.Judge.TimeoutSec) * time.Second,
			Logger:       logger,
		})
		completer = j
		components = append(components, healthuc.Component{Name: "judge", Checker: j})
	} else {
		logger.Info("Relevance judge disabled, hybrid ranking is returned as is")
	}

	var rewriter normalize.Rewriter
	if cfg.Rewriter.Enabled() {
		rw, rwErr := langchain.New(langchain.Config{
			BaseURL:     cfg.Rewriter.BaseURL,
			APIKey:      cfg.Rewriter.APIKey,
			Model:       cfg.Rewriter.Model,
			Temperature: cfg.Rewriter.Temperature,
			MaxTokens:   cfg.Rewriter.MaxTokens,
		}, logger)
		if rwErr != nil {
			logger.Warn("Query rewriter unavailable, using keyword queries", zap.Error(rwErr))
		} else {
			rewriter = rw
		}
	}

	scorer, err := scoring.New(cfg.Scoring.PoolSize, reranker, logger)
	if err != nil {
		return nil, fmt.Errorf("scoring pool: %w", err)
	}
	a.onClose(scorer.Release)

	a.Recommender = recommend.New(
		normalize.New(rewriter, policyOf(cfg.Rewriter), logger),
		retrieval.New(embedder, index, logger),
		scorer,
		detail.New(venues, logger),
		judge.New(completer, policyOf(cfg.Judge), logger),
		venues,
		OptionsFromConfig(cfg.Recommend),
		logger,
	)
	a.Health = healthuc.New(time.Duration(cfg.Health.TimeoutSec)*time.Second, components...)

	logger.Info("Engine ready",
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("rerank", reranker != nil),
		zap.Bool("judge", completer != nil),
		zap.Bool("rewriter", rewriter != nil),
		zap.Int("scoring_pool", cfg.Scoring.PoolSize),
	)
	return a, nil
}

// OptionsFromConfig converts the recommend section into pipeline options.
func OptionsFromConfig(rc config.RecommendConfig) recommend.Options {
	opts := recommend.DefaultOptions()
	if rc.RequestedCount > 0 {
		opts.RequestedCount = rc.RequestedCount
	}
	if rc.MaxResults > 0 {
		opts.MaxResults = rc.MaxResults
	}
	if rc.RandomCount > 0 {
		opts.RandomCount = rc.RandomCount
	}
	if rc.MinSimilarity != nil {
		opts.MinSimilarity = *rc.MinSimilarity
	}
	if rc.Multiplier > 0 {
		opts.Multiplier = rc.Multiplier
	}
	if rc.Weights != nil {
		opts.Weights = domain.Weights{
			Keyword:  rc.Weights.Keyword,
			Semantic: rc.Weights.Semantic,
			Rerank:   rc.Weights.Rerank,
		}
	}
	if rc.Concurrency > 0 {
		opts.Concurrency = rc.Concurrency
	}
	opts.Enhance = rc.Enhance
	return opts
}

func policyOf(c config.LLMConfig) retry.Policy {
	return retry.Policy{
		Attempts: c.Attempts,
		Delay:    time.Duration(c.RetryDelayMs) * time.Millisecond,
		Timeout:  time.Duration(c.TimeoutSec) * time.Second,
	}
}

func (a *App) buildIndex(ctx context.Context, ic config.IndexConfig) (domain.VenueIndex, healthuc.Checker, error) {
	switch ic.Driver {
	case config.IndexDriverLocal:
		idx, err := venueindex.OpenLocal(ic.Local.Dir, ic.Local.InMemory, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("local index: %w", err)
		}
		a.onClose(func() { _ = idx.Close() })
		return idx, idx, nil

	case config.IndexDriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    ic.Redis.Addrs,
			Password: ic.Redis.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis index: %w", err)
		}
		a.onClose(store.Close)
		if err := store.WaitForReady(ctx, time.Duration(ic.Redis.ReadinessTimeout)*time.Second); err != nil {
			return nil, nil, fmt.Errorf("redis index not ready: %w", err)
		}
		a.logger.Info("Connected to redis index", zap.Strings("addrs", ic.Redis.Addrs))
		idx := venueindex.NewRemote(store, ic.Redis.IndexName, ic.Redis.KeyPrefix)
		return idx, idx, nil

	case config.IndexDriverElastic:
		idx, err := venueindex.NewElastic(venueindex.ElasticConfig{
			Addresses: ic.Elastic.Addresses,
			Username:  ic.Elastic.Username,
			Password:  ic.Elastic.Password,
			Index:     ic.Elastic.Index,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("elasticsearch index: %w", err)
		}
		return idx, idx, nil
	}
	return nil, nil, fmt.Errorf("unknown index driver %q", ic.Driver)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func (a *App) buildEmbedder(ec config.EmbeddingConfig) (domain.Embedder, healthuc.Checker, error) {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:  ec.APIKey,
		BaseURL: ec.BaseURL,
		Model:   ec.Model,
		Timeout: time.Duration(ec.TimeoutSec) * time.Second,
		Logger:  a.logger,
	})

	var (
		embedder domain.Embedder = base
		cache    healthuc.Checker
	)
	if ec.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    ec.Cache.Addrs,
			Password: ec.Cache.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("embedding cache: %w", err)
		}
		a.onClose(store.Close)
		cached := embcache.New(base, store, ec.Model,
			time.Duration(ec.Cache.TTLSec)*time.Second, metrics.EmbeddingCacheTotal, a.logger)
		embedder, cache = cached, cached
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, a.logger)

	// Outermost, so cache keys include the instruction.
	return embeddinguc.WithInstruction(embedder, ec.QueryInstruction), cache, nil
}

// buildReranker returns nil when re-ranking is disabled or the service fails its startup probe.
func (a *App) buildReranker(ctx context.Context, rc config.RerankConfig) *rerank.Client {
	if !rc.Enabled {
		return nil
	}
	client, err := rerank.New(rerank.Config{
		BaseURL: rc.BaseURL,
		APIKey:  rc.APIKey,
		Timeout: time.Duration(rc.TimeoutSec) * time.Second,
	})
	if err != nil {
		a.logger.Warn("Reranker misconfigured, relevance falls back to semantic score", zap.Error(err))
		return nil
	}
	if err := client.Probe(ctx); err != nil {
		a.logger.Warn("Reranker unreachable, relevance falls back to semantic score", zap.Error(err))
		return nil
	}
	return client
}

// embeddingChecker adapts domain.Embedder to health.Checker.
type embeddingChecker struct {
	embedder domain.Embedder
}

func (c embeddingChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := c.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
