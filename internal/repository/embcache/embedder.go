// Package embcache caches query embeddings in a Redis-compatible key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/venuerank/internal/db"
	"github.com/kailas-cloud/venuerank/internal/domain"
)

const keyPrefix = "venuerank:emb_cache:"

// Lookup results used as the "result" label.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder serves repeated search queries from the store. Concurrent
// misses for the same query share one provider call.
type CachedEmbedder struct {
	inner   domain.Embedder
	store   store
	model   string
	ttl     time.Duration
	lookups *prometheus.CounterVec
	flight  singleflight.Group
	logger  *zap.Logger
}

var _ domain.Embedder = (*CachedEmbedder)(nil)

// New creates a caching decorator. Keys are scoped by model so a model switch
// never serves vectors of another dimension. ttl <= 0 stores without expiry.
// lookups, if non-nil, counts lookups by "result" (hit, miss, error).
func New(
	inner domain.Embedder,
	s store,
	model string,
	ttl time.Duration,
	lookups *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:   inner,
		store:   s,
		model:   model,
		ttl:     ttl,
		lookups: lookups,
		logger:  logger.Named("embcache"),
	}
}

// Embed returns the cached vector or embeds text and caches the result.
// Cached results report zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.load(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	leader := false
	v, err, _ := c.flight.Do(key, func() (any, error) {
		leader = true
		res, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.save(ctx, key, res.Embedding)
		return res, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}
	res := v.(domain.EmbeddingResult)
	if !leader {
		// Only the caller that made the request is billed.
		res.PromptTokens, res.TotalTokens = 0, 0
	}
	return res, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) load(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound), err == nil && len(data) == 0:
		c.count(resultMiss)
		return nil, false
	case err != nil:
		c.count(resultError)
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decodeVector(data)
	if err != nil {
		c.count(resultError)
		c.logger.Warn("Discarding corrupt cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	c.count(resultHit)
	return vec, true
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, encodeVector(vec), c.ttl); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

// encodeVector stores float32 values little-endian, 4 bytes each.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("cached embedding length %d is not a multiple of 4", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
