// Package db defines the key-value and vector-search contracts served by Redis-compatible stores.
package db

import (
	"context"
	"time"
)

// Store is everything the engine needs from one Redis/Valkey deployment:
// the FT.SEARCH venue index and the query embedding cache.
type Store interface {
	KVStore
	Searcher
	Ping(ctx context.Context) error
	Close()
}

// KVStore holds opaque values. Get returns ErrKeyNotFound for missing keys.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Searcher runs filtered KNN queries over an FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
