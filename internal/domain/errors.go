package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed recommendation request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrVenueNotFound signals a venue id with no storage record.
	ErrVenueNotFound = errors.New("venue not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrIndexUnavailable signals a vector index failure.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrRerankerUnavailable signals a pairwise re-ranker failure.
	ErrRerankerUnavailable = errors.New("reranker unavailable")
	// ErrJudgeUnavailable signals a failed call to a language-model judge.
	ErrJudgeUnavailable = errors.New("judge unavailable")
	// ErrEmptyAnswer signals a judge response with no usable content.
	ErrEmptyAnswer = errors.New("empty judge answer")
)
