package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/venuerank/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", APIKey: "secret", Timeout: time.Second})
	require.NoError(t, err)
	return c
}

func TestRerank_AlignsScoresByIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req rerankRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "조용한 카페", req.Query)
		assert.True(t, req.RawScores)
		assert.Len(t, req.Texts, 3)

		// service returns results sorted by score, not by input order
		_, _ = w.Write([]byte(`[{"index":2,"score":7.5},{"index":0,"score":1.25},{"index":1,"score":-9}]`))
	})

	scores, err := c.Rerank(context.Background(), "조용한 카페", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.25, -9, 7.5}, scores)
}

func TestRerank_Empty(t *testing.T) {
	c := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("service must not be called for empty input")
	})

	scores, err := c.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestRerank_ErrorCases(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}},
		{"index out of range", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"index":5,"score":1}]`))
		}},
		{"missing score", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"index":0,"score":1}]`))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.h)
			_, err := c.Rerank(context.Background(), "q", []string{"a", "b"})
			assert.True(t, errors.Is(err, domain.ErrRerankerUnavailable), "got %v", err)
		})
	}
}

func TestProbe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"score":3.2}]`))
	})
	assert.NoError(t, c.Probe(context.Background()))
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
