package venueindex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/domain/filter"
)

func newTestElastic(t *testing.T, handler http.HandlerFunc) *Elastic {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	e, err := NewElastic(ElasticConfig{Addresses: []string{srv.URL}, Index: "venues"})
	require.NoError(t, err)
	return e
}

func TestElasticQuery_BuildsKNNAndMapsHits(t *testing.T) {
	var body map[string]any
	e := newTestElastic(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/venues/_search", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"doc-1","_score":0.95,"_source":{"id":"101","text":"파스타 맛집","region":"마포구","category_code":"0"}},
			{"_id":"doc-2","_score":0.5,"_source":{"text":"브런치"}}
		]}}`))
	})

	got, err := e.Query(context.Background(), domain.IndexQuery{
		Vector: []float32{0.5, 0.5},
		Limit:  2,
		Filter: filter.ForVenue("마포구", "0"),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "101", got[0].ID)
	assert.Equal(t, "파스타 맛집", got[0].EmbeddingText)
	assert.InDelta(t, 0.1, got[0].Distance, 1e-9)
	assert.Equal(t, "doc-2", got[1].ID)
	assert.InDelta(t, 1.0, got[1].Distance, 1e-9)

	knn, ok := body["knn"].(map[string]any)
	require.True(t, ok, "knn clause missing")
	assert.Equal(t, "vector", knn["field"])
	assert.EqualValues(t, 2, knn["k"])
	assert.EqualValues(t, minCandidates, knn["num_candidates"])
	assert.Contains(t, knn, "filter")
}

func TestElasticQuery_NoFilterClauseWhenEmpty(t *testing.T) {
	req := buildKNNRequest(domain.IndexQuery{Vector: []float32{1}, Limit: 80})
	knn := req["knn"].(map[string]any)
	assert.NotContains(t, knn, "filter")
	assert.Equal(t, 160, knn["num_candidates"])
}

func TestElasticQuery_ErrorStatus(t *testing.T) {
	e := newTestElastic(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"index_not_found_exception"}`))
	})

	_, err := e.Query(context.Background(), domain.IndexQuery{Vector: []float32{1}, Limit: 1})
	assert.True(t, errors.Is(err, domain.ErrIndexUnavailable), "got %v", err)
}

func TestNewElastic_Validation(t *testing.T) {
	_, err := NewElastic(ElasticConfig{Index: "venues"})
	assert.Error(t, err)
	_, err = NewElastic(ElasticConfig{Addresses: []string{"http://localhost:9200"}})
	assert.Error(t, err)
}

func TestScoreToDistance(t *testing.T) {
	assert.InDelta(t, 0.0, scoreToDistance(1.0), 1e-9)
	assert.InDelta(t, 1.0, scoreToDistance(0.5), 1e-9)
	assert.InDelta(t, 2.0, scoreToDistance(0.0), 1e-9)
}
