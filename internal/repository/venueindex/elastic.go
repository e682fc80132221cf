package venueindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/domain/filter"
)

const (
	esVectorField = "vector"
	esTextField   = "text"
	minCandidates = 100
)

// ElasticConfig holds connection parameters for the Elasticsearch index.
type ElasticConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// Elastic implements domain.VenueIndex over an Elasticsearch dense_vector field (cosine similarity).
type Elastic struct {
	client *elasticsearch.Client
	index  string
}

var _ domain.VenueIndex = (*Elastic)(nil)

// NewElastic creates an Elasticsearch-backed index.
func NewElastic(cfg ElasticConfig) (*Elastic, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch addresses are required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("elasticsearch index is required")
	}

	esCfg := elasticsearch.Config{Addresses: cfg.Addresses}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Elastic{client: es, index: cfg.Index}, nil
}

type esHit struct {
	ID     string  `json:"_id"`
	Score  float64 `json:"_score"`
	Source struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		Region        string `json:"region"`
		CategoryCode  string `json:"category_code"`
		BusinessHours string `json:"business_hours"`
	} `json:"_source"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

// Query runs a knn search with the metadata filter applied inside the knn clause.
func (e *Elastic) Query(ctx context.Context, q domain.IndexQuery) ([]domain.Candidate, error) {
	if q.Limit <= 0 || len(q.Vector) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(buildKNNRequest(q))
	if err != nil {
		return nil, fmt.Errorf("marshal knn request: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: elasticsearch search error: %s: %s", domain.ErrIndexUnavailable, res.Status(), msg)
	}

	var sr esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		id := h.Source.ID
		if id == "" {
			id = h.ID
		}
		out = append(out, domain.Candidate{
			ID:            id,
			EmbeddingText: h.Source.Text,
			Region:        h.Source.Region,
			CategoryCode:  h.Source.CategoryCode,
			BusinessHours: h.Source.BusinessHours,
			Distance:      scoreToDistance(h.Score),
		})
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// HealthCheck pings the cluster.
func (e *Elastic) HealthCheck(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: elasticsearch ping failed: %w", domain.ErrIndexUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: elasticsearch ping error: %s", domain.ErrIndexUnavailable, res.Status())
	}
	return nil
}

func buildKNNRequest(q domain.IndexQuery) map[string]any {
	knn := map[string]any{
		"field":          esVectorField,
		"query_vector":   q.Vector,
		"k":              q.Limit,
		"num_candidates": max(q.Limit*2, minCandidates),
	}
	if !q.Filter.IsEmpty() {
		terms := make([]map[string]any, 0, len(q.Filter.Must()))
		for _, c := range q.Filter.Must() {
			terms = append(terms, map[string]any{
				"term": map[string]any{c.Key(): c.Value()},
			})
		}
		knn["filter"] = map[string]any{"bool": map[string]any{"filter": terms}}
	}
	return map[string]any{
		"knn":  knn,
		"size": q.Limit,
		"_source": []string{
			"id", esTextField, filter.KeyRegion, filter.KeyCategoryCode, filter.KeyBusinessHours,
		},
	}
}

// scoreToDistance inverts the cosine _score ((1+cos)/2) back to cosine distance (1-cos).
func scoreToDistance(score float64) float64 {
	return 1 - (2*score - 1)
}
