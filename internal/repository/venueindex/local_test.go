package venueindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/domain/filter"
)

func TestLocalQuery_OrdersByDistance(t *testing.T) {
	l := newTestLocal(t)
	mustUpsert(t, l, domain.VenueDocument{ID: "far", EmbeddingText: "far"}, []float32{0, 1})
	mustUpsert(t, l, domain.VenueDocument{ID: "near", EmbeddingText: "near"}, []float32{1, 0})
	mustUpsert(t, l, domain.VenueDocument{ID: "mid", EmbeddingText: "mid"}, []float32{1, 1})

	got, err := l.Query(context.Background(), domain.IndexQuery{Vector: []float32{1, 0}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "far", got[2].ID)
	assert.InDelta(t, 0.0, got[0].Distance, 1e-9)
	assert.InDelta(t, 1.0, got[2].Distance, 1e-9)
}

func TestLocalQuery_Limit(t *testing.T) {
	l := newTestLocal(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		mustUpsert(t, l, domain.VenueDocument{ID: id}, []float32{1, 0})
	}

	got, err := l.Query(context.Background(), domain.IndexQuery{Vector: []float32{1, 0}, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLocalQuery_Filter(t *testing.T) {
	l := newTestLocal(t)
	mustUpsert(t, l, domain.VenueDocument{ID: "1", Region: "마포구", CategoryCode: "1"}, []float32{1, 0})
	mustUpsert(t, l, domain.VenueDocument{ID: "2", Region: "마포구", CategoryCode: "0"}, []float32{1, 0})
	mustUpsert(t, l, domain.VenueDocument{ID: "3", Region: "강남구", CategoryCode: "1"}, []float32{1, 0})

	tests := []struct {
		name   string
		filter filter.Expression
		want   []string
	}{
		{"region and category", filter.ForVenue("마포구", "1"), []string{"1"}},
		{"region only", filter.ForVenue("마포구", ""), []string{"1", "2"}},
		{"category only", filter.ForVenue("", "1"), []string{"1", "3"}},
		{"no filter", filter.ForVenue("", ""), []string{"1", "2", "3"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := l.Query(context.Background(), domain.IndexQuery{
				Vector: []float32{1, 0},
				Limit:  10,
				Filter: tc.filter,
			})
			require.NoError(t, err)
			ids := make([]string, len(got))
			for i, c := range got {
				ids[i] = c.ID
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestLocalUpsert_Replaces(t *testing.T) {
	l := newTestLocal(t)
	mustUpsert(t, l, domain.VenueDocument{ID: "1", EmbeddingText: "old"}, []float32{1, 0})
	mustUpsert(t, l, domain.VenueDocument{ID: "1", EmbeddingText: "new"}, []float32{1, 0})

	n, err := l.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := l.Query(context.Background(), domain.IndexQuery{Vector: []float32{1, 0}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].EmbeddingText)
}

func TestLocalDelete(t *testing.T) {
	l := newTestLocal(t)
	mustUpsert(t, l, domain.VenueDocument{ID: "1"}, []float32{1, 0})
	require.NoError(t, l.Delete(context.Background(), "1"))
	require.NoError(t, l.Delete(context.Background(), "missing"))

	n, err := l.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLocalUpsert_Validation(t *testing.T) {
	l := newTestLocal(t)
	assert.ErrorIs(t, l.Upsert(context.Background(), domain.VenueDocument{}, []float32{1}), domain.ErrInvalidRequest)
	assert.ErrorIs(t, l.Upsert(context.Background(), domain.VenueDocument{ID: "1"}, nil), domain.ErrInvalidRequest)
}

func TestLocalQuery_SkipsDimensionMismatch(t *testing.T) {
	l := newTestLocal(t)
	mustUpsert(t, l, domain.VenueDocument{ID: "3d"}, []float32{1, 0, 0})
	mustUpsert(t, l, domain.VenueDocument{ID: "2d"}, []float32{1, 0})

	got, err := l.Query(context.Background(), domain.IndexQuery{Vector: []float32{1, 0}, Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2d", got[0].ID)
}

func TestLocalQuery_CancelledContext(t *testing.T) {
	l := newTestLocal(t)
	mustUpsert(t, l, domain.VenueDocument{ID: "1"}, []float32{1, 0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Query(ctx, domain.IndexQuery{Vector: []float32{1, 0}, Limit: 5})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalHealthCheck(t *testing.T) {
	l, err := OpenLocal("", true, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, l.HealthCheck(context.Background()))
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.HealthCheck(context.Background()), domain.ErrIndexUnavailable)
}

func TestCosineDistance_ZeroVector(t *testing.T) {
	assert.Equal(t, 1.0, cosineDistance([]float32{0, 0}, 0, []float32{1, 0}))
}
