package venueindex

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/kailas-cloud/venuerank/internal/db"
	"github.com/kailas-cloud/venuerank/internal/domain"
)

// mockSearchStore implements searchStore for tests.
type mockSearchStore struct {
	pingErr     error
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockSearchStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockSearchStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := OpenLocal("", true, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func mustUpsert(t *testing.T, l *Local, doc domain.VenueDocument, vec []float32) {
	t.Helper()
	if err := l.Upsert(context.Background(), doc, vec); err != nil {
		t.Fatalf("Upsert %s: %v", doc.ID, err)
	}
}
