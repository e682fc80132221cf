package venueindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/domain/filter"
)

const localKeyPrefix = "venue:"

// localRecord is the badger value layout of an indexed venue.
type localRecord struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Region        string    `json:"region,omitempty"`
	CategoryCode  string    `json:"category_code,omitempty"`
	BusinessHours string    `json:"business_hours,omitempty"`
	Vector        []float32 `json:"vector"`
}

func (r localRecord) meta() map[string]string {
	return map[string]string{
		filter.KeyRegion:        r.Region,
		filter.KeyCategoryCode:  r.CategoryCode,
		filter.KeyBusinessHours: r.BusinessHours,
	}
}

// badgerLogger adapts zap to the badger.Logger interface.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any)   { l.logger.Errorf(strings.TrimSpace(msg), args...) }
func (l *badgerLogger) Warningf(msg string, args ...any) { l.logger.Warnf(strings.TrimSpace(msg), args...) }
func (l *badgerLogger) Infof(msg string, args ...any)    { l.logger.Debugf(strings.TrimSpace(msg), args...) }
func (l *badgerLogger) Debugf(msg string, args ...any)   { l.logger.Debugf(strings.TrimSpace(msg), args...) }

// Local is an in-process VenueIndex over badger with brute-force cosine search.
type Local struct {
	db *badger.DB
}

var _ domain.VenueIndex = (*Local)(nil)

// OpenLocal opens a badger-backed index at dir. An empty dir or inMemory=true keeps
// everything in memory.
func OpenLocal(dir string, inMemory bool, logger *zap.Logger) (*Local, error) {
	var opts badger.Options
	if inMemory || dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Local{db: bdb}, nil
}

// Close releases the badger database.
func (l *Local) Close() error {
	return l.db.Close()
}

// Upsert stores or replaces a venue document together with its vector.
func (l *Local) Upsert(_ context.Context, doc domain.VenueDocument, vector []float32) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: venue id is required", domain.ErrInvalidRequest)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: vector is required", domain.ErrInvalidRequest)
	}
	data, err := json.Marshal(localRecord{
		ID:            doc.ID,
		Text:          doc.EmbeddingText,
		Region:        doc.Region,
		CategoryCode:  doc.CategoryCode,
		BusinessHours: doc.BusinessHours,
		Vector:        vector,
	})
	if err != nil {
		return fmt.Errorf("marshal venue %s: %w", doc.ID, err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(localKeyPrefix+doc.ID), data)
	})
}

// Delete removes a venue. Deleting an absent id is not an error.
func (l *Local) Delete(_ context.Context, id string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(localKeyPrefix + id))
	})
}

// Count returns the number of indexed venues.
func (l *Local) Count(_ context.Context) (int, error) {
	n := 0
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(localKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Query scans every record, applies the metadata filter and returns the
// nearest Limit venues by cosine distance.
func (l *Local) Query(ctx context.Context, q domain.IndexQuery) ([]domain.Candidate, error) {
	if q.Limit <= 0 || len(q.Vector) == 0 {
		return nil, nil
	}
	qNorm := norm(q.Vector)

	var out []domain.Candidate
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(localKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec localRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if len(rec.Vector) != len(q.Vector) || !q.Filter.Matches(rec.meta()) {
				continue
			}
			out = append(out, domain.Candidate{
				ID:            rec.ID,
				EmbeddingText: rec.Text,
				Region:        rec.Region,
				CategoryCode:  rec.CategoryCode,
				BusinessHours: rec.BusinessHours,
				Distance:      cosineDistance(q.Vector, qNorm, rec.Vector),
			})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	slices.SortStableFunc(out, func(a, b domain.Candidate) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// HealthCheck reports whether the database is open.
func (l *Local) HealthCheck(_ context.Context) error {
	if l.db.IsClosed() {
		return fmt.Errorf("%w: local index closed", domain.ErrIndexUnavailable)
	}
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosineDistance returns 1 - cos(a, b). Zero vectors are maximally distant.
func cosineDistance(a []float32, aNorm float64, b []float32) float64 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot/(aNorm*bNorm)
}
