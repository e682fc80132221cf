package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/venuerank/internal/db"
	"github.com/kailas-cloud/venuerank/internal/domain/filter"
)

// scoreField is the distance alias FT.SEARCH attaches to KNN hits.
const scoreField = "__vector_score"

// SearchKNN runs FT.SEARCH with a KNN clause and an optional TAG pre-filter.
// Entries come back nearest first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := checkKNN(q); err != nil {
		return nil, err
	}
	cmd := s.b().Arbitrary("FT.SEARCH").Args(knnArgs(q)...).Build()
	reply, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseReply(reply)
}

func checkKNN(q *db.KNNQuery) error {
	switch {
	case q.IndexName == "":
		return errors.New("knn: index name is required")
	case len(q.Vector) == 0:
		return errors.New("knn: query vector is empty")
	case q.K <= 0:
		return fmt.Errorf("knn: k must be positive, got %d", q.K)
	}
	return nil
}

func knnArgs(q *db.KNNQuery) []string {
	k := strconv.Itoa(q.K)
	args := make([]string, 0, 16+len(q.ReturnFields))
	args = append(args, q.IndexName, knnQuery(q.Filters, q.K))
	if n := len(q.ReturnFields); n > 0 {
		args = append(args, "RETURN", strconv.Itoa(n+1), scoreField)
		args = append(args, q.ReturnFields...)
	}
	return append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", k,
		"PARAMS", "2", "BLOB", float32Blob(q.Vector),
		"DIALECT", "2",
	)
}

func knnQuery(expr filter.Expression, k int) string {
	pre := tagFilter(expr)
	if pre == "" {
		pre = "*"
	} else {
		pre = "(" + pre + ")"
	}
	return fmt.Sprintf("%s=>[KNN %d @vector $BLOB]", pre, k)
}

// tagFilter renders a conjunction of @key:{value} clauses.
func tagFilter(expr filter.Expression) string {
	clauses := make([]string, 0, len(expr.Must()))
	for _, c := range expr.Must() {
		clauses = append(clauses, "@"+c.Key()+":{"+escapeTag(c.Value())+"}")
	}
	return strings.Join(clauses, " ")
}

// escapeTag backslash-escapes ASCII punctuation and spaces. Hangul and other
// non-ASCII text passes through unchanged.
func escapeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r < 0x80 && r != '_' && !isASCIIAlnum(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// parseReply decodes [total, key1, fields1, key2, fields2, ...]. Hits without
// a parsable distance are skipped.
func parseReply(reply []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(reply) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := reply[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("knn: parse total: %w", err)
	}

	res := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(reply); i += 2 {
		if e, ok := entryOf(reply[i], reply[i+1]); ok {
			res.Entries = append(res.Entries, e)
		}
	}
	return res, nil
}

func entryOf(keyMsg, fieldsMsg rueidis.RedisMessage) (db.SearchEntry, bool) {
	key, err := keyMsg.ToString()
	if err != nil {
		return db.SearchEntry{}, false
	}
	pairs, err := fieldsMsg.ToArray()
	if err != nil {
		return db.SearchEntry{}, false
	}

	fields := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, nerr := pairs[j].ToString()
		value, verr := pairs[j+1].ToString()
		if nerr == nil && verr == nil {
			fields[name] = value
		}
	}

	raw, ok := fields[scoreField]
	if !ok {
		return db.SearchEntry{}, false
	}
	dist, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return db.SearchEntry{}, false
	}
	delete(fields, scoreField)
	return db.SearchEntry{Key: key, Distance: dist, Fields: fields}, true
}

// float32Blob packs v little-endian as FT.SEARCH expects for FLOAT32 vectors.
func float32Blob(v []float32) string {
	buf := make([]byte, 0, 4*len(v))
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return string(buf)
}
