package confdata

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"
)

// Query provides a fluent interface for filtered prefix scans.
// The same filter drives both All and Count, so a paginated result list
// and its reported total can never disagree about what matched.
type Query struct {
	store      *Store
	prefix     string
	filterFunc func([]byte) bool
	limit      int
	offset     int
}

// Query creates a new query for objects with the given prefix
func (s *Store) Query(prefix string) *Query {
	return &Query{
		store:  s,
		prefix: prefix,
		limit:  -1, // No limit by default
	}
}

// Filter adds a filter function to the query.
// The filter receives raw JSON bytes and should return true if the object matches.
func (q *Query) Filter(fn func(data []byte) bool) *Query {
	q.filterFunc = fn
	return q
}

// FilterJSON adds a filter function that works with unmarshaled objects.
// This is a convenience wrapper around Filter.
func (q *Query) FilterJSON(fn func(obj map[string]interface{}) bool) *Query {
	q.filterFunc = func(data []byte) bool {
		var obj map[string]interface{}
		if err := json.Unmarshal(data, &obj); err != nil {
			return false
		}
		return fn(obj)
	}
	return q
}

// FilterFields matches objects whose top-level string fields equal every
// value in the given map. Empty values are ignored (no constraint).
func (q *Query) FilterFields(fields map[string]string) *Query {
	active := make(map[string]string)
	for k, v := range fields {
		if v != "" {
			active[k] = v
		}
	}
	if len(active) == 0 {
		return q
	}
	return q.FilterJSON(func(obj map[string]interface{}) bool {
		for k, want := range active {
			got, ok := obj[k].(string)
			if !ok || got != want {
				return false
			}
		}
		return true
	})
}

// Limit sets the maximum number of results to return
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset sets the number of results to skip
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// matching scans the prefix and returns the raw bytes of every object
// passing the filter, in key order.
func (q *Query) matching(ctx context.Context) ([][]byte, error) {
	keys, err := q.store.backend.List(ctx, q.prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	var results [][]byte
	for _, key := range keys {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		data, err := q.store.backend.Get(ctx, key)
		if err != nil {
			continue // Skip objects deleted mid-scan
		}

		if q.filterFunc != nil && !q.filterFunc(data) {
			continue
		}

		results = append(results, data)
	}

	return results, nil
}

// All executes the query and unmarshals all matching objects into dest.
// dest should be a pointer to a slice of the appropriate type.
func (q *Query) All(ctx context.Context, dest interface{}) error {
	start := time.Now()

	matched, err := q.matching(ctx)
	if err != nil {
		return err
	}

	// Apply offset and limit to the filtered set
	if q.offset > 0 {
		if q.offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.offset:]
		}
	}
	if q.limit >= 0 && len(matched) > q.limit {
		matched = matched[:q.limit]
	}

	// Assemble a JSON array and decode it in one pass
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, data := range matched {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(data)
	}
	buf.WriteByte(']')

	q.store.metrics.Timing(MetricQueryDuration, time.Since(start))
	q.store.metrics.Gauge(MetricQueryResults, float64(len(matched)))

	return json.Unmarshal(buf.Bytes(), dest)
}

// Count returns the number of objects matching the query's filter,
// ignoring offset and limit.
func (q *Query) Count(ctx context.Context) (int, error) {
	matched, err := q.matching(ctx)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}
