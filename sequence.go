package confdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// NextSequentialID derives the next human-readable identifier for an
// entity type from the identifier of the current last record.
//
// An empty lastID means the collection is empty and yields "<prefix>001".
// Otherwise lastID must parse as <prefix><digits>; the result is the
// numeric suffix plus one, zero-padded to a minimum width of 3. The
// padding is a minimum, not a cap: after "<prefix>999" comes
// "<prefix>1000".
func NextSequentialID(prefix, lastID string) (string, error) {
	if lastID == "" {
		return fmt.Sprintf("%s%03d", prefix, 1), nil
	}

	suffix, ok := strings.CutPrefix(lastID, prefix)
	if !ok || suffix == "" {
		return "", WithContext(ErrMalformedID, map[string]interface{}{
			"id":     lastID,
			"prefix": prefix,
		})
	}

	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return "", WithContext(ErrMalformedID, map[string]interface{}{
			"id":     lastID,
			"prefix": prefix,
		})
	}

	return fmt.Sprintf("%s%03d", prefix, n+1), nil
}

// idFromKey extracts the document identifier from a storage key like
// "users/u001.json".
func idFromKey(key string) string {
	id := key
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
	}
	return strings.TrimSuffix(id, ".json")
}

// MaxNumericSuffix scans a collection and returns the largest numeric
// identifier suffix for the given prefix, comparing numerically rather
// than lexicographically (so "u1000" outranks "u999"). Returns 0 for an
// empty collection.
func MaxNumericSuffix(ctx context.Context, store *Store, collection, prefix string) (int, error) {
	keys, err := store.List(ctx, collection+"/")
	if err != nil {
		return 0, err
	}

	max := 0
	for _, key := range keys {
		suffix, ok := strings.CutPrefix(idFromKey(key), prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

// SequenceAllocator mints sequential entity identifiers.
//
// With redis available each prefix is backed by an atomic INCR counter,
// lazily seeded from the highest identifier already in the collection.
// Concurrent creators then never observe the same value. Without redis
// the allocator falls back to the original last-record scan, which is
// race-prone under concurrent writers.
type SequenceAllocator struct {
	store   *Store
	redis   *redis.Client
	logger  Logger
	metrics Metrics

	seedOnce sync.Map // prefix -> *sync.Once
}

// NewSequenceAllocator creates an allocator. The redis client may be nil,
// in which case allocation degrades to the scan-based fallback.
func NewSequenceAllocator(store *Store, rdb *redis.Client, logger Logger, metrics Metrics) *SequenceAllocator {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if metrics == nil {
		metrics = &NoOpMetrics{}
	}
	return &SequenceAllocator{
		store:   store,
		redis:   rdb,
		logger:  logger,
		metrics: metrics,
	}
}

func (a *SequenceAllocator) counterKey(prefix string) string {
	return "sequence:" + prefix
}

// Next returns the next identifier for the entity type identified by
// prefix, whose documents live in the given collection.
func (a *SequenceAllocator) Next(ctx context.Context, collection, prefix string) (string, error) {
	if a.redis == nil {
		return a.nextFromScan(ctx, collection, prefix)
	}

	if err := a.seed(ctx, collection, prefix); err != nil {
		a.logger.Warn("sequence seed failed, falling back to scan",
			"prefix", prefix, "error", err)
		return a.nextFromScan(ctx, collection, prefix)
	}

	n, err := a.redis.Incr(ctx, a.counterKey(prefix)).Result()
	if err != nil {
		a.metrics.Increment(MetricSequenceError)
		a.logger.Warn("sequence increment failed, falling back to scan",
			"prefix", prefix, "error", err)
		return a.nextFromScan(ctx, collection, prefix)
	}

	a.metrics.Increment(MetricSequenceNext)
	return fmt.Sprintf("%s%03d", prefix, n), nil
}

// seed initializes the counter from the collection's highest existing
// identifier, once per prefix per process. SetNX keeps a counter that
// already exists (from a previous process) untouched.
func (a *SequenceAllocator) seed(ctx context.Context, collection, prefix string) error {
	onceVal, _ := a.seedOnce.LoadOrStore(prefix, &sync.Once{})
	once := onceVal.(*sync.Once)

	var seedErr error
	once.Do(func() {
		max, err := MaxNumericSuffix(ctx, a.store, collection, prefix)
		if err != nil {
			seedErr = err
			return
		}
		seedErr = a.redis.SetNX(ctx, a.counterKey(prefix), max, 0).Err()
	})
	if seedErr != nil {
		// Allow a later call to retry the seed
		a.seedOnce.Delete(prefix)
	}
	return seedErr
}

// nextFromScan reproduces the last-record behavior: take the
// lexicographically greatest identifier and increment its suffix.
func (a *SequenceAllocator) nextFromScan(ctx context.Context, collection, prefix string) (string, error) {
	keys, err := a.store.List(ctx, collection+"/")
	if err != nil {
		return "", err
	}

	last := ""
	for _, key := range keys {
		if id := idFromKey(key); id > last {
			last = id
		}
	}

	id, err := NextSequentialID(prefix, last)
	if err != nil {
		a.metrics.Increment(MetricSequenceError)
		return "", err
	}
	a.metrics.Increment(MetricSequenceNext)
	return id, nil
}
