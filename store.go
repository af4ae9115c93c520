package confdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Store provides JSON document operations on top of a Backend.
// Documents are grouped into collections via key prefixes:
// "users/u001.json", "events/e001.json", and so on.
type Store struct {
	backend Backend
	logger  Logger
	metrics Metrics
}

// NewStore creates a new store with no-op logger and metrics
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		logger:  &NoOpLogger{},
		metrics: &NoOpMetrics{},
	}
}

// NewStoreWithObservability creates a new store with logging and metrics
func NewStoreWithObservability(backend Backend, logger Logger, metrics Metrics) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
		metrics: metrics,
	}
}

// SetLogger updates the logger for this store
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetMetrics updates the metrics collector for this store
func (s *Store) SetMetrics(metrics Metrics) {
	s.metrics = metrics
}

// GetJSON fetches and unmarshals a JSON object
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) error {
	start := time.Now()
	data, err := s.backend.Get(ctx, key)
	s.metrics.Timing(MetricGetDuration, time.Since(start))

	if err != nil {
		s.metrics.Increment(MetricGetError)
		return err
	}

	s.metrics.Increment(MetricGetSuccess)
	return json.Unmarshal(data, dest)
}

// PutJSON marshals and stores a JSON object
func (s *Store) PutJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	start := time.Now()
	err = s.backend.Put(ctx, key, data)
	s.metrics.Timing(MetricPutDuration, time.Since(start))

	if err != nil {
		s.metrics.Increment(MetricPutError)
		return err
	}

	s.metrics.Increment(MetricPutSuccess)
	return nil
}

// GetJSONWithETag fetches JSON and returns its ETag
func (s *Store) GetJSONWithETag(ctx context.Context, key string, dest interface{}) (string, error) {
	data, etag, err := s.backend.GetWithETag(ctx, key)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return "", err
	}
	return etag, nil
}

// PutJSONWithETag stores JSON with optimistic locking
func (s *Store) PutJSONWithETag(ctx context.Context, key string, value interface{}, expectedETag string) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	return s.backend.PutIfMatch(ctx, key, data, expectedETag)
}

// Delete removes an object
func (s *Store) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.backend.Delete(ctx, key)
	s.metrics.Timing(MetricDeleteDuration, time.Since(start))

	if err != nil {
		s.metrics.Increment(MetricDeleteError)
		return err
	}

	s.metrics.Increment(MetricDeleteSuccess)
	return nil
}

// Exists checks if a key exists
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.backend.Exists(ctx, key)
}

// List returns all keys with the given prefix
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	return s.backend.List(ctx, prefix)
}

// Collections enumerates all collection names present in the store,
// derived from the first path segment of every stored key.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	keys, err := s.backend.List(ctx, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	for _, key := range keys {
		name, _, found := strings.Cut(key, "/")
		if !found || name == "" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

// Documents fetches every document of a collection as raw JSON, in key
// order. Unbounded by design: the backup path snapshots whole collections.
func (s *Store) Documents(ctx context.Context, collection string) ([]json.RawMessage, error) {
	keys, err := s.backend.List(ctx, collection+"/")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	docs := make([]json.RawMessage, 0, len(keys))
	for _, key := range keys {
		data, err := s.backend.Get(ctx, key)
		if err != nil {
			if IsNotFound(err) {
				continue // Deleted between list and get
			}
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		docs = append(docs, json.RawMessage(data))
	}

	return docs, nil
}

// InsertRaw stores a raw document into a collection, keyed by the
// document's own "id" field. Used by restore to put documents back
// verbatim, identifiers and all other fields preserved.
func (s *Store) InsertRaw(ctx context.Context, collection string, doc json.RawMessage) error {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return WithContext(ErrInvalidData, map[string]interface{}{
			"collection": collection,
			"reason":     err.Error(),
		})
	}
	if probe.ID == "" {
		return WithContext(ErrInvalidData, map[string]interface{}{
			"collection": collection,
			"reason":     "document has no id field",
		})
	}

	key := KeyBuilder{Prefix: collection, Suffix: ".json"}.Key(probe.ID)
	return s.backend.Put(ctx, key, doc)
}

// DropCollection deletes every document in a collection
func (s *Store) DropCollection(ctx context.Context, collection string) error {
	keys, err := s.backend.List(ctx, collection+"/")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.backend.Delete(ctx, key); err != nil && !IsNotFound(err) {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}

	s.logger.Info("collection dropped", "collection", collection, "documents", len(keys))
	return nil
}

// Backend returns the underlying backend (for streaming and health checks)
func (s *Store) Backend() Backend {
	return s.backend
}

// Ping checks backend health
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close releases resources held by the store and backend
func (s *Store) Close() error {
	return s.backend.Close()
}
