package conference

import (
	"context"
	"encoding/json"

	"github.com/confdesk/confdata"
)

// Collection provides typed document operations for one entity type.
// It is a thin repository over the store: find-one, find-paginated,
// insert, partial patch, delete.
type Collection[T any] struct {
	store *confdata.Store
	name  string
	kb    confdata.KeyBuilder
}

// NewCollection creates a typed collection over the given store.
func NewCollection[T any](store *confdata.Store, name string) *Collection[T] {
	return &Collection[T]{
		store: store,
		name:  name,
		kb:    confdata.KeyBuilder{Prefix: name, Suffix: ".json"},
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Key returns the storage key for an identifier.
func (c *Collection[T]) Key(id string) string {
	return c.kb.Key(id)
}

// Get retrieves a document by identifier. Returns confdata.ErrNotFound
// when no such document exists.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	if err := c.store.GetJSON(ctx, c.kb.Key(id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns one page of documents plus the total count of documents
// matching the filter. The filter is applied identically to the page scan
// and the count: the reported total is always the filtered total.
func (c *Collection[T]) List(ctx context.Context, skip, limit int, filter map[string]string) ([]T, int, error) {
	q := c.store.Query(c.name + "/").FilterFields(filter)

	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	items := []T{}
	if err := q.Offset(skip).Limit(limit).All(ctx, &items); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Insert stores a new document under the given identifier.
func (c *Collection[T]) Insert(ctx context.Context, id string, item *T) error {
	return c.store.PutJSON(ctx, c.kb.Key(id), item)
}

// Patch applies a partial update: only the fields present in the map are
// written, everything else in the stored document is left untouched. An
// empty patch is a no-op that still returns the current document.
// Returns confdata.ErrNotFound when the document does not exist.
func (c *Collection[T]) Patch(ctx context.Context, id string, fields map[string]interface{}) (*T, error) {
	if len(fields) == 0 {
		return c.Get(ctx, id)
	}

	key := c.kb.Key(id)

	var doc map[string]interface{}
	if err := c.store.GetJSON(ctx, key, &doc); err != nil {
		return nil, err
	}

	for k, v := range fields {
		doc[k] = v
	}

	if err := c.store.PutJSON(ctx, key, doc); err != nil {
		return nil, err
	}

	// Decode the merged document back into the typed record
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes a document. Reports false, not an error, when the
// document was already absent.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	err := c.store.Delete(ctx, c.kb.Key(id))
	if err != nil {
		if confdata.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindOne returns the first document matching the filter, or
// confdata.ErrNotFound when nothing matches.
func (c *Collection[T]) FindOne(ctx context.Context, filter map[string]string) (*T, error) {
	items := []T{}
	err := c.store.Query(c.name + "/").FilterFields(filter).Limit(1).All(ctx, &items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, confdata.ErrNotFound
	}
	return &items[0], nil
}
