package confdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Now returns the current UTC time
func Now() time.Time {
	return time.Now().UTC()
}

// ISONow returns the current UTC time in ISO-8601 format, the timestamp
// format stored on every entity.
func ISONow() string {
	return Now().Format(time.RFC3339Nano)
}

// PutJSON is a package-level helper for storing JSON
func PutJSON(backend Backend, ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	return backend.Put(ctx, key, data)
}

// GetJSON is a package-level helper for retrieving JSON
func GetJSON(backend Backend, ctx context.Context, key string, dest interface{}) error {
	data, err := backend.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// KeyBuilder helps construct consistent storage keys.
// Eliminates error-prone fmt.Sprintf calls scattered throughout code.
type KeyBuilder struct {
	// Prefix is the collection name (e.g., "users", "events")
	Prefix string

	// Suffix is the file extension (e.g., ".json")
	// Optional - defaults to empty string
	Suffix string
}

// Key constructs a storage key from an ID.
func (kb KeyBuilder) Key(id string) string {
	if kb.Suffix != "" {
		return fmt.Sprintf("%s/%s%s", kb.Prefix, id, kb.Suffix)
	}
	return fmt.Sprintf("%s/%s", kb.Prefix, id)
}
