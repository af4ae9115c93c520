package confdata

import (
	"context"
	"io"
)

// Backend defines the interface for byte-level storage implementations.
// The document store runs on the local filesystem; the same interface
// covers S3-compatible object stores used as backup mirrors.
type Backend interface {
	// Object operations
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Conditional operations (for optimistic locking)
	// Returns ETag after successful put
	PutIfMatch(ctx context.Context, key string, data []byte, expectedETag string) (string, error)
	GetWithETag(ctx context.Context, key string) (data []byte, etag string, err error)

	// List returns all keys with the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Streaming (for backup files and uploads)
	GetStream(ctx context.Context, key string) (io.ReadCloser, error)
	PutStream(ctx context.Context, key string, reader io.Reader, size int64) error

	// Health check
	Ping(ctx context.Context) error

	// Resource cleanup
	Close() error
}

// BackendConfig holds configuration for any backend
type BackendConfig struct {
	Type     string // "filesystem" or "s3"
	Bucket   string // S3 bucket or base directory
	Region   string // AWS region (S3 only)
	Endpoint string // Custom endpoint (for S3-compatible services)
}

// Validate checks if the BackendConfig is valid
func (c BackendConfig) Validate() error {
	if c.Type == "" {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "Type",
			"reason": "backend type is required",
		})
	}
	if c.Bucket == "" {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "Bucket",
			"reason": "bucket/base path is required",
		})
	}

	switch c.Type {
	case "s3":
		if c.Region == "" && c.Endpoint == "" {
			return WithContext(ErrInvalidConfig, map[string]interface{}{
				"field":  "Region/Endpoint",
				"reason": "S3 backend requires either Region or Endpoint",
			})
		}
	case "filesystem":
		// No additional validation needed
	default:
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "Type",
			"value":  c.Type,
			"reason": "unknown backend type",
		})
	}

	return nil
}
