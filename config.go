package confdata

import "time"

// Configuration constants for confdata operations
const (
	// Conditional-update retry configuration (event participant counter)
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 100 * time.Millisecond

	// File backend configuration
	DefaultFilePermissions = 0644
	DefaultDirPermissions  = 0755
)

// RetryConfig holds configuration for retry operations with exponential backoff
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
	}
}

// Validate checks if the RetryConfig is valid
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "MaxRetries",
			"value":  c.MaxRetries,
			"reason": "must be non-negative",
		})
	}
	if c.InitialBackoff <= 0 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "InitialBackoff",
			"value":  c.InitialBackoff,
			"reason": "must be positive",
		})
	}
	return nil
}
