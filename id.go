package confdata

import (
	"github.com/google/uuid"
)

// NewRequestID generates a UUIDv7 (time-ordered) identifier used to
// correlate log lines for a single HTTP request. Entity identifiers are
// sequential and come from the SequenceAllocator instead.
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fall back to UUIDv4 if NewV7 fails (extremely rare)
		id = uuid.New()
	}
	return id.String()
}
