package confdata

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWithContext(t *testing.T) {
	t.Run("nil error passes through", func(t *testing.T) {
		if err := WithContext(nil, map[string]interface{}{"key": "value"}); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("context appears in message", func(t *testing.T) {
		err := WithContext(ErrNotFound, map[string]interface{}{"collection": "users"})
		if !strings.Contains(err.Error(), "users") {
			t.Errorf("context missing from message: %s", err.Error())
		}
	})

	t.Run("empty context keeps the base message", func(t *testing.T) {
		err := WithContext(ErrNotFound, nil)
		if err.Error() != ErrNotFound.Error() {
			t.Errorf("message = %q, want %q", err.Error(), ErrNotFound.Error())
		}
	})

	t.Run("unwraps to the sentinel", func(t *testing.T) {
		err := WithContext(ErrConflict, map[string]interface{}{"etag": "abc"})
		if !errors.Is(err, ErrConflict) {
			t.Error("wrapped error lost its sentinel")
		}
	})

	t.Run("survives further wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", WithContext(ErrMalformedID, nil))
		if !errors.Is(err, ErrMalformedID) {
			t.Error("double-wrapped error lost its sentinel")
		}
	})
}

func TestErrTaxonomy(t *testing.T) {
	if !IsNotFound(WithContext(ErrNotFound, nil)) {
		t.Error("IsNotFound missed a wrapped ErrNotFound")
	}
	if !IsConflict(WithContext(ErrConflict, nil)) {
		t.Error("IsConflict missed a wrapped ErrConflict")
	}

	for _, err := range []error{ErrMalformedID, ErrBadFilename, ErrInvalidConfig, ErrInvalidData} {
		if !IsValidation(err) {
			t.Errorf("IsValidation missed %v", err)
		}
	}
	for _, err := range []error{ErrNotFound, ErrConflict, ErrInvalidCredentials, ErrUnauthorized} {
		if IsValidation(err) {
			t.Errorf("IsValidation wrongly matched %v", err)
		}
	}
}
