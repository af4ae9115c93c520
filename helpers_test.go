package confdata

import (
	"context"
	"testing"
	"time"
)

func TestKeyBuilder(t *testing.T) {
	kb := KeyBuilder{Prefix: "users", Suffix: ".json"}
	if got := kb.Key("u001"); got != "users/u001.json" {
		t.Errorf("Key = %q, want users/u001.json", got)
	}

	bare := KeyBuilder{Prefix: "uploads"}
	if got := bare.Key("abc"); got != "uploads/abc" {
		t.Errorf("Key = %q, want uploads/abc", got)
	}
}

func TestISONow(t *testing.T) {
	stamp := ISONow()
	parsed, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		t.Fatalf("ISONow produced unparseable timestamp %q: %v", stamp, err)
	}
	if parsed.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", parsed.Location())
	}
}

func TestPackageLevelJSONHelpers(t *testing.T) {
	ctx := context.Background()
	backend := NewFilesystemBackend(t.TempDir())

	doc := testDoc{ID: "u001", Name: "Ada"}
	if err := PutJSON(backend, ctx, "users/u001.json", doc); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}

	var got testDoc
	if err := GetJSON(backend, ctx, "users/u001.json", &got); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got != doc {
		t.Errorf("got %+v, want %+v", got, doc)
	}
}
