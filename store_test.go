package confdata

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type testDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(NewFilesystemBackend(t.TempDir()))
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doc := testDoc{ID: "u001", Name: "Ada"}
	if err := store.PutJSON(ctx, "users/u001.json", doc); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}

	var got testDoc
	if err := store.GetJSON(ctx, "users/u001.json", &got); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got != doc {
		t.Errorf("got %+v, want %+v", got, doc)
	}

	exists, err := store.Exists(ctx, "users/u001.json")
	if err != nil || !exists {
		t.Errorf("Exists = (%v, %v), want (true, nil)", exists, err)
	}

	if err := store.Delete(ctx, "users/u001.json"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.GetJSON(ctx, "users/u001.json", &got); !IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestETagConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.PutJSON(ctx, "events/e001.json", testDoc{ID: "e001"}); err != nil {
		t.Fatal(err)
	}

	var doc testDoc
	etag, err := store.GetJSONWithETag(ctx, "events/e001.json", &doc)
	if err != nil {
		t.Fatalf("GetJSONWithETag failed: %v", err)
	}

	doc.Name = "first writer"
	if _, err := store.PutJSONWithETag(ctx, "events/e001.json", doc, etag); err != nil {
		t.Fatalf("first conditional put failed: %v", err)
	}

	// The second writer still holds the old etag and must lose.
	doc.Name = "second writer"
	if _, err := store.PutJSONWithETag(ctx, "events/e001.json", doc, etag); !IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	names, err := store.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no collections, got %v", names)
	}

	for _, key := range []string{"users/u001.json", "users/u002.json", "events/e001.json"} {
		if err := store.PutJSON(ctx, key, testDoc{ID: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	names, err = store.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	want := []string{"events", "users"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("Collections = %v, want %v", names, want)
	}
}

func TestDocumentsPreservesBytes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Raw documents come back byte for byte, including formatting a
	// round-trip through a struct would normalize away.
	raw := `{"id":"u001","score":1.50,"note":"  spaced  "}`
	if err := store.InsertRaw(ctx, "users", json.RawMessage(raw)); err != nil {
		t.Fatalf("InsertRaw failed: %v", err)
	}

	docs, err := store.Documents(ctx, "users")
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if len(docs) != 1 || string(docs[0]) != raw {
		t.Errorf("Documents = %v, want [%s]", docs, raw)
	}
}

func TestInsertRawRequiresID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("missing id", func(t *testing.T) {
		err := store.InsertRaw(ctx, "users", json.RawMessage(`{"name":"Ada"}`))
		if !errors.Is(err, ErrInvalidData) {
			t.Errorf("expected invalid data, got %v", err)
		}
	})

	t.Run("not an object", func(t *testing.T) {
		err := store.InsertRaw(ctx, "users", json.RawMessage(`[1,2,3]`))
		if !errors.Is(err, ErrInvalidData) {
			t.Errorf("expected invalid data, got %v", err)
		}
	})
}

func TestDropCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, key := range []string{"users/u001.json", "users/u002.json", "events/e001.json"} {
		if err := store.PutJSON(ctx, key, testDoc{ID: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DropCollection(ctx, "users"); err != nil {
		t.Fatalf("DropCollection failed: %v", err)
	}

	keys, err := store.List(ctx, "users/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("expected users emptied, got %v", keys)
	}

	// Other collections are untouched.
	keys, err = store.List(ctx, "events/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 {
		t.Errorf("expected events intact, got %v", keys)
	}
}

func TestPing(t *testing.T) {
	if err := newTestStore(t).Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
