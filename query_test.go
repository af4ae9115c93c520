package confdata

import (
	"context"
	"fmt"
	"testing"
)

type registrationDoc struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
}

func seedRegistrations(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	docs := []registrationDoc{
		{ID: "r001", EventID: "e001", UserID: "u001"},
		{ID: "r002", EventID: "e001", UserID: "u002"},
		{ID: "r003", EventID: "e002", UserID: "u001"},
		{ID: "r004", EventID: "e001", UserID: "u001"},
	}
	for _, doc := range docs {
		key := fmt.Sprintf("registrations/%s.json", doc.ID)
		if err := store.PutJSON(ctx, key, doc); err != nil {
			t.Fatalf("failed to seed %s: %v", doc.ID, err)
		}
	}
}

func TestQueryAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedRegistrations(t, store)

	var results []registrationDoc
	if err := store.Query("registrations/").All(ctx, &results); err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	// Key order is deterministic.
	if results[0].ID != "r001" || results[3].ID != "r004" {
		t.Errorf("unexpected order: %+v", results)
	}
}

func TestQueryFilterFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedRegistrations(t, store)

	t.Run("single field", func(t *testing.T) {
		var results []registrationDoc
		q := store.Query("registrations/").FilterFields(map[string]string{"event_id": "e001"})
		if err := q.All(ctx, &results); err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("expected 3 results, got %d", len(results))
		}
	})

	t.Run("two fields are conjunctive", func(t *testing.T) {
		var results []registrationDoc
		q := store.Query("registrations/").FilterFields(map[string]string{
			"event_id": "e001",
			"user_id":  "u001",
		})
		if err := q.All(ctx, &results); err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("expected 2 results, got %d", len(results))
		}
	})

	t.Run("empty values are no constraint", func(t *testing.T) {
		var results []registrationDoc
		q := store.Query("registrations/").FilterFields(map[string]string{
			"event_id": "",
			"user_id":  "u002",
		})
		if err := q.All(ctx, &results); err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(results) != 1 || results[0].ID != "r002" {
			t.Errorf("unexpected results: %+v", results)
		}
	})

	t.Run("no match", func(t *testing.T) {
		var results []registrationDoc
		q := store.Query("registrations/").FilterFields(map[string]string{"event_id": "e999"})
		if err := q.All(ctx, &results); err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results, got %+v", results)
		}
	})
}

func TestQueryOffsetLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedRegistrations(t, store)

	var results []registrationDoc
	q := store.Query("registrations/").Offset(1).Limit(2)
	if err := q.All(ctx, &results); err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(results) != 2 || results[0].ID != "r002" || results[1].ID != "r003" {
		t.Errorf("unexpected page: %+v", results)
	}

	t.Run("offset past the end", func(t *testing.T) {
		var results []registrationDoc
		if err := store.Query("registrations/").Offset(10).All(ctx, &results); err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected empty page, got %+v", results)
		}
	})
}

func TestQueryCountIgnoresPagination(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedRegistrations(t, store)

	q := store.Query("registrations/").
		FilterFields(map[string]string{"event_id": "e001"}).
		Offset(2).
		Limit(1)

	count, err := q.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}

	// The page and the count come from the same filtered set.
	var results []registrationDoc
	if err := q.All(ctx, &results); err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result on the page, got %d", len(results))
	}
}

func TestQueryFilterJSON(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedRegistrations(t, store)

	var results []registrationDoc
	q := store.Query("registrations/").FilterJSON(func(obj map[string]interface{}) bool {
		return obj["user_id"] == "u001" && obj["event_id"] != "e002"
	})
	if err := q.All(ctx, &results); err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}
