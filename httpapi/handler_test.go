package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/confdesk/confdata"
	"github.com/confdesk/confdata/conference"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	store := confdata.NewStore(confdata.NewFilesystemBackend(t.TempDir()))
	seq := confdata.NewSequenceAllocator(store, nil, nil, nil)
	svc := conference.NewService(store, seq, nil)
	uploads := NewUploads(confdata.NewFilesystemBackend(t.TempDir()), nil)
	return NewHandler(svc, store, uploads, nil).Routes()
}

func request(t *testing.T, api http.Handler, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func TestUserEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := request(t, api, http.MethodPost, "/api/users",
		`{"name":"Ada","email":"ada@example.com","password":"secret","role":"organizer"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("create response leaks a password field")
	}
	var created conference.PublicUser
	decode(t, rec, &created)
	if created.ID != "u001" {
		t.Errorf("id = %q, want u001", created.ID)
	}

	t.Run("get", func(t *testing.T) {
		rec := request(t, api, http.MethodGet, "/api/users/u001", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "password") {
			t.Error("get response leaks a password field")
		}
	})

	t.Run("get missing", func(t *testing.T) {
		rec := request(t, api, http.MethodGet, "/api/users/u999", "", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status %d, want 404", rec.Code)
		}
	})

	t.Run("patch", func(t *testing.T) {
		rec := request(t, api, http.MethodPatch, "/api/users/u001", `{"name":"Ada L."}`, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, body %s", rec.Code, rec.Body)
		}
		var updated conference.PublicUser
		decode(t, rec, &updated)
		if updated.Name != "Ada L." || updated.Email != "ada@example.com" {
			t.Errorf("unexpected patch result: %+v", updated)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := request(t, api, http.MethodDelete, "/api/users/u001", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		rec = request(t, api, http.MethodDelete, "/api/users/u001", "", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("second delete: status %d, want 404", rec.Code)
		}
	})
}

func TestLoginEndpoint(t *testing.T) {
	api := newTestAPI(t)
	request(t, api, http.MethodPost, "/api/users",
		`{"name":"Ada","email":"ada@example.com","password":"secret"}`, "")

	t.Run("ok", func(t *testing.T) {
		rec := request(t, api, http.MethodPost, "/api/login",
			`{"email":"ada@example.com","password":"secret"}`, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, body %s", rec.Code, rec.Body)
		}
	})

	t.Run("bad password", func(t *testing.T) {
		rec := request(t, api, http.MethodPost, "/api/login",
			`{"email":"ada@example.com","password":"nope"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status %d, want 401", rec.Code)
		}
	})
}

func TestCallerAttribution(t *testing.T) {
	api := newTestAPI(t)

	t.Run("header", func(t *testing.T) {
		rec := request(t, api, http.MethodPost, "/api/events", `{"title":"GopherConf"}`, "u042")
		if rec.Code != http.StatusCreated {
			t.Fatalf("status %d, body %s", rec.Code, rec.Body)
		}
		var event conference.Event
		decode(t, rec, &event)
		if event.OrganizerID != "u042" {
			t.Errorf("organizer = %q, want u042", event.OrganizerID)
		}
	})

	t.Run("fallback", func(t *testing.T) {
		rec := request(t, api, http.MethodPost, "/api/events", `{"title":"RustFest"}`, "")
		var event conference.Event
		decode(t, rec, &event)
		if event.OrganizerID != DefaultCallerID {
			t.Errorf("organizer = %q, want %q", event.OrganizerID, DefaultCallerID)
		}
	})
}

func TestRegistrationEndpoints(t *testing.T) {
	api := newTestAPI(t)
	request(t, api, http.MethodPost, "/api/events", `{"title":"GopherConf"}`, "u001")

	rec := request(t, api, http.MethodPost, "/api/registrations", `{"event_id":"e001"}`, "u002")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	var reg conference.Registration
	decode(t, rec, &reg)
	if reg.UserID != "u002" || reg.Status != "pending" {
		t.Errorf("unexpected registration: %+v", reg)
	}

	rec = request(t, api, http.MethodGet, "/api/events/e001", "", "")
	var event conference.Event
	decode(t, rec, &event)
	if event.CurrentParticipants != 1 {
		t.Errorf("participants = %d, want 1", event.CurrentParticipants)
	}

	t.Run("filtered list", func(t *testing.T) {
		rec := request(t, api, http.MethodGet, "/api/registrations?event_id=e001", "", "")
		var page conference.Page[conference.Registration]
		decode(t, rec, &page)
		if page.TotalCount != 1 {
			t.Errorf("totalCount = %d, want 1", page.TotalCount)
		}

		rec = request(t, api, http.MethodGet, "/api/registrations?event_id=e999", "", "")
		decode(t, rec, &page)
		if page.TotalCount != 0 {
			t.Errorf("totalCount = %d, want 0", page.TotalCount)
		}
	})
}

func TestListEnvelope(t *testing.T) {
	api := newTestAPI(t)
	for i := 0; i < 3; i++ {
		request(t, api, http.MethodPost, "/api/sessions", `{"event_id":"e001","title":"Talk"}`, "")
	}

	rec := request(t, api, http.MethodGet, "/api/sessions?page=2&limit=2", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var page conference.Page[conference.Session]
	decode(t, rec, &page)
	if page.TotalCount != 3 || page.TotalPages != 2 || page.CurrentPage != 2 || len(page.Items) != 1 {
		t.Errorf("unexpected envelope: %+v", page)
	}
}

func TestBadBodyIsClientError(t *testing.T) {
	api := newTestAPI(t)
	rec := request(t, api, http.MethodPost, "/api/papers", "{not json", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	api := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "paper.pdf")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("%PDF-1.7 fake"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d, body %s", rec.Code, rec.Body)
	}

	var resp map[string]string
	decode(t, rec, &resp)
	url := resp["file_url"]
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".pdf") {
		t.Fatalf("unexpected file_url %q", url)
	}

	rec = request(t, api, http.MethodGet, url, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("serve: status %d", rec.Code)
	}
	if rec.Body.String() != "%PDF-1.7 fake" {
		t.Errorf("served bytes differ: %q", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := request(t, api, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status %d, want 200", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	api := newTestAPI(t)
	rec := request(t, api, http.MethodGet, "/healthz", "", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected an X-Request-ID header")
	}
}
