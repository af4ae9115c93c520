// Package httpapi exposes the conference service as a JSON HTTP API:
// CRUD endpoints per entity, login, file upload, and a health probe.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/confdesk/confdata"
	"github.com/confdesk/confdata/conference"
)

// Handler is the entity-facing HTTP surface.
type Handler struct {
	svc     *conference.Service
	store   *confdata.Store
	uploads *Uploads
	logger  confdata.Logger
}

// NewHandler creates the entity API handler. uploads may be nil to
// disable the file upload endpoints.
func NewHandler(svc *conference.Service, store *confdata.Store, uploads *Uploads, logger confdata.Logger) *Handler {
	if logger == nil {
		logger = &confdata.NoOpLogger{}
	}
	return &Handler{svc: svc, store: store, uploads: uploads, logger: logger}
}

// Routes returns the fully wired handler: entity routes plus the caller
// identity and request logging middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return h.Wrap(mux)
}

// Wrap applies the caller identity and request logging middleware to an
// arbitrary handler, typically a mux carrying additional routes.
func (h *Handler) Wrap(next http.Handler) http.Handler {
	return withRequestLog(h.logger, withCaller(h.logger, next))
}

// Register mounts the entity routes on mux without middleware. Useful
// when the caller composes its own chain.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("GET /healthz", h.healthz)

	mux.HandleFunc("GET /api/users", h.listUsers)
	mux.HandleFunc("POST /api/users", create(h, h.svc.CreateUser))
	mux.HandleFunc("GET /api/users/{id}", get(h, h.svc.GetUser))
	mux.HandleFunc("PATCH /api/users/{id}", patch(h, h.svc.UpdateUser))
	mux.HandleFunc("DELETE /api/users/{id}", del(h, h.svc.DeleteUser))

	mux.HandleFunc("GET /api/events", list(h, h.svc.ListEvents))
	mux.HandleFunc("POST /api/events", create(h, h.createEvent))
	mux.HandleFunc("GET /api/events/{id}", get(h, h.svc.GetEvent))
	mux.HandleFunc("PATCH /api/events/{id}", patch(h, h.svc.UpdateEvent))
	mux.HandleFunc("DELETE /api/events/{id}", del(h, h.svc.DeleteEvent))

	mux.HandleFunc("GET /api/sessions", list(h, h.svc.ListSessions))
	mux.HandleFunc("POST /api/sessions", create(h, h.svc.CreateSession))
	mux.HandleFunc("GET /api/sessions/{id}", get(h, h.svc.GetSession))
	mux.HandleFunc("PATCH /api/sessions/{id}", patch(h, h.svc.UpdateSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", del(h, h.svc.DeleteSession))

	mux.HandleFunc("GET /api/registrations", h.listRegistrations)
	mux.HandleFunc("POST /api/registrations", create(h, h.createRegistration))
	mux.HandleFunc("GET /api/registrations/{id}", get(h, h.svc.GetRegistration))
	mux.HandleFunc("PATCH /api/registrations/{id}", patch(h, h.svc.UpdateRegistration))
	mux.HandleFunc("DELETE /api/registrations/{id}", del(h, h.svc.DeleteRegistration))

	mux.HandleFunc("GET /api/feedbacks", list(h, h.svc.ListFeedbacks))
	mux.HandleFunc("POST /api/feedbacks", create(h, h.createFeedback))
	mux.HandleFunc("GET /api/feedbacks/{id}", get(h, h.svc.GetFeedback))
	mux.HandleFunc("PATCH /api/feedbacks/{id}", patch(h, h.svc.UpdateFeedback))
	mux.HandleFunc("DELETE /api/feedbacks/{id}", del(h, h.svc.DeleteFeedback))

	mux.HandleFunc("GET /api/papers", list(h, h.svc.ListPapers))
	mux.HandleFunc("POST /api/papers", create(h, h.svc.CreatePaper))
	mux.HandleFunc("GET /api/papers/{id}", get(h, h.svc.GetPaper))
	mux.HandleFunc("PATCH /api/papers/{id}", patch(h, h.svc.UpdatePaper))
	mux.HandleFunc("DELETE /api/papers/{id}", del(h, h.svc.DeletePaper))

	if h.uploads != nil {
		mux.HandleFunc("POST /api/upload", h.uploads.upload)
		mux.HandleFunc("GET /uploads/{filename}", h.uploads.serve)
	}
}

// pageParams reads page/limit query parameters. Absent or unparseable
// values fall through to the service-side defaults.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 10
	}
	return page, limit
}

// list builds a paginated list handler from a service list method.
func list[T any](h *Handler, fn func(context.Context, int, int) (*conference.Page[T], error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := pageParams(r)
		result, err := fn(r.Context(), page, limit)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// get builds a fetch-by-id handler. A nil result is a 404.
func get[T any](h *Handler, fn func(context.Context, string) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := fn(r.Context(), r.PathValue("id"))
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		if item == nil {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// create builds a creation handler decoding the input from the body.
func create[In, Out any](h *Handler, fn func(context.Context, In) (*Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		item, err := fn(r.Context(), in)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// patch builds a partial-update handler. A nil result is a 404.
func patch[In, Out any](h *Handler, fn func(context.Context, string, In) (*Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		item, err := fn(r.Context(), r.PathValue("id"), in)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		if item == nil {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// del builds a delete handler. Deleting something already gone is a 404.
func del(h *Handler, fn func(context.Context, string) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := fn(r.Context(), r.PathValue("id"))
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		if !deleted {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

// Creation paths that attribute the record to the calling user.

func (h *Handler) createEvent(ctx context.Context, in conference.CreateEventInput) (*conference.Event, error) {
	return h.svc.CreateEvent(ctx, in, callerFrom(ctx))
}

func (h *Handler) createRegistration(ctx context.Context, in conference.CreateRegistrationInput) (*conference.Registration, error) {
	return h.svc.CreateRegistration(ctx, in, callerFrom(ctx))
}

func (h *Handler) createFeedback(ctx context.Context, in conference.CreateFeedbackInput) (*conference.Feedback, error) {
	return h.svc.CreateFeedback(ctx, in, callerFrom(ctx))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.svc.ListUsers(r.Context(), page, limit)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listRegistrations(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	q := r.URL.Query()
	result, err := h.svc.ListRegistrations(r.Context(), page, limit, q.Get("event_id"), q.Get("user_id"))
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
