package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/confdesk/confdata"
)

type contextKey string

const callerKey contextKey = "caller"

// DefaultCallerID is assumed when a request carries no X-User-ID header.
// It exists for local development against a fresh store.
const DefaultCallerID = "u000"

// callerFrom returns the caller identity attached by withCaller.
func callerFrom(ctx context.Context) string {
	if id, ok := ctx.Value(callerKey).(string); ok {
		return id
	}
	return DefaultCallerID
}

// withCaller reads the X-User-ID header into the request context. The
// value is an opaque trusted string; validating it is someone else's job.
func withCaller(logger confdata.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		if id == "" {
			id = DefaultCallerID
			logger.Warn("request without X-User-ID, using dev fallback",
				"method", r.Method, "path", r.URL.Path)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, id)))
	})
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags every request with an id and logs it on completion.
func withRequestLog(logger confdata.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := confdata.NewRequestID()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Debug("request handled",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
