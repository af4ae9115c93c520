package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/confdesk/confdata"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps application errors onto status codes. Anything unmapped is a
// server error and gets logged; the mapped cases are the caller's fault
// and are not.
func fail(w http.ResponseWriter, logger confdata.Logger, err error) {
	switch {
	case errors.Is(err, confdata.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case confdata.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case confdata.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
