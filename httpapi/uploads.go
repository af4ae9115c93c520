package httpapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/confdesk/confdata"
)

// Uploads stores user-submitted files (paper PDFs and the like) on a
// backend and serves them back. Stored names are generated, so uploads
// never collide and never carry a client-controlled path.
type Uploads struct {
	backend confdata.Backend
	logger  confdata.Logger
}

// NewUploads creates the upload surface over backend.
func NewUploads(backend confdata.Backend, logger confdata.Logger) *Uploads {
	if logger == nil {
		logger = &confdata.NoOpLogger{}
	}
	return &Uploads{backend: backend, logger: logger}
}

func (u *Uploads) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	name := confdata.NewRequestID() + strings.ToLower(filepath.Ext(header.Filename))
	if err := u.backend.PutStream(r.Context(), name, file, header.Size); err != nil {
		fail(w, u.logger, err)
		return
	}

	u.logger.Info("file uploaded", "name", name, "original", header.Filename)
	writeJSON(w, http.StatusOK, map[string]string{
		"file_url": "/uploads/" + name,
	})
}

func (u *Uploads) serve(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if name != filepath.Base(name) {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	rc, err := u.backend.GetStream(r.Context(), name)
	if err != nil {
		fail(w, u.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		u.logger.Warn("upload download interrupted", "name", name, "error", err)
	}
}
