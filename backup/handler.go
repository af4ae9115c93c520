package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/confdesk/confdata"
)

// Handler exposes backup management over HTTP.
type Handler struct {
	engine    *Engine
	scheduler *Scheduler
	logger    confdata.Logger
}

// NewHandler creates the backup HTTP handler.
func NewHandler(engine *Engine, scheduler *Scheduler, logger confdata.Logger) *Handler {
	if logger == nil {
		logger = &confdata.NoOpLogger{}
	}
	return &Handler{engine: engine, scheduler: scheduler, logger: logger}
}

// Register mounts the backup routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/backups", h.list)
	mux.HandleFunc("POST /api/backups/create", h.create)
	mux.HandleFunc("GET /api/backups/schedule", h.getSchedule)
	mux.HandleFunc("POST /api/backups/schedule", h.setSchedule)
	mux.HandleFunc("POST /api/backups/restore/{filename}", h.restore)
	mux.HandleFunc("DELETE /api/backups/{filename}", h.delete)
	mux.HandleFunc("GET /backups/download/{filename}", h.download)
	mux.HandleFunc("POST /api/backups/upload", h.upload)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	backups, err := h.engine.List()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backups)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	filename, err := h.engine.Create(r.Context(), false)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "backup created successfully",
		"filename": filename,
	})
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.Config())
}

func (h *Handler) setSchedule(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule payload")
		return
	}
	if err := h.scheduler.Update(cfg); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "backup schedule updated",
	})
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if err := h.engine.Restore(r.Context(), filename); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("backup %s restored successfully", filename),
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if err := h.engine.Delete(filename); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("backup %s deleted", filename),
	})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	f, size, err := h.engine.Open(filename)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("backup download interrupted", "filename", filename, "error", err)
	}
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if err := h.engine.Save(header.Filename, file); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"filename": header.Filename,
	})
}

// fail maps application errors to status codes: missing resources to
// 404, rejected input to 400, everything else to 500.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case confdata.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, confdata.ErrBadFilename),
		errors.Is(err, confdata.ErrInvalidConfig),
		errors.Is(err, confdata.ErrInvalidData):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("backup request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
