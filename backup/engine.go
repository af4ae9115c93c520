// Package backup implements full-store snapshots: on-demand and scheduled
// creation, listing, destructive restore, and raw file management for a
// confdata store.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/confdesk/confdata"
)

// Info describes one backup file on disk.
type Info struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Type      string    `json:"type"`
}

// Engine snapshots every collection of a store into single-file JSON
// archives. Archives hold raw documents, so a create/restore cycle
// reproduces every stored byte exactly.
type Engine struct {
	store   *confdata.Store
	dir     string
	mirror  confdata.Backend
	logger  confdata.Logger
	metrics confdata.Metrics
}

// NewEngine creates a backup engine writing archives under dir.
func NewEngine(store *confdata.Store, dir string, logger confdata.Logger, metrics confdata.Metrics) *Engine {
	if logger == nil {
		logger = &confdata.NoOpLogger{}
	}
	if metrics == nil {
		metrics = &confdata.NoOpMetrics{}
	}
	return &Engine{
		store:   store,
		dir:     dir,
		logger:  logger,
		metrics: metrics,
	}
}

// SetMirror configures a secondary backend that receives a copy of every
// successful backup. Mirroring is best effort: failures are logged and
// never fail the backup itself.
func (e *Engine) SetMirror(backend confdata.Backend) {
	e.mirror = backend
}

// timestampFormat gives second resolution. Two backups in the same
// second land on the same name and the later one wins.
const timestampFormat = "2006-01-02_15-04-05"

// Create snapshots every collection into a new archive and returns its
// filename. Auto backups (scheduler-driven) get a distinct name so List
// can tell the two kinds apart.
func (e *Engine) Create(ctx context.Context, auto bool) (string, error) {
	start := time.Now()

	collections, err := e.store.Collections(ctx)
	if err != nil {
		e.metrics.Increment(confdata.MetricBackupError)
		return "", fmt.Errorf("failed to enumerate collections: %w", err)
	}

	payload := make(map[string][]json.RawMessage, len(collections))
	for _, collection := range collections {
		docs, err := e.store.Documents(ctx, collection)
		if err != nil {
			e.metrics.Increment(confdata.MetricBackupError)
			return "", fmt.Errorf("failed to read collection %q: %w", collection, err)
		}
		payload[collection] = docs
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		e.metrics.Increment(confdata.MetricBackupError)
		return "", err
	}

	name := "backup_"
	if auto {
		name = "backup_auto_"
	}
	name += confdata.Now().Format(timestampFormat) + ".json"

	if err := os.MkdirAll(e.dir, confdata.DefaultDirPermissions); err != nil {
		e.metrics.Increment(confdata.MetricBackupError)
		return "", err
	}
	if err := os.WriteFile(filepath.Join(e.dir, name), data, confdata.DefaultFilePermissions); err != nil {
		e.metrics.Increment(confdata.MetricBackupError)
		return "", err
	}

	e.mirrorUpload(ctx, name, data)

	e.metrics.Increment(confdata.MetricBackupCreate)
	e.metrics.Timing(confdata.MetricBackupDuration, time.Since(start))
	e.logger.Info("backup created", "filename", name, "collections", len(collections), "bytes", len(data))
	return name, nil
}

func (e *Engine) mirrorUpload(ctx context.Context, name string, data []byte) {
	if e.mirror == nil {
		return
	}
	if err := e.mirror.Put(ctx, "backups/"+name, data); err != nil {
		e.logger.Warn("backup mirror upload failed", "filename", name, "error", err)
		return
	}
	e.logger.Debug("backup mirrored", "filename", name)
}

// List returns all backups, newest first.
func (e *Engine) List() ([]Info, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, err
	}

	backups := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if entry.Name() == ScheduleFileName {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		kind := "manual"
		if strings.Contains(entry.Name(), "auto") {
			kind = "auto"
		}
		backups = append(backups, Info{
			Filename:  entry.Name(),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime().UTC(),
			Type:      kind,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// resolve maps a user-supplied filename to a path inside the backup dir,
// rejecting anything that would escape it. The schedule config shares the
// directory and is never addressable as a backup.
func (e *Engine) resolve(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		return "", confdata.WithContext(confdata.ErrBadFilename, map[string]interface{}{
			"filename": filename,
		})
	}
	if filename == ScheduleFileName {
		return "", confdata.WithContext(confdata.ErrBadFilename, map[string]interface{}{
			"filename": filename,
			"reason":   "reserved name",
		})
	}
	return filepath.Join(e.dir, filename), nil
}

// Restore replaces the entire store contents with the archive's. Every
// current collection is dropped first, including collections the archive
// does not mention. There is no rollback on partial failure.
func (e *Engine) Restore(ctx context.Context, filename string) error {
	path, err := e.resolve(filename)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return confdata.WithContext(confdata.ErrNotFound, map[string]interface{}{
				"filename": filename,
			})
		}
		return err
	}

	var payload map[string][]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return confdata.WithContext(confdata.ErrInvalidData, map[string]interface{}{
			"filename": filename,
			"reason":   err.Error(),
		})
	}

	current, err := e.store.Collections(ctx)
	if err != nil {
		return err
	}
	for _, collection := range current {
		if err := e.store.DropCollection(ctx, collection); err != nil {
			return fmt.Errorf("failed to drop collection %q: %w", collection, err)
		}
	}

	restored := 0
	for collection, docs := range payload {
		for _, doc := range docs {
			if err := e.store.InsertRaw(ctx, collection, doc); err != nil {
				return fmt.Errorf("failed to restore into %q: %w", collection, err)
			}
			restored++
		}
	}

	e.metrics.Increment(confdata.MetricBackupRestore)
	e.logger.Info("backup restored", "filename", filename, "documents", restored)
	return nil
}

// Delete removes a backup file.
func (e *Engine) Delete(filename string) error {
	path, err := e.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return confdata.WithContext(confdata.ErrNotFound, map[string]interface{}{
				"filename": filename,
			})
		}
		return err
	}
	e.logger.Info("backup deleted", "filename", filename)
	return nil
}

// Open returns a reader over a backup file for download. The caller
// closes it.
func (e *Engine) Open(filename string) (io.ReadCloser, int64, error) {
	path, err := e.resolve(filename)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, confdata.WithContext(confdata.ErrNotFound, map[string]interface{}{
				"filename": filename,
			})
		}
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

// Save persists an uploaded backup file verbatim. Only .json names are
// accepted, and the check happens before anything touches disk. An
// existing file with the same name is overwritten.
func (e *Engine) Save(filename string, r io.Reader) error {
	path, err := e.resolve(filename)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(filename, ".json") {
		return confdata.WithContext(confdata.ErrBadFilename, map[string]interface{}{
			"filename": filename,
			"reason":   "only .json files are accepted",
		})
	}

	if err := os.MkdirAll(e.dir, confdata.DefaultDirPermissions); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, confdata.DefaultFilePermissions)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	e.logger.Info("backup uploaded", "filename", filename)
	return nil
}
