package confdata

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FilesystemBackend implements Backend using the local filesystem
type FilesystemBackend struct {
	basePath string
	locks    *StripedLocks // Fine-grained locking per key
}

// NewFilesystemBackend creates a new filesystem backend with 32 lock stripes
func NewFilesystemBackend(basePath string) *FilesystemBackend {
	return &FilesystemBackend{
		basePath: basePath,
		locks:    NewStripedLocks(32),
	}
}

func (b *FilesystemBackend) getPath(key string) string {
	return filepath.Join(b.basePath, key)
}

func (b *FilesystemBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.getPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		if os.IsPermission(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return data, nil
}

func (b *FilesystemBackend) Put(ctx context.Context, key string, data []byte) error {
	path := b.getPath(key)
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return err
	}
	return os.WriteFile(path, data, DefaultFilePermissions)
}

func (b *FilesystemBackend) Delete(ctx context.Context, key string) error {
	err := os.Remove(b.getPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		if os.IsPermission(err) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

func (b *FilesystemBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.getPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *FilesystemBackend) GetWithETag(ctx context.Context, key string) ([]byte, string, error) {
	data, err := b.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}

	// Generate ETag from MD5 hash
	hasher := md5.New()
	hasher.Write(data)
	etag := hex.EncodeToString(hasher.Sum(nil))

	return data, etag, nil
}

func (b *FilesystemBackend) PutIfMatch(ctx context.Context, key string, data []byte, expectedETag string) (string, error) {
	// Lock this specific key to ensure atomic check-and-write
	unlock := b.locks.Lock(key)
	defer unlock()

	if expectedETag != "" {
		_, currentETag, err := b.GetWithETag(ctx, key)
		if err != nil {
			return "", err
		}

		if currentETag != expectedETag {
			return "", WithContext(ErrConflict, map[string]interface{}{
				"expected": expectedETag,
				"actual":   currentETag,
			})
		}
	}

	if err := b.Put(ctx, key, data); err != nil {
		return "", err
	}

	hasher := md5.New()
	hasher.Write(data)
	newETag := hex.EncodeToString(hasher.Sum(nil))

	return newETag, nil
}

func (b *FilesystemBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	searchPath := b.getPath(prefix)

	// Return empty list if prefix directory doesn't exist
	if _, err := os.Stat(searchPath); os.IsNotExist(err) {
		return keys, nil
	}

	err := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			relPath, err := filepath.Rel(b.basePath, path)
			if err != nil {
				return err
			}
			// Forward slashes for consistency with S3
			relPath = filepath.ToSlash(relPath)
			keys = append(keys, relPath)
		}
		return nil
	})

	return keys, err
}

func (b *FilesystemBackend) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(b.getPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (b *FilesystemBackend) PutStream(ctx context.Context, key string, reader io.Reader, size int64) error {
	path := b.getPath(key)
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, reader)
	return err
}

func (b *FilesystemBackend) Ping(ctx context.Context) error {
	// Ensure the base directory exists and is writable. A fresh deployment
	// has no data directory until the first write, which must not read as
	// an unhealthy backend.
	if err := os.MkdirAll(b.basePath, DefaultDirPermissions); err != nil {
		return fmt.Errorf("cannot create base path: %w", err)
	}

	testFile := filepath.Join(b.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), DefaultFilePermissions); err != nil {
		return fmt.Errorf("cannot write to base path: %w", err)
	}
	os.Remove(testFile)

	return nil
}

func (b *FilesystemBackend) Close() error {
	// Filesystem doesn't need cleanup, but implement for interface compliance
	return nil
}
