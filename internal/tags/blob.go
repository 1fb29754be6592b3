package tags

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBlob stores the index as a JSON file, replaced atomically on save.
type FileBlob struct {
	path string
}

// NewFileBlob returns a FileBlob at path. Parent directories are created on save.
func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

// Load reads the blob file. A missing file is an empty index.
func (b *FileBlob) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tags: read %s: %w", b.path, err)
	}
	return data, nil
}

// Save writes data to a temp file, fsyncs it, and renames it over the blob.
func (b *FileBlob) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tags: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("tags: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("tags: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("tags: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tags: close temp: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("tags: rename: %w", err)
	}
	success = true
	return nil
}

// MemoryBlob keeps the blob in process memory. Intended for tests.
type MemoryBlob struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBlob returns an empty MemoryBlob.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{}
}

func (b *MemoryBlob) Load(_ context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, nil
	}
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp, nil
}

func (b *MemoryBlob) Save(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make([]byte, len(data))
	copy(b.data, data)
	return nil
}

var (
	_ Blob = (*FileBlob)(nil)
	_ Blob = (*MemoryBlob)(nil)
)
