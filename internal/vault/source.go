package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Picked is a document chosen from outside the vault.
type Picked struct {
	Name string
	Body io.ReadCloser
}

// Source supplies a document to upload. Pick returns nil, nil when the user
// cancels the selection.
type Source interface {
	Pick(ctx context.Context) (*Picked, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Picked, error)

// Pick calls fn.
func (fn SourceFunc) Pick(ctx context.Context) (*Picked, error) {
	return fn(ctx)
}

// PathSource picks a local file by path. The display name is the base name.
type PathSource string

// Pick opens the file at the path.
func (p PathSource) Pick(_ context.Context) (*Picked, error) {
	f, err := os.Open(string(p))
	if err != nil {
		return nil, fmt.Errorf("open upload source: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat upload source: %w", err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("upload source %s is not a regular file", p)
	}
	return &Picked{Name: filepath.Base(string(p)), Body: f}, nil
}
