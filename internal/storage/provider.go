// Package storage defines the byte storage behind the vault: a flat namespace
// of opaque names inside a single root directory.
package storage

import (
	"io"
	"time"
)

// Entry describes one stored object as observed by the last stat.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Provider is the interface for vault byte storage.
type Provider interface {
	// EnsureRoot creates the root directory if it does not exist.
	EnsureRoot() error
	// List returns every regular, non-hidden object under the root.
	List() ([]Entry, error)
	// Stat returns size and modification time of name.
	Stat(name string) (Entry, error)
	// Read returns the raw bytes of name.
	Read(name string) ([]byte, error)
	// Write atomically replaces the content of name.
	Write(name string, content []byte) error
	// Copy atomically writes everything read from r to name.
	Copy(name string, r io.Reader) (int64, error)
	// Move renames oldName to newName.
	Move(oldName, newName string) error
	// Delete removes name. A missing object is not an error.
	Delete(name string) error
}
