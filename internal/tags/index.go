// Package tags implements the tag index: an ordered list of free-text tags
// per file id, persisted as a single JSON blob rewritten on every change.
//
// The whole index is loaded and saved per operation, which suits hundreds to
// low thousands of entries. Persistence is delegated to a Blob so the backend
// (JSON file, SQLite row, Badger key) can change without touching callers.
package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/starford/opnvault/internal/apperr"
)

// Blob loads and saves the serialized index.
type Blob interface {
	// Load returns the stored blob, or nil with no error if nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored blob.
	Save(ctx context.Context, data []byte) error
}

// Index maps file ids to ordered tag lists.
type Index struct {
	mu   sync.Mutex
	blob Blob
}

// New creates an Index persisted through blob.
func New(blob Blob) *Index {
	return &Index{blob: blob}
}

// Get returns the tags recorded for id. An id without an entry yields an
// empty, non-nil slice.
func (x *Index) Get(ctx context.Context, id string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	m, err := x.load(ctx, "get tags", id)
	if err != nil {
		return []string{}, err
	}
	return clone(m[id]), nil
}

// All returns a snapshot of the whole index.
func (x *Index) All(ctx context.Context) (map[string][]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	m, err := x.load(ctx, "load tags", "")
	if err != nil {
		return map[string][]string{}, err
	}
	return m, nil
}

// Set replaces the tags of id with the normalized form of tags and returns
// what was stored.
func (x *Index) Set(ctx context.Context, id string, tags []string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	m, err := x.load(ctx, "set tags", id)
	if err != nil {
		return nil, err
	}
	norm := Normalize(tags)
	m[id] = norm
	if err := x.save(ctx, m, "set tags", id); err != nil {
		return nil, err
	}
	return clone(norm), nil
}

// Remove deletes the entry for id. Removing an absent id does not write.
func (x *Index) Remove(ctx context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	m, err := x.load(ctx, "remove tags", id)
	if err != nil {
		return err
	}
	if _, ok := m[id]; !ok {
		return nil
	}
	delete(m, id)
	return x.save(ctx, m, "remove tags", id)
}

// Retain drops every entry whose id does not satisfy keep and returns the
// removed ids in sorted order.
func (x *Index) Retain(ctx context.Context, keep func(id string) bool) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	m, err := x.load(ctx, "retain tags", "")
	if err != nil {
		return nil, err
	}
	var removed []string
	for id := range m {
		if !keep(id) {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	for _, id := range removed {
		delete(m, id)
	}
	if err := x.save(ctx, m, "retain tags", ""); err != nil {
		return nil, err
	}
	sort.Strings(removed)
	return removed, nil
}

func (x *Index) load(ctx context.Context, op, id string) (map[string][]string, error) {
	data, err := x.blob.Load(ctx)
	if err != nil {
		return nil, apperr.Persistence(op, id, err)
	}
	m := make(map[string][]string)
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperr.Persistence(op, id, fmt.Errorf("decode tag index: %w", err))
	}
	return m, nil
}

func (x *Index) save(ctx context.Context, m map[string][]string, op, id string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return apperr.Persistence(op, id, fmt.Errorf("encode tag index: %w", err))
	}
	if err := x.blob.Save(ctx, data); err != nil {
		return apperr.Persistence(op, id, err)
	}
	return nil
}

// Normalize trims every tag and drops the empty ones. Order and duplicates
// are kept as given.
func Normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseList splits a comma-separated tag string such as "work, q3 ,draft".
func ParseList(s string) []string {
	return Normalize(strings.Split(s, ","))
}

func clone(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
