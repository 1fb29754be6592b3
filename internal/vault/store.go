// Package vault manages the documents in the local vault and keeps their tag
// entries consistent with the files on disk.
//
// A file's identity is encoded in its storage location together with its
// display name (see EncodeLocation), so no registry other than the storage
// itself is needed. Tags live in a separate tags.Index keyed by that id.
package vault

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/opnvault/internal/apperr"
	"github.com/starford/opnvault/internal/checksum"
	"github.com/starford/opnvault/internal/models"
	"github.com/starford/opnvault/internal/storage"
	"github.com/starford/opnvault/internal/tags"
)

// Event kinds passed to the event hook.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventRenamed = "renamed"
	EventDeleted = "deleted"
	EventTagged  = "tagged"
)

// EventHook is called after a successful mutation.
type EventHook func(kind, id string)

// Store is the vault. It holds no cached state: every List rescans storage.
type Store struct {
	fs     storage.Provider
	tags   *tags.Index
	logger *slog.Logger
	newID  func() string
	hook   EventHook
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithEventHook registers a callback for successful mutations.
func WithEventHook(fn EventHook) Option {
	return func(s *Store) { s.hook = fn }
}

// New creates a Store over byte storage fs and tag index idx.
func New(fs storage.Provider, idx *tags.Index, opts ...Option) *Store {
	s := &Store{
		fs:     fs,
		tags:   idx,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every file in the vault, most recently modified first.
// Tags that cannot be loaded are logged and left empty.
func (s *Store) List(ctx context.Context) ([]models.VaultFile, error) {
	entries, err := s.fs.List()
	if err != nil {
		return nil, apperr.IO("list", "", err)
	}
	tagMap, err := s.tags.All(ctx)
	if err != nil {
		s.logger.Warn("vault: tags unavailable for listing", slog.String("error", err.Error()))
	}

	files := make([]models.VaultFile, 0, len(entries))
	for _, e := range entries {
		f := fromEntry(e)
		if t, ok := tagMap[f.ID]; ok {
			f.Tags = append(f.Tags, t...)
		}
		files = append(files, f)
	}
	SortByModified(files)
	return files, nil
}

// Get returns the file with the given id.
func (s *Store) Get(ctx context.Context, id string) (models.VaultFile, error) {
	files, err := s.List(ctx)
	if err != nil {
		return models.VaultFile{}, err
	}
	for _, f := range files {
		if f.ID == id {
			return f, nil
		}
	}
	return models.VaultFile{}, apperr.NotFound("get", id, nil)
}

// Create writes a new file named name with the given initial content.
func (s *Store) Create(_ context.Context, name string, content []byte) (models.VaultFile, error) {
	name, err := cleanName("create", name)
	if err != nil {
		return models.VaultFile{}, err
	}
	id := s.newID()
	loc := EncodeLocation(id, name)
	if err := s.fs.Write(loc, content); err != nil {
		return models.VaultFile{}, apperr.IO("create", id, err)
	}
	f, err := s.observe("create", loc)
	if err != nil {
		return models.VaultFile{}, err
	}
	s.logger.Debug("vault: created", slog.String("id", id), slog.String("name", name))
	s.emit(EventCreated, id)
	return f, nil
}

// Read returns the current content of f.
func (s *Store) Read(_ context.Context, f models.VaultFile) ([]byte, error) {
	data, err := s.fs.Read(f.Location)
	if err != nil {
		return nil, classify("read", f.ID, err)
	}
	return data, nil
}

// Write replaces the content of f and returns it with a fresh size and
// modification time. Tags are carried over untouched.
func (s *Store) Write(ctx context.Context, f models.VaultFile, content []byte) (models.VaultFile, error) {
	return s.WriteIfMatch(ctx, f, content, "")
}

// WriteIfMatch is Write guarded by an ETag: when etag is non-empty it must
// equal the checksum of the current content.
func (s *Store) WriteIfMatch(_ context.Context, f models.VaultFile, content []byte, etag string) (models.VaultFile, error) {
	if etag != "" {
		current, err := s.fs.Read(f.Location)
		if err != nil {
			return models.VaultFile{}, classify("write", f.ID, err)
		}
		if !checksum.Match(current, etag) {
			return models.VaultFile{}, apperr.Conflict("write", f.ID, errors.New("content changed since it was read"))
		}
	} else if _, err := s.fs.Stat(f.Location); err != nil {
		return models.VaultFile{}, classify("write", f.ID, err)
	}

	if err := s.fs.Write(f.Location, content); err != nil {
		return models.VaultFile{}, apperr.IO("write", f.ID, err)
	}
	updated, err := s.observe("write", f.Location)
	if err != nil {
		return models.VaultFile{}, err
	}
	updated.Tags = append(updated.Tags, f.Tags...)
	s.emit(EventUpdated, f.ID)
	return updated, nil
}

// Rename gives f a new display name. The content moves to the location
// derived from the same id and the new name. Foreign files whose id begins or
// ends with Separator cannot be renamed without changing their id, so they
// are rejected.
func (s *Store) Rename(_ context.Context, f models.VaultFile, newName string) (models.VaultFile, error) {
	newName, err := cleanName("rename", newName)
	if err != nil {
		return models.VaultFile{}, err
	}
	newLoc := EncodeLocation(f.ID, newName)
	if newLoc == f.Location {
		return f, nil
	}
	if id, _ := DecodeLocation(newLoc); id != f.ID {
		return models.VaultFile{}, apperr.Validation("rename", f.ID,
			"file id %q cannot carry a new name", f.ID)
	}
	if err := s.fs.Move(f.Location, newLoc); err != nil {
		return models.VaultFile{}, classify("rename", f.ID, err)
	}
	renamed, err := s.observe("rename", newLoc)
	if err != nil {
		return models.VaultFile{}, err
	}
	renamed.Tags = append(renamed.Tags, f.Tags...)
	s.logger.Debug("vault: renamed", slog.String("id", f.ID), slog.String("name", newName))
	s.emit(EventRenamed, f.ID)
	return renamed, nil
}

// Delete removes the tag entry of f and then its content. Both steps run even
// if the first fails. Deleting a file that is already gone succeeds.
//
// If only the tag entry could not be removed the file is still deleted and the
// returned error satisfies apperr.IsNonFatal.
func (s *Store) Delete(ctx context.Context, f models.VaultFile) error {
	tagErr := s.tags.Remove(ctx, f.ID)
	if tagErr != nil {
		s.logger.Warn("vault: tag entry not removed",
			slog.String("id", f.ID), slog.String("error", tagErr.Error()))
	}

	if err := s.fs.Delete(f.Location); err != nil {
		s.logger.Error("vault: delete failed",
			slog.String("id", f.ID), slog.String("error", err.Error()))
		return errors.Join(apperr.IO("delete", f.ID, err), tagErr)
	}
	s.emit(EventDeleted, f.ID)
	return tagErr
}

// Upload copies the document chosen by src into the vault under a new id.
// A cancelled selection returns nil and no error.
func (s *Store) Upload(ctx context.Context, src Source) (*models.VaultFile, error) {
	picked, err := src.Pick(ctx)
	if err != nil {
		return nil, apperr.IO("upload", "", err)
	}
	if picked == nil {
		return nil, nil
	}
	defer picked.Body.Close()

	name := strings.TrimSpace(picked.Name)
	if name != "" {
		name = filepath.Base(name)
	}
	name, err = cleanName("upload", name)
	if err != nil {
		return nil, err
	}
	id := s.newID()
	loc := EncodeLocation(id, name)
	if _, err := s.fs.Copy(loc, picked.Body); err != nil {
		return nil, apperr.IO("upload", id, err)
	}
	f, err := s.observe("upload", loc)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("vault: uploaded", slog.String("id", id), slog.String("name", name))
	s.emit(EventCreated, id)
	return &f, nil
}

// Tags returns the tags recorded for id.
func (s *Store) Tags(ctx context.Context, id string) ([]string, error) {
	return s.tags.Get(ctx, id)
}

// SetTags replaces the tags of id and returns the normalized set.
func (s *Store) SetTags(ctx context.Context, id string, t []string) ([]string, error) {
	stored, err := s.tags.Set(ctx, id, t)
	if err != nil {
		return nil, err
	}
	s.emit(EventTagged, id)
	return stored, nil
}

// Usage returns the total size in bytes of every file in the vault.
func (s *Store) Usage(ctx context.Context) (int64, error) {
	files, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return TotalSize(files), nil
}

// Reconcile removes tag entries whose file no longer exists and returns
// their ids.
func (s *Store) Reconcile(ctx context.Context) ([]string, error) {
	entries, err := s.fs.List()
	if err != nil {
		return nil, apperr.IO("reconcile", "", err)
	}
	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		id, _ := DecodeLocation(e.Name)
		present[id] = struct{}{}
	}
	removed, err := s.tags.Retain(ctx, func(id string) bool {
		_, ok := present[id]
		return ok
	})
	if err != nil {
		return nil, err
	}
	for _, id := range removed {
		s.logger.Info("vault: removed orphaned tags", slog.String("id", id))
	}
	return removed, nil
}

// observe stats loc and builds the file it denotes, with empty tags.
func (s *Store) observe(op, loc string) (models.VaultFile, error) {
	e, err := s.fs.Stat(loc)
	if err != nil {
		id, _ := DecodeLocation(loc)
		return models.VaultFile{}, classify(op, id, err)
	}
	return fromEntry(e), nil
}

func (s *Store) emit(kind, id string) {
	if s.hook != nil {
		s.hook(kind, id)
	}
}

func fromEntry(e storage.Entry) models.VaultFile {
	id, name := DecodeLocation(e.Name)
	return models.VaultFile{
		ID:         id,
		Name:       name,
		Location:   e.Name,
		Size:       e.Size,
		ModifiedAt: e.ModTime,
		Tags:       []string{},
	}
}

// cleanName trims name and rejects values that cannot form a location.
func cleanName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", apperr.Validation(op, "", "name is required")
	case name == "." || name == "..":
		return "", apperr.Validation(op, name, "name is reserved")
	case strings.ContainsAny(name, `/\`+"\x00"):
		return "", apperr.Validation(op, name, "name must not contain path separators")
	}
	return name, nil
}

// classify maps a storage error to the vault taxonomy.
func classify(op, id string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return apperr.NotFound(op, id, err)
	}
	return apperr.IO(op, id, err)
}
