package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/opnvault/internal/storage"
	"github.com/starford/opnvault/internal/tags"
	"github.com/starford/opnvault/internal/vault"
)

// NewLogger returns the structured JSON logger used by every command.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// OpenStore builds the vault store described by cfg. The returned close
// function releases the tag backend and must be called once the store is no
// longer used.
func OpenStore(cfg *Config, logger *slog.Logger, opts ...vault.Option) (*vault.Store, func() error, error) {
	fs, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	blob, closeFn, err := openTagBlob(cfg.Tags, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init tags: %w", err)
	}
	opts = append([]vault.Option{vault.WithLogger(logger)}, opts...)
	return vault.New(fs, tags.New(blob), opts...), closeFn, nil
}

// CloseLogged calls closeFn and logs a failure instead of dropping it.
func CloseLogged(logger *slog.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("close "+what+" failed", slog.String("error", err.Error()))
	}
}

func openTagBlob(cfg TagsConfig, logger *slog.Logger) (tags.Blob, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case TagsBackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, err
		}
		blob, err := tags.OpenSQLite(cfg.Path, cfg.Name)
		if err != nil {
			return nil, nil, err
		}
		return blob, blob.Close, nil
	case TagsBackendBadger:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, nil, err
		}
		blob, err := tags.OpenBadger(tags.BadgerOptions{
			Dir:    cfg.Path,
			Key:    cfg.Name,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return blob, blob.Close, nil
	case TagsBackendFile, "":
		return tags.NewFileBlob(cfg.Path), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown tags backend %q", cfg.Backend)
	}
}
