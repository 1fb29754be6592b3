// Package testutil provides shared test helpers for setting up vaults and tag stores.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/opnvault/internal/storage"
	"github.com/starford/opnvault/internal/tags"
	"github.com/starford/opnvault/internal/vault"
)

// TestTagDB creates a temporary SQLite tag blob that is automatically cleaned up.
func TestTagDB(t *testing.T) *tags.SQLiteBlob {
	t.Helper()
	dbFile, err := os.CreateTemp("", "opnvault-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	blob, err := tags.OpenSQLite(dbFile.Name(), "file_tags")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { blob.Close() })
	return blob
}

// TestVault creates a temporary vault directory with a Store whose tags live
// in a temporary SQLite database. Extra options are applied after the defaults.
func TestVault(t *testing.T, opts ...vault.Option) (string, *vault.Store) {
	t.Helper()
	vaultDir := t.TempDir()
	fs, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]vault.Option{vault.WithLogger(QuietLogger())}, opts...)
	return vaultDir, vault.New(fs, tags.New(TestTagDB(t)), opts...)
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
