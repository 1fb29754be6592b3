package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/opnvault/internal/storage"
	"github.com/starford/opnvault/internal/tags"
	"github.com/starford/opnvault/internal/vault"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcher_ExternalDeletePrunesTags(t *testing.T) {
	root := t.TempDir()
	fs, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	store := vault.New(fs, tags.New(tags.NewMemoryBlob()), vault.WithLogger(quietLogger()))

	bg := context.Background()
	f, err := store.Create(bg, "doomed.md", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SetTags(bg, f.ID, []string{"t"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(bg)
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, root, store, 50*time.Millisecond, quietLogger(), func(kind, id string) {
		mu.Lock()
		events = append(events, kind+":"+id)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	// Removed behind the vault's back.
	_ = os.Remove(filepath.Join(root, f.Location))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		all, _ := store.Tags(bg, f.ID)
		return len(all) == 0
	}, "orphaned tags not pruned")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "deleted:"+f.ID {
				return true
			}
		}
		return false
	}, "expected deleted callback")
}

func TestWatcher_ForeignFileTriggersRefresh(t *testing.T) {
	root := t.TempDir()
	fs, _ := storage.NewFS(root)
	store := vault.New(fs, tags.New(tags.NewMemoryBlob()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	go Watch(ctx, root, store, 50*time.Millisecond, quietLogger(), func(kind, id string) {
		if kind == "changed" {
			changed <- struct{}{}
		}
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "dropped-in.txt"), []byte("hi"), 0o644)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no refresh after foreign write")
	}
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	fs, _ := storage.NewFS(root)
	store := vault.New(fs, tags.New(tags.NewMemoryBlob()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, root, store, 0, quietLogger(), nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
