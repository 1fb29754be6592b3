package tags

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/opnvault/internal/apperr"
)

// failingBlob fails every load or save on demand.
type failingBlob struct {
	MemoryBlob
	failLoad bool
	failSave bool
}

func (b *failingBlob) Load(ctx context.Context) ([]byte, error) {
	if b.failLoad {
		return nil, errors.New("disk unavailable")
	}
	return b.MemoryBlob.Load(ctx)
}

func (b *failingBlob) Save(ctx context.Context, data []byte) error {
	if b.failSave {
		return errors.New("disk full")
	}
	return b.MemoryBlob.Save(ctx, data)
}

// countingBlob counts saves.
type countingBlob struct {
	MemoryBlob
	saves int
}

func (b *countingBlob) Save(ctx context.Context, data []byte) error {
	b.saves++
	return b.MemoryBlob.Save(ctx, data)
}

func TestGetUnknownIsEmpty(t *testing.T) {
	x := New(NewMemoryBlob())
	got, err := x.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Get = %#v, want empty non-nil slice", got)
	}
}

func TestSetNormalizesKeepingDuplicates(t *testing.T) {
	ctx := context.Background()
	x := New(NewMemoryBlob())

	stored, err := x.Set(ctx, "f1", []string{"a", "a", " b ", "", "   "})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	want := []string{"a", "a", "b"}
	if !reflect.DeepEqual(stored, want) {
		t.Errorf("Set returned %v, want %v", stored, want)
	}
	got, _ := x.Get(ctx, "f1")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %v, want %v", got, want)
	}
}

func TestSetReplaces(t *testing.T) {
	ctx := context.Background()
	x := New(NewMemoryBlob())
	_, _ = x.Set(ctx, "f1", []string{"old", "older"})
	_, _ = x.Set(ctx, "f1", []string{"new"})

	got, _ := x.Get(ctx, "f1")
	if !reflect.DeepEqual(got, []string{"new"}) {
		t.Errorf("Get = %v, want [new]", got)
	}
}

func TestSetEmptyKeepsEntry(t *testing.T) {
	ctx := context.Background()
	x := New(NewMemoryBlob())
	_, _ = x.Set(ctx, "f1", nil)

	all, _ := x.All(ctx)
	tags, ok := all["f1"]
	if !ok {
		t.Fatal("entry for f1 should exist")
	}
	if len(tags) != 0 {
		t.Errorf("tags = %v, want empty", tags)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	x := New(NewMemoryBlob())
	_, _ = x.Set(ctx, "f1", []string{"x"})
	_, _ = x.Set(ctx, "f2", []string{"y"})

	if err := x.Remove(ctx, "f1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got, _ := x.Get(ctx, "f1")
	if len(got) != 0 {
		t.Errorf("f1 tags after remove = %v", got)
	}
	got, _ = x.Get(ctx, "f2")
	if !reflect.DeepEqual(got, []string{"y"}) {
		t.Errorf("f2 tags = %v", got)
	}
}

func TestRemoveAbsentDoesNotWrite(t *testing.T) {
	blob := &countingBlob{}
	x := New(blob)
	if err := x.Remove(context.Background(), "ghost"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if blob.saves != 0 {
		t.Errorf("saves = %d, want 0", blob.saves)
	}
}

func TestRetain(t *testing.T) {
	ctx := context.Background()
	x := New(NewMemoryBlob())
	for _, id := range []string{"keep", "drop2", "drop1"} {
		_, _ = x.Set(ctx, id, []string{id})
	}

	removed, err := x.Retain(ctx, func(id string) bool { return id == "keep" })
	if err != nil {
		t.Fatalf("Retain: %v", err)
	}
	if !reflect.DeepEqual(removed, []string{"drop1", "drop2"}) {
		t.Errorf("removed = %v", removed)
	}
	all, _ := x.All(ctx)
	if len(all) != 1 || all["keep"] == nil {
		t.Errorf("remaining = %v", all)
	}
}

func TestLoadFailureIsPersistenceError(t *testing.T) {
	x := New(&failingBlob{failLoad: true})
	got, err := x.Get(context.Background(), "f1")
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("Get err = %v, want ErrPersistence", err)
	}
	if got == nil {
		t.Error("Get should still return a non-nil slice")
	}
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	x := New(&failingBlob{failSave: true})
	_, err := x.Set(context.Background(), "f1", []string{"a"})
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("Set err = %v, want ErrPersistence", err)
	}
}

func TestCorruptBlob(t *testing.T) {
	blob := NewMemoryBlob()
	_ = blob.Save(context.Background(), []byte("{not json"))
	x := New(blob)
	if _, err := x.All(context.Background()); !errors.Is(err, apperr.ErrPersistence) {
		t.Errorf("All err = %v, want ErrPersistence", err)
	}
}

func TestParseList(t *testing.T) {
	got := ParseList("work, q3 ,, draft,work")
	want := []string{"work", "q3", "draft", "work"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseList = %v, want %v", got, want)
	}
	if got := ParseList("   "); len(got) != 0 {
		t.Errorf("ParseList(blank) = %v", got)
	}
}

func TestFileBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "file_tags.json")

	x := New(NewFileBlob(path))
	if got, err := x.Get(ctx, "f1"); err != nil || len(got) != 0 {
		t.Fatalf("Get before save = %v, %v", got, err)
	}
	if _, err := x.Set(ctx, "f1", []string{"work"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh index over the same file sees the data.
	y := New(NewFileBlob(path))
	got, err := y.Get(ctx, "f1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"work"}) {
		t.Errorf("Get = %v", got)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".*tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestSQLiteBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, err := os.CreateTemp("", "opnvault-tags-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	blob, err := OpenSQLite(f.Name(), "file_tags")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { blob.Close() })

	data, err := blob.Load(ctx)
	if err != nil || data != nil {
		t.Fatalf("Load empty = %q, %v", data, err)
	}

	x := New(blob)
	_, _ = x.Set(ctx, "f1", []string{"a", "b"})
	_, _ = x.Set(ctx, "f1", []string{"c"})

	got, err := x.Get(ctx, "f1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("Get = %v", got)
	}
}

func TestWithPragmas(t *testing.T) {
	if got := withPragmas("/tmp/tags.db"); got != "/tmp/tags.db?_journal_mode=WAL&_busy_timeout=5000" {
		t.Errorf("plain path = %q", got)
	}
	if got := withPragmas("file:tags.db?cache=shared"); got != "file:tags.db?cache=shared&_journal_mode=WAL&_busy_timeout=5000" {
		t.Errorf("path with query = %q", got)
	}
}

func TestSQLiteBlobDSNWithQuery(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tags.db")

	blob, err := OpenSQLite("file:"+path+"?_foreign_keys=on", "file_tags")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { blob.Close() })

	x := New(blob)
	if _, err := x.Set(ctx, "f1", []string{"a"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := x.Get(ctx, "f1")
	if err != nil || !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Get = %v, %v", got, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database not created at %s: %v", path, err)
	}
}

func TestBadgerBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	blob, err := OpenBadger(BadgerOptions{InMemory: true, Key: "file_tags"})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { blob.Close() })

	x := New(blob)
	if _, err := x.Set(ctx, "f1", []string{"personal"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := x.Get(ctx, "f1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"personal"}) {
		t.Errorf("Get = %v", got)
	}
	if err := x.Remove(ctx, "f1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got, _ := x.Get(ctx, "f1"); len(got) != 0 {
		t.Errorf("Get after remove = %v", got)
	}
}

func TestOpenBadgerRequiresDir(t *testing.T) {
	if _, err := OpenBadger(BadgerOptions{Key: "k"}); err == nil {
		t.Error("expected error without dir")
	}
}
