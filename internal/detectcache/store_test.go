package detectcache

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"textmask/internal/regions"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "detections.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRoundTrip(t *testing.T) {
	store := openTestStore(t)
	cache := store.ForSource("fp-1", "east-320x320")
	ctx := context.Background()

	want := []regions.Candidate{
		{Box: image.Rect(10, 20, 110, 60), Confidence: 0.75},
		{Box: image.Rect(300, 400, 500, 440), Confidence: 0.12},
	}
	if err := cache.Put(ctx, 30, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := cache.Get(ctx, 30)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d mismatch: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestMissOnUnknownFrame(t *testing.T) {
	store := openTestStore(t)
	cache := store.ForSource("fp-1", "east-320x320")

	_, ok, err := cache.Get(context.Background(), 99)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected a cache miss")
	}
}

func TestEmptyCandidateSetIsACacheableResult(t *testing.T) {
	store := openTestStore(t)
	cache := store.ForSource("fp-1", "east-320x320")
	ctx := context.Background()

	if err := cache.Put(ctx, 10, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := cache.Get(ctx, 10)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("an empty detection cycle should still be a hit")
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}

func TestSourcesAreIsolated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	a := store.ForSource("fp-a", "east-320x320")
	b := store.ForSource("fp-b", "east-320x320")
	model2 := store.ForSource("fp-a", "east-640x640")

	if err := a.Put(ctx, 0, []regions.Candidate{{Box: image.Rect(0, 0, 10, 10), Confidence: 1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := b.Get(ctx, 0); ok {
		t.Fatal("different fingerprint must not hit")
	}
	if _, ok, _ := model2.Get(ctx, 0); ok {
		t.Fatal("different model identity must not hit")
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	first, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}

	// Size change must change the fingerprint.
	if err := os.WriteFile(path, []byte("version-2"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	second, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if first == second {
		t.Fatal("fingerprint should change when the file changes")
	}

	// mtime change alone must also invalidate.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	third, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if third == second {
		t.Fatal("fingerprint should change with modification time")
	}
}

func TestFingerprintMissingFile(t *testing.T) {
	if _, err := Fingerprint(filepath.Join(t.TempDir(), "absent.mp4")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
