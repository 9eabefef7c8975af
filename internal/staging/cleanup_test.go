package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"trackbot/internal/logging"
	"trackbot/internal/testsupport"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	testsupport.WriteFile(t, path, 1)
	testsupport.Backdate(t, path, age)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldArtifacts(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "oldid.mp3")
	oldPart := filepath.Join(dir, "oldid.webm.part")
	oldLock := filepath.Join(dir, "oldid.lock")
	recent := filepath.Join(dir, "newid.mp3")
	writeAged(t, old, 2*time.Hour)
	writeAged(t, oldPart, 2*time.Hour)
	writeAged(t, oldLock, 2*time.Hour)
	writeAged(t, recent, 0)

	result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %#v", result.Errors)
	}
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", result.Removed)
	}
	for _, path := range []string{old, oldPart} {
		if exists(path) {
			t.Errorf("%s should have been removed", path)
		}
	}
	if !exists(recent) {
		t.Error("recent artifact should still exist")
	}
	if !exists(oldLock) {
		t.Error("lock file must survive the sweep")
	}
}

func TestCleanStaleKeepsLockInode(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "shared.lock")
	writeAged(t, filepath.Join(dir, "shared.mp3"), 2*time.Hour)
	writeAged(t, lockPath, 2*time.Hour)
	before, err := os.Stat(lockPath)
	if err != nil {
		t.Fatal(err)
	}

	CleanStale(context.Background(), dir, time.Hour, logging.NewNop())

	after, err := os.Stat(lockPath)
	if err != nil {
		t.Fatalf("lock file removed by sweep: %v", err)
	}
	if !os.SameFile(before, after) {
		t.Fatal("lock file replaced by sweep")
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("sweep left lock held: locked=%v err=%v", locked, err)
	}
	_ = lock.Unlock()
}

func TestCleanStaleSkipsHeldLocks(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "busy.mp3")
	lockPath := filepath.Join(dir, "busy.lock")
	writeAged(t, artifact, 2*time.Hour)

	held := flock.New(lockPath)
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: locked=%v err=%v", locked, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != artifact {
		t.Fatalf("expected %s skipped, got %v", artifact, result.Skipped)
	}
	if !exists(artifact) || !exists(lockPath) {
		t.Fatal("held artifact should be untouched")
	}
}

func TestCleanStaleDisabledByZeroAge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.mp3")
	writeAged(t, path, 48*time.Hour)
	result := CleanStale(context.Background(), dir, 0, nil)
	if len(result.Removed) != 0 || !exists(path) {
		t.Fatal("zero max age should disable the sweep")
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, filepath.Join(dir, "a.mp3"), 0)
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0].Name != "a.mp3" || files[0].Size != 1 {
		t.Fatalf("unexpected files %#v", files)
	}
	if files, err := ListFiles(filepath.Join(dir, "missing")); err != nil || files != nil {
		t.Fatalf("missing dir: files=%v err=%v", files, err)
	}
}

func TestKeyOf(t *testing.T) {
	cases := map[string]string{
		"abc.mp3":       "abc",
		"abc.webm.part": "abc",
		"abc":           "abc",
		".hidden":       ".hidden",
	}
	for in, want := range cases {
		if got := keyOf(in); got != want {
			t.Errorf("keyOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUsageCountsArtifactsOnly(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "big.mp3"), 50*1024*1024+1)
	testsupport.WriteFile(t, filepath.Join(dir, "big.webm.part"), 100)
	testsupport.WriteFile(t, filepath.Join(dir, "big.lock"), 0)

	count, size, err := Usage(dir)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if count != 2 || size != 50*1024*1024+101 {
		t.Fatalf("Usage = %d files, %d bytes", count, size)
	}

	count, size, err = Usage(filepath.Join(dir, "missing"))
	if err != nil || count != 0 || size != 0 {
		t.Fatalf("missing dir: %d %d %v", count, size, err)
	}
}
