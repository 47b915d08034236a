package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "serve.lock")
	if err := Acquire(path); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	held, pid, err := IsHeld(path)
	if err != nil {
		t.Fatal(err)
	}
	if !held || pid != os.Getpid() {
		t.Errorf("expected lock held by %d, got %v %d", os.Getpid(), held, pid)
	}
	// Re-acquiring from the same process is allowed.
	if err := Acquire(path); err != nil {
		t.Errorf("re-acquire: %v", err)
	}
	if err := Release(path); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := Release(path); err != nil {
		t.Errorf("second release should be a no-op: %v", err)
	}
	held, _, _ = IsHeld(path)
	if held {
		t.Error("lock should be released")
	}
}

func TestAcquireTakesOverStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.lock")
	// PIDs near the max are effectively never running.
	if err := os.WriteFile(path, []byte(strconv.Itoa(1<<22-1)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Acquire(path); err != nil {
		t.Fatalf("expected stale lock takeover, got %v", err)
	}
}

func TestIsHeldGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.lock")
	_ = os.WriteFile(path, []byte("not-a-pid"), 0o644)
	held, _, err := IsHeld(path)
	if err != nil || held {
		t.Errorf("garbage lock should not be held: %v %v", held, err)
	}
}
