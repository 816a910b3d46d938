package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFlockExclusiveNonBlockingRejectsSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")

	first, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open first handle: %v", err)
	}
	defer first.Close()

	if err := FlockExclusiveNonBlocking(first); err != nil {
		t.Fatalf("first lock should succeed, got %v", err)
	}
	defer FlockUnlock(first)

	second, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	defer second.Close()

	err = FlockExclusiveNonBlocking(second)
	if err == nil {
		t.Fatal("expected second lock attempt to fail while first is held")
	}
	if !IsLocked(err) {
		t.Fatalf("expected IsLocked(err) to be true, got %v", err)
	}
}

func TestFlockUnlockReleasesForNextHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if err := FlockExclusiveNonBlocking(f); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := FlockUnlock(f); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	other, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	defer other.Close()

	if err := FlockExclusiveNonBlocking(other); err != nil {
		t.Fatalf("expected lock to succeed after release, got %v", err)
	}
	FlockUnlock(other)
}

func TestFlockSharedNonBlockAllowsMultipleReaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")

	a, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()

	if err := FlockSharedNonBlock(a); err != nil {
		t.Fatalf("shared lock a: %v", err)
	}
	defer FlockUnlock(a)
	if err := FlockSharedNonBlock(b); err != nil {
		t.Fatalf("expected a second shared lock to succeed, got %v", err)
	}
	defer FlockUnlock(b)
}

func TestFlockSharedNonBlockRejectsAgainstExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")

	a, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()

	if err := FlockExclusiveNonBlock(a); err != nil {
		t.Fatalf("exclusive lock a: %v", err)
	}
	defer FlockUnlock(a)

	if err := FlockSharedNonBlock(b); err == nil {
		t.Fatal("expected shared lock to fail while exclusive lock is held")
	}
}

func TestIsLockedOnlyMatchesDaemonLockedSentinel(t *testing.T) {
	if IsLocked(nil) {
		t.Fatal("IsLocked(nil) must be false")
	}
	if !IsLocked(ErrLocked) {
		t.Fatal("IsLocked(ErrLocked) must be true")
	}
	if IsLocked(ErrLockBusy) {
		t.Fatal("ErrLockBusy is a distinct sentinel from ErrLocked")
	}
}

func TestIsProcessRunningRejectsNonPositivePID(t *testing.T) {
	if isProcessRunning(0) {
		t.Fatal("pid 0 must report not running")
	}
	if isProcessRunning(-1) {
		t.Fatal("negative pid must report not running")
	}
}

func TestIsProcessRunningReportsSelf(t *testing.T) {
	if !isProcessRunning(os.Getpid()) {
		t.Fatal("expected the current process to report as running")
	}
}
