package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStatusRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok, err := s.LoadStatus(); err != nil || ok {
		t.Fatalf("LoadStatus() before save = ok=%v err=%v, want absent", ok, err)
	}
	status := RunStatus{
		Symbol:     "XYZUSDT",
		State:      StateDone,
		PID:        os.Getpid(),
		EntryPrice: decimal.RequireFromString("1.23"),
		BuyOrderID: "42",
	}
	if err := s.SaveStatus(status); err != nil {
		t.Fatalf("SaveStatus() error = %v", err)
	}
	got, ok, err := s.LoadStatus()
	if err != nil || !ok {
		t.Fatalf("LoadStatus() = ok=%v err=%v, want present", ok, err)
	}
	if got.Symbol != "XYZUSDT" || got.State != StateDone || got.BuyOrderID != "42" {
		t.Fatalf("LoadStatus() = %+v, want saved status", got)
	}
	if !got.EntryPrice.Equal(status.EntryPrice) {
		t.Fatalf("entry price = %s, want 1.23", got.EntryPrice)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt not stamped on save")
	}
}

func TestSaveStatusOverwritesPreviousRun(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.SaveStatus(RunStatus{Symbol: "XYZUSDT", State: StateRunning}); err != nil {
		t.Fatalf("SaveStatus(running) error = %v", err)
	}
	if err := s.SaveStatus(RunStatus{Symbol: "XYZUSDT", State: StateFailed, LastError: "boom"}); err != nil {
		t.Fatalf("SaveStatus(failed) error = %v", err)
	}
	got, ok, err := s.LoadStatus()
	if err != nil || !ok {
		t.Fatalf("LoadStatus() = ok=%v err=%v, want present", ok, err)
	}
	if got.State != StateFailed || got.LastError != "boom" {
		t.Fatalf("LoadStatus() = %+v, want failed snapshot", got)
	}
}

func TestNewRequiresStateDir(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("New(\"\") error = nil, want state dir required")
	}
}

func TestInstanceLockBlocksSecondAcquire(t *testing.T) {
	root := t.TempDir()
	lock, err := AcquireInstanceLock(root)
	if err != nil {
		t.Fatalf("first AcquireInstanceLock() error = %v", err)
	}
	if _, err := AcquireInstanceLock(root); err == nil {
		t.Fatalf("second AcquireInstanceLock() error = nil, want owner_process_running")
	} else if !strings.Contains(err.Error(), "owner_process_running") {
		t.Fatalf("second AcquireInstanceLock() error = %v, want owner_process_running", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	relock, err := AcquireInstanceLock(root)
	if err != nil {
		t.Fatalf("reacquire after release error = %v", err)
	}
	_ = relock.Release()
}

func TestInstanceLockTakesOverDeadOwner(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".instance.lock")
	stale := "pid=999999999\nstarted_at=2026-01-01T00:00:00Z\n"
	if err := os.WriteFile(path, []byte(stale), 0o644); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}
	lock, err := AcquireInstanceLock(root)
	if err != nil {
		t.Fatalf("AcquireInstanceLock() over dead owner error = %v", err)
	}
	_ = lock.Release()
}

func TestInstanceLockKeepsUnreadableOwner(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".instance.lock")
	if err := os.WriteFile(path, []byte("garbage\n"), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}
	if _, err := AcquireInstanceLock(root); err == nil {
		t.Fatalf("AcquireInstanceLock() error = nil, want missing_lock_owner_info")
	} else if !strings.Contains(err.Error(), "missing_lock_owner_info") {
		t.Fatalf("AcquireInstanceLock() error = %v, want missing_lock_owner_info", err)
	}
}

func TestReleaseNilLockIsSafe(t *testing.T) {
	var lock *InstanceLock
	if err := lock.Release(); err != nil {
		t.Fatalf("nil Release() error = %v", err)
	}
}
