package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenAndClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "audit.db")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := l.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "audit.db")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()
}

func TestOpenSetsSecurePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "audit.db")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %04o, want 0600", info.Mode().Perm())
	}
}

func TestCloseNilDB(t *testing.T) {
	l := &Log{db: nil}
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil db should not error: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	tmpDir := t.TempDir()
	l, err := Open(filepath.Join(tmpDir, "audit.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()

	if err := l.Record(ctx, EventEngineStart, "event3", "starting"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Record(ctx, EventGrab, "event3", ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Record(ctx, EventCommandFailure, "event5", "exec: fork/exec /bin/sh: resource temporarily unavailable"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	events, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	// Recent is newest-first.
	if events[0].Type != EventCommandFailure {
		t.Errorf("events[0].Type = %v, want %v", events[0].Type, EventCommandFailure)
	}
	if events[0].DeviceID != "event5" {
		t.Errorf("events[0].DeviceID = %q, want event5", events[0].DeviceID)
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	tmpDir := t.TempDir()
	l, err := Open(filepath.Join(tmpDir, "audit.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := l.Record(ctx, EventGrab, "event3", ""); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	events, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}
}

func TestForDeviceFiltersByDeviceID(t *testing.T) {
	tmpDir := t.TempDir()
	l, err := Open(filepath.Join(tmpDir, "audit.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	if err := l.Record(ctx, EventGrab, "event3", ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Record(ctx, EventGrab, "event5", ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	events, err := l.ForDevice(ctx, "event3", 10)
	if err != nil {
		t.Fatalf("ForDevice failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event for event3, got %d", len(events))
	}
	if events[0].DeviceID != "event3" {
		t.Errorf("DeviceID = %q, want event3", events[0].DeviceID)
	}
}

func TestPruneRemovesOldEvents(t *testing.T) {
	tmpDir := t.TempDir()
	l, err := Open(filepath.Join(tmpDir, "audit.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	if err := l.Record(ctx, EventEngineStart, "", ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	removed, err := l.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 row removed, got %d", removed)
	}

	events, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected 0 events after prune, got %d", len(events))
	}
}

func TestEventTypeString(t *testing.T) {
	tests := map[EventType]string{
		EventEngineStart:    "engine_start",
		EventGrab:           "grab",
		EventUngrab:         "ungrab",
		EventReload:         "reload",
		EventGameModeToggle: "game_mode_toggle",
		EventCommandFailure: "command_failure",
		EventShutdown:       "shutdown",
		EventCrashRecovered: "crash_recovered",
	}

	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("EventType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
