// Package audit provides an append-only SQLite log of Device Engine
// lifecycle events, for postmortem diagnosis of a daemon that by
// design keeps no other state across restarts.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"keyremapd/internal/security"
)

// EventType identifies the kind of lifecycle event being recorded.
// Values mirror internal/ipc.EventType so the daemon can translate one
// into the other without a lossy remap when it also broadcasts the
// event to subscribed IPC clients.
type EventType uint16

const (
	EventEngineStart    EventType = 0x0001
	EventGrab           EventType = 0x0002
	EventUngrab         EventType = 0x0003
	EventReload         EventType = 0x0004
	EventGameModeToggle EventType = 0x0005
	EventCommandFailure EventType = 0x0006
	EventShutdown       EventType = 0x0007
	EventCrashRecovered EventType = 0x0008
)

// String renders the event type for logging and CLI display.
func (t EventType) String() string {
	switch t {
	case EventEngineStart:
		return "engine_start"
	case EventGrab:
		return "grab"
	case EventUngrab:
		return "ungrab"
	case EventReload:
		return "reload"
	case EventGameModeToggle:
		return "game_mode_toggle"
	case EventCommandFailure:
		return "command_failure"
	case EventShutdown:
		return "shutdown"
	case EventCrashRecovered:
		return "crash_recovered"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(t))
	}
}

// Event is one recorded lifecycle event.
type Event struct {
	ID        int64
	Type      EventType
	DeviceID  string
	Detail    string
	Timestamp time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    type         INTEGER NOT NULL,
    device_id    TEXT NOT NULL DEFAULT '',
    detail       TEXT NOT NULL DEFAULT '',
    timestamp_ns INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_device ON events(device_id);
`

// Log is the SQLite-backed lifecycle event log.
type Log struct {
	db *sql.DB
}

// Open opens or creates the audit database at path and applies its
// schema. The parent directory is created with owner-only permissions
// since the log can contain shell command strings from Command
// bindings that fail to spawn.
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := security.EnsureSecureDir(dir); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}

	if err := os.Chmod(path, security.PermSecretFile); err != nil {
		db.Close()
		return nil, fmt.Errorf("set audit database permissions: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Record appends an event to the log. It is safe to call concurrently
// from multiple Device Engine goroutines.
func (l *Log) Record(ctx context.Context, typ EventType, deviceID, detail string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO events (type, device_id, detail, timestamp_ns) VALUES (?, ?, ?, ?)`,
		uint16(typ), deviceID, detail, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Recent returns the most recently recorded events, newest first,
// capped at limit rows.
func (l *Log) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, type, device_id, detail, timestamp_ns FROM events ORDER BY timestamp_ns DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var typ uint16
		var tsNs int64
		if err := rows.Scan(&e.ID, &typ, &e.DeviceID, &e.Detail, &tsNs); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = EventType(typ)
		e.Timestamp = time.Unix(0, tsNs)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// ForDevice returns events for a single device, newest first, capped
// at limit rows.
func (l *Log) ForDevice(ctx context.Context, deviceID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, type, device_id, detail, timestamp_ns FROM events WHERE device_id = ? ORDER BY timestamp_ns DESC LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query device events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var typ uint16
		var tsNs int64
		if err := rows.Scan(&e.ID, &typ, &e.DeviceID, &e.Detail, &tsNs); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = EventType(typ)
		e.Timestamp = time.Unix(0, tsNs)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device events: %w", err)
	}

	return events, nil
}

// Prune deletes events older than cutoff, returning the number of rows
// removed. Intended to be called periodically so the audit database
// does not grow unbounded on a long-running daemon.
func (l *Log) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := l.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp_ns < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return result.RowsAffected()
}
