package storage

import (
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrClosed   = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (modernc.org/sqlite, pure Go)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	// HeartbeatRetention bounds the heartbeat history (sqlite only).
	// 0 means DefaultHeartbeatRetention.
	HeartbeatRetention int
}

const DefaultHeartbeatRetention = 1000

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventStarted          EventKind = "started"
	EventUpdateDetected   EventKind = "update_detected"
	EventRestartRequested EventKind = "restart_requested"
	EventSeedingFailed    EventKind = "seeding_failed"
	EventFatal            EventKind = "fatal"
	EventStopped          EventKind = "stopped"
)

// Event is one lifecycle record. Keep it compact and schema-stable.
type Event struct {
	At     time.Time `json:"at"`
	RunID  string    `json:"run_id"`
	Kind   EventKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Heartbeat is a persisted liveness record.
type Heartbeat struct {
	At       time.Time `json:"at"`
	RunID    string    `json:"run_id"`
	Seq      uint64    `json:"seq"`
	PID      int       `json:"pid"`
	UptimeMS int64     `json:"uptime_ms"`
}
