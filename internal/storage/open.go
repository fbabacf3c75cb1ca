package storage

import (
	"context"
	"errors"
	"strings"

	logx "mycelium/pkg/logx"
)

// Store is the persistence API used by the supervisor.
type Store interface {
	AppendEvent(ctx context.Context, e Event) error
	RecordHeartbeat(ctx context.Context, hb Heartbeat) error
	LastHeartbeat(ctx context.Context) (hb Heartbeat, ok bool, err error)
	// RecentEvents returns up to limit events, newest last.
	RecentEvents(ctx context.Context, limit int) ([]Event, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "storage"))
	if cfg.HeartbeatRetention <= 0 {
		cfg.HeartbeatRetention = DefaultHeartbeatRetention
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
