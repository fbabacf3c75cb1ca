package liveness

import (
	"context"

	"mycelium/internal/storage"
)

// StoreSink persists heartbeats.
type StoreSink struct{ Store storage.Store }

func (StoreSink) Name() string { return "store" }

func (s StoreSink) Emit(ctx context.Context, r Record) error {
	if s.Store == nil {
		return storage.ErrDisabled
	}
	return s.Store.RecordHeartbeat(ctx, storage.Heartbeat{
		At:       r.At,
		RunID:    r.RunID,
		Seq:      r.Seq,
		PID:      r.PID,
		UptimeMS: r.Uptime.Milliseconds(),
	})
}
