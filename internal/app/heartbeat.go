package app

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"mycelium/internal/liveness"
	"mycelium/internal/observability/metrics"
	"mycelium/internal/runtime/lifecycle"
)

// heartbeatEmitter emits one liveness record per interval while running.
type heartbeatEmitter struct {
	sinks    *liveness.Fanout
	interval time.Duration
	flag     *lifecycle.StopFlag
	metrics  *metrics.Metrics
	runID    string
	started  time.Time

	seq atomic.Uint64
}

func (h *heartbeatEmitter) run(ctx context.Context) error {
	for h.flag.Running() && ctx.Err() == nil {
		h.emit(ctx)
		if !sleep(ctx, h.flag, h.interval) {
			return nil
		}
	}
	return nil
}

func (h *heartbeatEmitter) emit(ctx context.Context) {
	seq := h.seq.Add(1)
	now := time.Now()
	h.sinks.Emit(ctx, liveness.Record{
		At:     now,
		RunID:  h.runID,
		Seq:    seq,
		PID:    os.Getpid(),
		Uptime: now.Sub(h.started),
	})
	h.metrics.ObserveHeartbeat()
}
