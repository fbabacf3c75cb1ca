package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mycelium/internal/observability/metrics"
	"mycelium/internal/runtime/lifecycle"
	"mycelium/internal/sourcesync"
	"mycelium/internal/storage"
	logx "mycelium/pkg/logx"
)

// updateMonitor polls SourceSync and, once an update is pulled, hands the
// process over to the restart hook.
//
//	IDLE -> CHECKING -> IDLE                  (no update / SyncError)
//	IDLE -> CHECKING -> PULLING -> RESTART    (terminal)
type updateMonitor struct {
	src      SourceSync
	interval time.Duration
	flag     *lifecycle.StopFlag
	log      logx.Logger
	metrics  *metrics.Metrics
	record   func(kind storage.EventKind, detail string, err error)

	restartCode int
	// restart ends the process. When it returns, run reports a
	// lifecycle.RestartRequest instead.
	restart func(code int)
}

func (m *updateMonitor) run(ctx context.Context) error {
	for m.flag.Running() && ctx.Err() == nil {
		if err := m.check(ctx); err != nil {
			return err
		}
		if !sleep(ctx, m.flag, m.interval) {
			return nil
		}
	}
	return nil
}

func (m *updateMonitor) check(ctx context.Context) error {
	has, err := m.src.HasUpdates(ctx)
	if err != nil {
		return m.classify(ctx, "check", err)
	}
	if !has {
		m.metrics.ObserveUpdateCheck(metrics.ResultNoUpdate)
		m.log.Debug("no updates")
		return nil
	}

	m.metrics.ObserveUpdateCheck(metrics.ResultUpdate)
	m.log.Info("updates detected on remote repository")
	m.record(storage.EventUpdateDetected, "", nil)

	if err := m.src.PullUpdates(ctx); err != nil {
		return m.classify(ctx, "pull", err)
	}
	m.log.Info("updates pulled successfully, restarting", logx.Int("exit_code", m.restartCode))

	m.flag.Stop(lifecycle.StopRestart)
	if m.restart != nil {
		m.restart(m.restartCode)
	}
	return lifecycle.RestartRequest{Code: m.restartCode}
}

func (m *updateMonitor) classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	var se *sourcesync.SyncError
	if errors.As(err, &se) {
		m.metrics.ObserveUpdateCheck(metrics.ResultError)
		m.log.Error("code sync error", logx.String("op", op), logx.Err(err))
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
