package app

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"

	"mycelium/internal/runtime/lifecycle"
	"mycelium/internal/runtime/supervisor"
	"mycelium/internal/seeding"
	"mycelium/internal/storage"
	logx "mycelium/pkg/logx"
)

// seedingBridge observes the distribution session from a supervised task.
//
// It never fails the supervisor: a *seeding.SeedingError ends only this
// task, and any other error or panic in the worker is logged with its stack
// and swallowed.
type seedingBridge struct {
	engine DistributionEngine
	opts   seeding.SessionOptions
	worker *workerBridge
	flag   *lifecycle.StopFlag
	log    logx.Logger
	record func(kind storage.EventKind, detail string, err error)

	reported atomic.Bool
}

func (b *seedingBridge) run(ctx context.Context) error {
	done, err := b.worker.Submit("seeding.session", func(wctx context.Context) error {
		return b.engine.RunSession(wctx, b.opts)
	})
	if err != nil {
		b.log.Warn("seeding worker not started", logx.Err(err))
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil
	case <-b.flag.Done():
		return nil
	}

	b.report(b.worker.Err())
	return nil
}

// drain reports a worker result the run loop left behind because it
// returned on cancellation. Call it after the worker has been joined.
func (b *seedingBridge) drain() {
	err := b.worker.Err()
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	b.report(err)
}

// report classifies the worker result once.
func (b *seedingBridge) report(err error) {
	if !b.reported.CompareAndSwap(false, true) {
		return
	}
	var se *seeding.SeedingError
	var pe *supervisor.PanicError
	switch {
	case err == nil || errors.Is(err, context.Canceled):
		b.log.Info("seeding session ended")
	case errors.As(err, &se):
		b.log.Error("seedbox failed", logx.Err(err))
		b.record(storage.EventSeedingFailed, se.Op, err)
	case errors.As(err, &pe):
		b.log.Error("unexpected seedbox error", logx.Err(err), logx.Stack(pe.Stack))
		b.record(storage.EventSeedingFailed, "panic", err)
	default:
		b.log.Error("unexpected seedbox error", logx.Err(err), logx.Stack(string(debug.Stack())))
		b.record(storage.EventSeedingFailed, "unexpected", err)
	}
}
