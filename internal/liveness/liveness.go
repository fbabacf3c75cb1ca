// Package liveness delivers heartbeat records to observers: the log, the
// optional store, the systemd watchdog and an HTTP ping endpoint.
//
// Sinks are observational. Delivery failures are logged by Fanout and never
// stop the heartbeat loop.
package liveness

import (
	"context"
	"time"

	"mycelium/pkg/logx"
)

// Record is one heartbeat.
type Record struct {
	At     time.Time     `json:"at"`
	RunID  string        `json:"run_id"`
	Seq    uint64        `json:"seq"`
	PID    int           `json:"pid"`
	Uptime time.Duration `json:"uptime_ns"`
}

type Sink interface {
	Name() string
	Emit(ctx context.Context, r Record) error
}

// Fanout emits to every sink in order.
type Fanout struct {
	sinks []Sink
	log   logx.Logger
	// OnError is called for every failed delivery (metrics hook).
	OnError func(sink string, err error)
}

func NewFanout(log logx.Logger, sinks ...Sink) *Fanout {
	f := &Fanout{log: log.With(logx.String("comp", "liveness"))}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Sinks() []string {
	out := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, s.Name())
	}
	return out
}

// Emit returns the number of failed deliveries.
func (f *Fanout) Emit(ctx context.Context, r Record) int {
	failed := 0
	for _, s := range f.sinks {
		if err := s.Emit(ctx, r); err != nil {
			if ctx.Err() != nil {
				return failed
			}
			failed++
			f.log.Warn("heartbeat sink failed", logx.String("sink", s.Name()), logx.Uint64("seq", r.Seq), logx.Err(err))
			if f.OnError != nil {
				f.OnError(s.Name(), err)
			}
		}
	}
	return failed
}

// LogSink writes the classic "supervisor running" line.
type LogSink struct{ Log logx.Logger }

func (LogSink) Name() string { return "log" }

func (s LogSink) Emit(_ context.Context, r Record) error {
	s.Log.Info("supervisor running",
		logx.String("comp", "heartbeat"),
		logx.Uint64("seq", r.Seq),
		logx.Duration("uptime", r.Uptime.Truncate(time.Second)),
	)
	return nil
}
