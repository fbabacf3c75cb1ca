package liveness

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notify sends an sd_notify state. It reports false when no supervisor
// socket is configured (not running under systemd).
type Notify func(state string) (bool, error)

func SdNotify(state string) (bool, error) { return daemon.SdNotify(false, state) }

// WatchdogSink pings the systemd watchdog on every heartbeat.
type WatchdogSink struct{ Notify Notify }

func NewWatchdogSink() WatchdogSink { return WatchdogSink{Notify: SdNotify} }

func (WatchdogSink) Name() string { return "systemd" }

func (s WatchdogSink) Emit(_ context.Context, _ Record) error {
	n := s.Notify
	if n == nil {
		n = SdNotify
	}
	_, err := n(daemon.SdNotifyWatchdog)
	return err
}

// WatchdogInterval returns the unit's WatchdogSec, or 0 when the watchdog
// is not enabled for this process.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0
	}
	return d
}
