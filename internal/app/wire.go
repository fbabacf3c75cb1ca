package app

import (
	"fmt"

	"mycelium/internal/liveness"
	"mycelium/internal/observability/metrics"
	"mycelium/internal/seeding"
	"mycelium/internal/sourcesync"
	"mycelium/internal/storage"
	logx "mycelium/pkg/logx"
)

// Build wires the production collaborators for cfg: git for source sync,
// the torrent engine, the optional store and every configured liveness sink.
// exit is called with the restart code after an update is pulled.
func Build(cfg *Config, log logx.Logger, exit ExitFunc) (*App, error) {
	set, err := SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	// metrics are only reachable through the debug server
	var met *metrics.Metrics
	if set.Debug.Enabled {
		met = metrics.New()
	}

	var store storage.Store
	if set.StorageEnabled {
		store, err = storage.Open(set.Storage, log)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
	}

	src := sourcesync.NewGit(sourcesync.Options{
		RepoPath: set.RepoPath,
		Remote:   set.Remote,
		Branch:   set.Branch,
	}, log)

	eng := seeding.NewEngine(log,
		seeding.WithStatusHook(met.ObserveSeeding),
	)

	var sinks []liveness.Sink
	if store != nil {
		sinks = append(sinks, liveness.StoreSink{Store: store})
	}
	if set.Liveness.SystemdWatchdog {
		if iv := liveness.WatchdogInterval(); iv > 0 && iv < 2*set.HeartbeatInterval {
			log.Warn("heartbeat interval is too long for the systemd watchdog",
				logx.Duration("heartbeat_interval", set.HeartbeatInterval),
				logx.Duration("watchdog_interval", iv),
			)
		}
		sinks = append(sinks, liveness.NewWatchdogSink())
	}
	if set.Liveness.PingURL != "" {
		sinks = append(sinks, liveness.NewPingSink(set.Liveness.PingURL, set.Liveness.PingTimeout, set.Liveness.PingRetries))
	}

	a, err := NewApp(set, Deps{
		Log:     log,
		Source:  src,
		Engine:  eng,
		Store:   store,
		Metrics: met,
		Sinks:   sinks,
		Exit:    exit,
		Signals: true,
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return a, nil
}
