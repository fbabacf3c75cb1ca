package app

import (
	"fmt"
	"strings"
	"time"

	"mycelium/internal/config"
	"mycelium/internal/observability/debug"
	"mycelium/internal/runtime/lifecycle"
	"mycelium/internal/seeding"
	"mycelium/internal/storage"
	logx "mycelium/pkg/logx"
)

// Settings is the typed runtime form of Config.
type Settings struct {
	RepoPath string
	RepoURL  string
	Remote   string
	Branch   string

	UpdateInterval    time.Duration
	HeartbeatInterval time.Duration

	Session seeding.SessionOptions

	RestartExitCode int
	LockFile        string

	Liveness LivenessSettings

	Storage        storage.Config
	StorageEnabled bool

	Debug debug.Config
}

type LivenessSettings struct {
	SystemdWatchdog bool
	PingURL         string
	PingTimeout     time.Duration
	PingRetries     int
}

// SettingsFromConfig maps a validated config to runtime settings.
func SettingsFromConfig(cfg *Config) (Settings, error) {
	if cfg == nil {
		return Settings{}, fmt.Errorf("config is nil")
	}
	var (
		s   Settings
		err error
	)
	s.RepoPath = cfg.Repo.Path
	s.RepoURL = cfg.Repo.URL
	s.Remote = cfg.Repo.Remote
	s.Branch = cfg.Repo.Branch

	if s.UpdateInterval, err = config.ParseInterval("intervals.update_check", cfg.Intervals.UpdateCheck, 5*time.Minute); err != nil {
		return Settings{}, err
	}
	if s.HeartbeatInterval, err = config.ParseInterval("intervals.heartbeat", cfg.Intervals.Heartbeat, time.Minute); err != nil {
		return Settings{}, err
	}
	statusEvery, err := config.ParseInterval("intervals.seeding_status", cfg.Intervals.SeedingStatus, 30*time.Second)
	if err != nil {
		return Settings{}, err
	}

	s.Session = seeding.SessionOptions{
		ContentDir:     cfg.Seeding.ContentDir,
		Tracker:        cfg.Seeding.Tracker,
		PortMin:        cfg.Seeding.PortMin,
		PortMax:        cfg.Seeding.PortMax,
		StatusInterval: statusEvery,
		PieceLength:    cfg.Seeding.PieceLength,
		Creator:        cfg.Seeding.Creator,
		NoDHT:          cfg.Seeding.NoDHT,
		Watch:          cfg.Seeding.Watch,
	}

	s.RestartExitCode = cfg.Process.RestartExitCode
	if s.RestartExitCode == 0 {
		s.RestartExitCode = lifecycle.DefaultExitRestart
	}
	if s.RestartExitCode == lifecycle.ExitSuccess || s.RestartExitCode == lifecycle.ExitFailure {
		return Settings{}, fmt.Errorf("process.restart_exit_code must differ from %d and %d", lifecycle.ExitSuccess, lifecycle.ExitFailure)
	}
	s.LockFile = strings.TrimSpace(cfg.Process.LockFile)

	s.Liveness = LivenessSettings{
		SystemdWatchdog: cfg.Liveness.SystemdWatchdog,
		PingURL:         strings.TrimSpace(cfg.Liveness.PingURL),
		PingRetries:     cfg.Liveness.PingRetries,
	}
	if s.Liveness.PingTimeout, err = config.ParseDurationOrDefault("liveness.ping_timeout", cfg.Liveness.PingTimeout, 5*time.Second); err != nil {
		return Settings{}, err
	}

	if s.Storage, s.StorageEnabled, err = mapStorageConfig(cfg); err != nil {
		return Settings{}, err
	}
	if s.Debug, err = mapDebugConfig(cfg); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func mapStorageConfig(cfg *Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.TrimSpace(sc.Driver)
	if driver == "" || strings.EqualFold(driver, "none") {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	dl := strings.ToLower(strings.TrimSpace(driver))
	switch dl {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{
			Driver:             dl,
			Path:               path,
			BusyTimeout:        busy,
			HeartbeatRetention: sc.HeartbeatRetention,
		}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", driver)
	}
}

func mapDebugConfig(cfg *Config) (debug.Config, error) {
	d := cfg.Debug
	out := debug.Config{
		Enabled:              d.Enabled,
		Addr:                 strings.TrimSpace(d.Addr),
		Prefix:               d.Prefix,
		Token:                d.Token,
		AllowInsecure:        d.AllowInsecure,
		MutexProfileFraction: d.MutexProfileFraction,
		BlockProfileRate:     d.BlockProfileRate,
	}
	if out.Addr == "" {
		out.Addr = debug.DefaultAddr
	}
	var err error
	if out.ReadTimeout, err = config.ParseDurationOrDefault("debug.read_timeout", d.ReadTimeout, 10*time.Second); err != nil {
		return debug.Config{}, err
	}
	// profile/trace endpoints stream for up to 30s by default
	if out.WriteTimeout, err = config.ParseDurationOrDefault("debug.write_timeout", d.WriteTimeout, 65*time.Second); err != nil {
		return debug.Config{}, err
	}
	if out.IdleTimeout, err = config.ParseDurationOrDefault("debug.idle_timeout", d.IdleTimeout, time.Minute); err != nil {
		return debug.Config{}, err
	}
	return out, nil
}

// LogConfig maps the logging section to the logx service config.
func LogConfig(cfg *Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled:    l.File.Enabled,
			Path:       l.File.Path,
			MaxSizeMB:  l.File.MaxSizeMB,
			MaxBackups: l.File.MaxBackups,
			MaxAgeDays: l.File.MaxAgeDays,
			Compress:   l.File.Compress,
		},
		Journal: logx.JournalConfig{
			Enabled:    l.Journal.Enabled,
			MinLevel:   l.Journal.MinLevel,
			RatePerSec: l.Journal.RatePerSec,
		},
	}
}
