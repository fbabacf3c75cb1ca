package config

// Config is the on-disk configuration of the supervisor.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// Interval fields additionally accept "HH:MM" and "@every <duration>".
type Config struct {
	Repo      RepoConfig      `json:"repo"`
	Intervals IntervalsConfig `json:"intervals"`
	Seeding   SeedingConfig   `json:"seeding"`
	Logging   LoggingConfig   `json:"logging"`
	Process   ProcessConfig   `json:"process"`
	Liveness  LivenessConfig  `json:"liveness"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Debug     DebugConfig     `json:"debug,omitempty"`
}

// RepoConfig locates the working copy the process runs from.
// URL is informational (logged at startup); Remote/Branch drive the sync.
type RepoConfig struct {
	Path   string `json:"path" validate:"required"`
	URL    string `json:"url,omitempty"`
	Remote string `json:"remote"`
	Branch string `json:"branch" validate:"required"`
}

// IntervalsConfig holds the three loop intervals.
//
// Defaults (when fields are omitted/empty):
//   - update_check: "5m"
//   - heartbeat: "60s"
//   - seeding_status: "30s"
type IntervalsConfig struct {
	UpdateCheck   string `json:"update_check"`
	Heartbeat     string `json:"heartbeat"`
	SeedingStatus string `json:"seeding_status"`
}

// SeedingConfig drives the distribution session.
//
// Example:
//
//	seeding:
//	  content_dir: /srv/mycelium/content
//	  tracker: udp://tracker.opentrackr.org:1337/announce
//	  port_min: 6881
//	  port_max: 6891
type SeedingConfig struct {
	ContentDir string `json:"content_dir" validate:"required"`
	Tracker    string `json:"tracker" validate:"required,url"`
	PortMin    int    `json:"port_min" validate:"min=1,max=65535"`
	PortMax    int    `json:"port_max" validate:"min=1,max=65535,gtefield=PortMin"`

	// PieceLength in bytes; 0 picks a size from the file length.
	PieceLength int64 `json:"piece_length,omitempty" validate:"min=0"`

	// Watch registers files added to content_dir after startup.
	Watch   bool   `json:"watch"`
	Creator string `json:"creator,omitempty"`
	NoDHT   bool   `json:"no_dht,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Journal LoggingJournal `json:"journal"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" validate:"min=0"`
	MaxBackups int    `json:"max_backups,omitempty" validate:"min=0"`
	MaxAgeDays int    `json:"max_age_days,omitempty" validate:"min=0"`
	Compress   bool   `json:"compress,omitempty"`
}

type LoggingJournal struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec" validate:"min=0"`
}

// ProcessConfig controls process-level behavior.
//
// RestartExitCode is the code used after a successful pull; the outer process
// manager must relaunch on it (systemd: RestartForceExitStatus=).
type ProcessConfig struct {
	RestartExitCode int    `json:"restart_exit_code" validate:"min=2,max=125"`
	LockFile        string `json:"lock_file"`
}

// LivenessConfig selects where heartbeat records go besides the log.
type LivenessConfig struct {
	SystemdWatchdog bool   `json:"systemd_watchdog"`
	PingURL         string `json:"ping_url,omitempty" validate:"omitempty,url"`
	PingTimeout     string `json:"ping_timeout,omitempty"`
	PingRetries     int    `json:"ping_retries,omitempty" validate:"min=0,max=10"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/mycelium.db" }
type StorageConfig struct {
	Driver             string `json:"driver" validate:"omitempty,oneof=none file sqlite sqlite3"`
	Path               string `json:"path"`
	BusyTimeout        string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	HeartbeatRetention int    `json:"heartbeat_retention,omitempty" validate:"min=0"`
}

// DebugConfig controls the optional metrics/pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`   // default: "127.0.0.1:6060"
	Prefix        string `json:"prefix,omitempty"` // default: "/debug/pprof/"
	Token         string `json:"token,omitempty"`  // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty" validate:"min=0"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty" validate:"min=0"`
}
