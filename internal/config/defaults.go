package config

import "strings"

const (
	DefaultUpdateCheck   = "5m"
	DefaultHeartbeat     = "60s"
	DefaultSeedingStatus = "30s"

	DefaultPortMin = 6881
	DefaultPortMax = 6891

	DefaultCreator         = "Mycelium Autonomous Seedbox"
	DefaultRestartExitCode = 3
	DefaultLockFile        = "./mycelium.lock"
)

// ApplyDefaults fills omitted fields. It never overrides explicit values.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Repo.Path) == "" {
		c.Repo.Path = "."
	}
	if strings.TrimSpace(c.Repo.Remote) == "" {
		c.Repo.Remote = "origin"
	}
	if strings.TrimSpace(c.Repo.Branch) == "" {
		c.Repo.Branch = "main"
	}

	if strings.TrimSpace(c.Intervals.UpdateCheck) == "" {
		c.Intervals.UpdateCheck = DefaultUpdateCheck
	}
	if strings.TrimSpace(c.Intervals.Heartbeat) == "" {
		c.Intervals.Heartbeat = DefaultHeartbeat
	}
	if strings.TrimSpace(c.Intervals.SeedingStatus) == "" {
		c.Intervals.SeedingStatus = DefaultSeedingStatus
	}

	if c.Seeding.PortMin == 0 && c.Seeding.PortMax == 0 {
		c.Seeding.PortMin = DefaultPortMin
		c.Seeding.PortMax = DefaultPortMax
	} else if c.Seeding.PortMax == 0 {
		c.Seeding.PortMax = c.Seeding.PortMin
	}
	if strings.TrimSpace(c.Seeding.Creator) == "" {
		c.Seeding.Creator = DefaultCreator
	}

	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File.Enabled && c.Logging.File.MaxSizeMB == 0 {
		c.Logging.File.MaxSizeMB = 50
	}
	if c.Logging.Journal.RatePerSec == 0 {
		c.Logging.Journal.RatePerSec = 5
	}

	if c.Process.RestartExitCode == 0 {
		c.Process.RestartExitCode = DefaultRestartExitCode
	}
	if strings.TrimSpace(c.Process.LockFile) == "" {
		c.Process.LockFile = DefaultLockFile
	}

	if c.Liveness.PingURL != "" && c.Liveness.PingTimeout == "" {
		c.Liveness.PingTimeout = "5s"
	}
}
