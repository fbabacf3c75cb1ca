package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const minimalYAML = `
repo:
  path: /srv/mycelium
  branch: main
seeding:
  content_dir: /srv/mycelium/content
  tracker: udp://tracker.example.org:1337/announce
`

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	m := NewConfigManager(writeFile(t, "config.yaml", minimalYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Format() != "yaml" {
		t.Fatalf("format = %q", m.Format())
	}
	if cfg.Repo.Remote != "origin" {
		t.Fatalf("remote = %q", cfg.Repo.Remote)
	}
	if cfg.Intervals.UpdateCheck != DefaultUpdateCheck || cfg.Intervals.Heartbeat != DefaultHeartbeat {
		t.Fatalf("intervals = %+v", cfg.Intervals)
	}
	if cfg.Seeding.PortMin != DefaultPortMin || cfg.Seeding.PortMax != DefaultPortMax {
		t.Fatalf("ports = %d-%d", cfg.Seeding.PortMin, cfg.Seeding.PortMax)
	}
	if cfg.Process.RestartExitCode != DefaultRestartExitCode {
		t.Fatalf("restart code = %d", cfg.Process.RestartExitCode)
	}
	if m.Get() != cfg {
		t.Fatal("Load should commit the config")
	}
}

func TestLoadTOML(t *testing.T) {
	body := `
[repo]
path = "/srv/mycelium"
branch = "stable"

[intervals]
heartbeat = "@every 15s"

[seeding]
content_dir = "/srv/content"
tracker = "http://tracker.example.org/announce"
port_min = 7000
`
	m := NewConfigManager(writeFile(t, "config.toml", body))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Repo.Branch != "stable" {
		t.Fatalf("branch = %q", cfg.Repo.Branch)
	}
	if cfg.Seeding.PortMin != 7000 || cfg.Seeding.PortMax != 7000 {
		t.Fatalf("ports = %d-%d", cfg.Seeding.PortMin, cfg.Seeding.PortMax)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := NewConfigManager(writeFile(t, "config.json", `{"repo":{"path":".","branch":"main"},"bogus":1}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestValidateReportsJSONPaths(t *testing.T) {
	m := NewConfigManager(writeFile(t, "config.yaml", `
repo:
  path: .
seeding:
  tracker: not a url
  port_min: 7000
  port_max: 6000
`))
	_, err := m.Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"seeding.content_dir: required", "seeding.tracker", "seeding.port_max"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
}

func TestValidateSemanticChecks(t *testing.T) {
	base := func() *Config {
		c := &Config{
			Repo:    RepoConfig{Path: ".", Branch: "main"},
			Seeding: SeedingConfig{ContentDir: "/c", Tracker: "udp://t.example:1/announce"},
		}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad interval", func(c *Config) { c.Intervals.Heartbeat = "soon" }, "intervals.heartbeat"},
		{"calendar schedule", func(c *Config) { c.Intervals.UpdateCheck = "@hourly" }, "calendar schedule"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"storage path", func(c *Config) { c.Storage = &StorageConfig{Driver: "sqlite"} }, "storage.path"},
		{"debug exposed", func(c *Config) {
			c.Debug = DebugConfig{Enabled: true, Addr: "0.0.0.0:6060"}
		}, "debug.addr"},
		{"restart code", func(c *Config) { c.Process.RestartExitCode = 1 }, "process.restart_exit_code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := Validate(c)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate err = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if err := Validate(base()); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}
}

func TestParseInterval(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", time.Minute, false},
		{"55m", 55 * time.Minute, false},
		{"00:50", 50 * time.Minute, false},
		{"02:30", 2*time.Hour + 30*time.Minute, false},
		{"@every 15s", 15 * time.Second, false},
		{"@every 1m30s", 90 * time.Second, false},
		{"@every 500ms", 0, true},
		{"@every 1500ms", 0, true},
		{"500ms", 500 * time.Millisecond, false},
		{"every:00:05", 5 * time.Minute, false},
		{"interval:2h", 2 * time.Hour, false},
		{"*/5 * * * *", 0, true},
		{"@daily", 0, true},
		{"00:75", 0, true},
		{"0s", 0, true},
		{"-1m", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseInterval("x", tt.in, time.Minute)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseInterval(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("ParseInterval(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsLoopbackHost(t *testing.T) {
	t.Parallel()
	for host, want := range map[string]bool{
		"127.0.0.1": true,
		"localhost": true,
		"[::1]":     true,
		"":          false,
		"0.0.0.0":   false,
		"10.0.0.5":  false,
	} {
		if got := IsLoopbackHost(host); got != want {
			t.Fatalf("IsLoopbackHost(%q) = %v", host, got)
		}
	}
}
