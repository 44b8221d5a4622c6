package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const AppName = "notifnuke"

const (
	DefaultInterval    = 5 * time.Second
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultReadTimeout = 3 * time.Second
	DefaultFlash       = time.Second
	DefaultPollTimeout = 10 * time.Second
	DefaultUnit        = AppName + ".service"
)

// Watcher names understood by the activity section.
var KnownWatchers = []string{"login1", "screensaver", "signals"}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File.Enabled && strings.TrimSpace(c.Logging.File.Path) == "" {
		c.Logging.File.Path = filepath.Join(StateDir(), AppName+".log")
	}
	if strings.TrimSpace(c.Source.Driver) == "" {
		c.Source.Driver = "dunst"
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "file"
	}
	if strings.TrimSpace(c.Storage.Path) == "" && c.Storage.Driver != "memory" {
		// file driver paths are a prefix: <prefix>.settings.json, <prefix>.audit.jsonl
		p := filepath.Join(StateDir(), AppName)
		if c.Storage.Driver == "sqlite" {
			p += ".db"
		}
		c.Storage.Path = p
	}
	if c.StatusFile.Enabled && strings.TrimSpace(c.StatusFile.Path) == "" {
		c.StatusFile.Path = filepath.Join(RuntimeDir(), "status.json")
	}
	if strings.TrimSpace(c.LoginItem.Unit) == "" {
		c.LoginItem.Unit = DefaultUnit
	}
	if strings.TrimSpace(c.LoginItem.Description) == "" {
		c.LoginItem.Description = "Delivered notification counter"
	}
	if c.LoginItem.Args == nil {
		c.LoginItem.Args = []string{"run"}
	}
	if c.Monitor.ClearBurst <= 0 {
		c.Monitor.ClearBurst = 1
	}
}

func (m MonitorConfig) AutostartEnabled() bool { return m.Autostart == nil || *m.Autostart }

// Timing returns interval, settle delay and read timeout with defaults applied.
func (m MonitorConfig) Timing() (interval, settle, readTimeout time.Duration) {
	return mustDuration(m.Interval, DefaultInterval),
		mustDuration(m.SettleDelay, DefaultSettleDelay),
		mustDuration(m.ReadTimeout, DefaultReadTimeout)
}

func (s SourceConfig) History() bool { return s.IncludeHistory == nil || *s.IncludeHistory }

// Enabled reports whether the named watcher should run.
func (a ActivityConfig) Enabled(name string) bool {
	if a.Watchers == nil {
		return true
	}
	for _, w := range a.Watchers {
		if strings.EqualFold(strings.TrimSpace(w), name) {
			return true
		}
	}
	return false
}

func (s StatusFileConfig) FlashDuration() time.Duration { return mustDuration(s.Flash, DefaultFlash) }

func (t TelegramConfig) PollTimeoutDuration() time.Duration {
	return mustDuration(t.PollTimeout, DefaultPollTimeout)
}

// DefaultPath is where the CLI looks for a config file when --config is not given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppName, "config.yaml")
}

// StateDir follows XDG_STATE_HOME.
func StateDir() string {
	if d := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); d != "" {
		return filepath.Join(d, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}

// RuntimeDir follows XDG_RUNTIME_DIR.
func RuntimeDir() string {
	if d := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); d != "" {
		return filepath.Join(d, AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}
