package config

// Config is the on-disk configuration. Every section may be omitted.
//
// All durations are Go duration strings (e.g. "500ms", "5s", "1m").
type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Monitor    MonitorConfig    `json:"monitor"`
	Source     SourceConfig     `json:"source"`
	Activity   ActivityConfig   `json:"activity"`
	LoginItem  LoginItemConfig  `json:"login_item"`
	Storage    StorageConfig    `json:"storage"`
	StatusFile StatusFileConfig `json:"status_file"`
	Telegram   TelegramConfig   `json:"telegram"`
	AutoClear  AutoClearConfig  `json:"auto_clear"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

// LoggingFile is the rotating JSON sink. Zero sizes keep lumberjack defaults.
type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty"`
}

// MonitorConfig controls polling and clear-all.
//
// Defaults (when fields are omitted/zero):
//   - autostart: true
//   - interval: "5s"
//   - settle_delay: "500ms"
//   - read_timeout: "3s"
//   - clear_rate_per_sec: 0 (unlimited)
//   - clear_burst: 1
type MonitorConfig struct {
	// Autostart is a pointer so an explicit false can be told apart from omitted.
	Autostart       *bool   `json:"autostart,omitempty"`
	Interval        string  `json:"interval,omitempty"`
	SettleDelay     string  `json:"settle_delay,omitempty"`
	ReadTimeout     string  `json:"read_timeout,omitempty"`
	ClearRatePerSec float64 `json:"clear_rate_per_sec,omitempty"`
	ClearBurst      int     `json:"clear_burst,omitempty"`
}

// SourceConfig selects the notification center.
//
//	"source": { "driver": "dunst", "include_history": false }
type SourceConfig struct {
	Driver         string `json:"driver"`
	IncludeHistory *bool  `json:"include_history,omitempty"`
}

// ActivityConfig lists the host activity watchers that pause and resume monitoring.
// Known names: "login1", "screensaver", "signals". Omitted means all of them.
type ActivityConfig struct {
	Watchers []string `json:"watchers,omitempty"`
}

// LoginItemConfig describes the systemd user unit used for launch at login.
type LoginItemConfig struct {
	Unit        string   `json:"unit,omitempty"`
	Description string   `json:"description,omitempty"`
	Exec        string   `json:"exec,omitempty"` // default: this executable
	Args        []string `json:"args,omitempty"` // default: ["run"]
}

// StorageConfig controls persistence of settings and the audit trail.
//
//	"storage": { "driver": "sqlite", "path": "~/.local/state/notifnuke/notifnuke.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
}

// StatusFileConfig controls the status bar file.
type StatusFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	// Flash is how long "Cleared!" stays up after a clear-all. Default "1s".
	Flash string `json:"flash,omitempty"`
}

type TelegramConfig struct {
	Enabled      bool    `json:"enabled"`
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// NotifyChatID receives count changes. 0 disables pushes.
	NotifyChatID   int64   `json:"notify_chat_id,omitempty"`
	PollTimeout    string  `json:"poll_timeout,omitempty"`
	PushRatePerSec float64 `json:"push_rate_per_sec,omitempty"`
}

// AutoClearConfig schedules a periodic clear-all.
//
//	"auto_clear": { "enabled": true, "schedule": "0 9 * * 1-5", "timezone": "Europe/Berlin" }
type AutoClearConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
	Timezone string `json:"timezone,omitempty"`
}
