package config

import (
	"errors"
	"fmt"
	"strings"

	"notifnuke/internal/source"
	logx "notifnuke/pkg/logx"
)

// Validate checks the parts of a config that can be checked without side effects.
// It returns every problem found, joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if !logx.ValidLevel(cfg.Logging.Level) {
		add(fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	if cfg.Logging.File.MaxSizeMB < 0 || cfg.Logging.File.MaxBackups < 0 || cfg.Logging.File.MaxAgeDays < 0 {
		add(errors.New("logging.file: rotation limits must be >= 0"))
	}

	_, err := ParseDurationField("monitor.interval", cfg.Monitor.Interval)
	add(err)
	_, err = ParseDurationField("monitor.settle_delay", cfg.Monitor.SettleDelay)
	add(err)
	_, err = ParseDurationField("monitor.read_timeout", cfg.Monitor.ReadTimeout)
	add(err)
	if cfg.Monitor.ClearRatePerSec < 0 {
		add(errors.New("monitor.clear_rate_per_sec must be >= 0"))
	}

	if !source.ValidDriver(cfg.Source.Driver) {
		add(fmt.Errorf("source.driver: unknown driver %q", cfg.Source.Driver))
	}

	for _, w := range cfg.Activity.Watchers {
		if !knownWatcher(w) {
			add(fmt.Errorf("activity.watchers: unknown watcher %q", w))
		}
	}

	if strings.ContainsAny(cfg.LoginItem.Unit, "/\\") {
		add(fmt.Errorf("login_item.unit: %q must be a file name", cfg.LoginItem.Unit))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "file", "sqlite", "memory":
	default:
		add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	_, err = ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	add(err)

	_, err = ParseDurationField("status_file.flash", cfg.StatusFile.Flash)
	add(err)

	if cfg.Telegram.Enabled {
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			add(errors.New("telegram.token is required when telegram is enabled"))
		}
		if len(cfg.Telegram.OwnerUserIDs) == 0 {
			add(errors.New("telegram.owner_user_ids must not be empty"))
		}
	}
	_, err = ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	add(err)
	if cfg.Telegram.PushRatePerSec < 0 {
		add(errors.New("telegram.push_rate_per_sec must be >= 0"))
	}

	if cfg.AutoClear.Enabled && strings.TrimSpace(cfg.AutoClear.Schedule) == "" {
		add(errors.New("auto_clear.schedule is required when auto_clear is enabled"))
	}

	return errors.Join(errs...)
}

func knownWatcher(name string) bool {
	for _, k := range KnownWatchers {
		if strings.EqualFold(strings.TrimSpace(name), k) {
			return true
		}
	}
	return false
}
