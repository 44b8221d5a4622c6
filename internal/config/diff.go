package config

import (
	"reflect"

	logx "notifnuke/pkg/logx"
)

// SummarizeChange returns the names of the sections that differ and safe
// structured attrs describing them. Secrets such as the bot token are never logged.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Monitor, newCfg.Monitor) {
		changed = append(changed, "monitor")
		interval, settle, _ := newCfg.Monitor.Timing()
		attrs = append(attrs,
			logx.Duration("monitor.interval", interval),
			logx.Duration("monitor.settle_delay", settle),
		)
	}
	if !reflect.DeepEqual(oldCfg.Source, newCfg.Source) {
		changed = append(changed, "source")
		attrs = append(attrs, logx.String("source.driver", newCfg.Source.Driver))
	}
	if !reflect.DeepEqual(oldCfg.Activity, newCfg.Activity) {
		changed = append(changed, "activity")
	}
	if !reflect.DeepEqual(oldCfg.LoginItem, newCfg.LoginItem) {
		changed = append(changed, "login_item")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
	}
	if !reflect.DeepEqual(oldCfg.StatusFile, newCfg.StatusFile) {
		changed = append(changed, "status_file")
		attrs = append(attrs, logx.Bool("status_file.enabled", newCfg.StatusFile.Enabled))
	}
	if !reflect.DeepEqual(oldCfg.Telegram, newCfg.Telegram) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.enabled", newCfg.Telegram.Enabled),
			logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)),
			logx.Bool("telegram.token_set", newCfg.Telegram.Token != ""),
		)
	}
	if !reflect.DeepEqual(oldCfg.AutoClear, newCfg.AutoClear) {
		changed = append(changed, "auto_clear")
		attrs = append(attrs,
			logx.Bool("auto_clear.enabled", newCfg.AutoClear.Enabled),
			logx.String("auto_clear.schedule", newCfg.AutoClear.Schedule),
		)
	}
	return changed, attrs
}

// RestartRequired lists changed sections that only take effect after a restart.
func RestartRequired(changed []string) []string {
	var out []string
	for _, c := range changed {
		switch c {
		case "source", "activity", "storage", "telegram", "login_item":
			out = append(out, c)
		}
	}
	return out
}
