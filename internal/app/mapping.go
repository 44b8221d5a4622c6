package app

import (
	"os"
	"strings"

	"notifnuke/internal/autoclear"
	"notifnuke/internal/config"
	"notifnuke/internal/loginitem"
	"notifnuke/internal/monitor"
	"notifnuke/internal/source"
	"notifnuke/internal/storage"
	"notifnuke/internal/surface/statusfile"
	logx "notifnuke/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
			Compress:   cfg.Logging.File.Compress,
		},
	}
}

func mapMonitorConfig(cfg *config.Config) monitor.Config {
	interval, settle, readTimeout := cfg.Monitor.Timing()
	return monitor.Config{
		Interval:        interval,
		SettleDelay:     settle,
		ReadTimeout:     readTimeout,
		ClearRatePerSec: cfg.Monitor.ClearRatePerSec,
		ClearBurst:      cfg.Monitor.ClearBurst,
	}
}

func mapSourceConfig(cfg *config.Config) source.Config {
	return source.Config{
		Driver:         cfg.Source.Driver,
		IncludeHistory: cfg.Source.History(),
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.TrimSpace(cfg.Storage.Driver),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: busy,
	}, nil
}

// mapStatusFileConfig returns an empty path when the status file is disabled.
func mapStatusFileConfig(cfg *config.Config) statusfile.Config {
	sc := statusfile.Config{Flash: cfg.StatusFile.FlashDuration()}
	if cfg.StatusFile.Enabled {
		sc.Path = cfg.StatusFile.Path
	}
	return sc
}

func mapAutoClearConfig(cfg *config.Config) autoclear.Config {
	return autoclear.Config{
		Enabled:  cfg.AutoClear.Enabled,
		Schedule: cfg.AutoClear.Schedule,
		Timezone: cfg.AutoClear.Timezone,
	}
}

// mapUnitSpec fills the exec path from the running binary when it is not configured.
func mapUnitSpec(cfg *config.Config) loginitem.UnitSpec {
	exec := strings.TrimSpace(cfg.LoginItem.Exec)
	if exec == "" {
		if p, err := os.Executable(); err == nil {
			exec = p
		}
	}
	return loginitem.UnitSpec{
		Name:        cfg.LoginItem.Unit,
		Description: cfg.LoginItem.Description,
		Exec:        exec,
		Args:        cfg.LoginItem.Args,
	}
}

// validate runs the checks config.Validate cannot do on its own (cron
// expressions). The manager runs it before committing a reload.
func validate(cfg *config.Config) error {
	return autoclear.Validate(mapAutoClearConfig(cfg))
}
