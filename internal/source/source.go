// Package source implements notification centers the monitor can poll.
package source

import (
	"errors"
	"fmt"
	"strings"

	"notifnuke/internal/monitor"
	logx "notifnuke/pkg/logx"
)

var ErrUnsupported = errors.New("source: driver not supported on this platform")

const (
	DriverDunst  = "dunst"
	DriverSwayNC = "swaync"
	DriverMemory = "memory"
)

type Config struct {
	Driver string
	// IncludeHistory counts notifications kept in the daemon's history,
	// not only those on screen or waiting (dunst only).
	IncludeHistory bool
	// Initial seeds the memory driver.
	Initial int
}

// Open returns the configured source. An empty driver means dunst.
func Open(cfg Config, log logx.Logger) (monitor.Source, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver {
	case "", DriverDunst:
		return newDunst(cfg, log)
	case DriverSwayNC:
		return newSwayNC(cfg, log)
	case DriverMemory:
		return NewMemory(cfg.Initial), nil
	default:
		return nil, fmt.Errorf("unknown source driver: %s", cfg.Driver)
	}
}

// ValidDriver reports whether Open understands driver.
func ValidDriver(driver string) bool {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverDunst, DriverSwayNC, DriverMemory:
		return true
	}
	return false
}
