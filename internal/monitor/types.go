package monitor

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRateLimited   = errors.New("monitor: clear-all rate limited")
	ErrNegativeCount = errors.New("monitor: source reported a negative count")
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultReadTimeout = 3 * time.Second
)

// Source is the OS notification center the monitor consumes.
// Both calls may be slow or fail; a failure means "no change this tick".
type Source interface {
	DeliveredCount(ctx context.Context) (int, error)
	RemoveAllDelivered(ctx context.Context) error
}

// Config controls poll timing. Zero fields take the defaults above.
//
// ClearRatePerSec <= 0 disables clear-all rate limiting.
type Config struct {
	Interval        time.Duration
	SettleDelay     time.Duration
	ReadTimeout     time.Duration
	ClearRatePerSec float64
	ClearBurst      int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.ClearBurst <= 0 {
		c.ClearBurst = 1
	}
	return c
}

type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Snapshot is a point-in-time copy of the monitor state, safe to read from any goroutine.
type Snapshot struct {
	State     State
	Count     int
	UpdatedAt time.Time // last successful read; zero before the first one
}

func (s Snapshot) Active() bool { return s.State == StateRunning }

// reason tags why a read was issued.
type reason string

const (
	reasonStart  reason = "start"
	reasonTick   reason = "tick"
	reasonSettle reason = "settle"
)
