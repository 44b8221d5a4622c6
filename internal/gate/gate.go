// Package gate pauses the monitor while the host session is in the background
// and resumes it when the session comes back, without ever starting monitoring
// the user did not ask for.
package gate

import (
	"context"
	"sync"

	"notifnuke/internal/eventbus"
	logx "notifnuke/pkg/logx"
)

// Mode records why the monitor is (not) running.
type Mode int

// Causes reported with each mode change.
const (
	CauseUser     = "user"
	CauseActivity = "activity"
)

const (
	// ModeUserStopped covers both "never started" and "stopped on request".
	ModeUserStopped Mode = iota
	ModeRunningActive
	ModePausedInBackground
)

func (m Mode) String() string {
	switch m {
	case ModeRunningActive:
		return "running"
	case ModePausedInBackground:
		return "paused"
	default:
		return "stopped"
	}
}

// Controller is the part of the monitor the gate drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Gate struct {
	mu         sync.Mutex
	mon        Controller
	mode       Mode
	foreground bool

	log logx.Logger
	bus eventbus.Bus
}

func New(mon Controller, log logx.Logger, bus eventbus.Bus) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gate{mon: mon, mode: ModeUserStopped, foreground: true, log: log, bus: bus}
}

func (g *Gate) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// UserStart opts in to monitoring. In the background it only records the
// intent; the next BecameActive starts the monitor.
func (g *Gate) UserStart(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.mode == ModeRunningActive:
		return nil
	case !g.foreground:
		g.setMode(ModePausedInBackground, CauseUser)
		return nil
	}
	if err := g.mon.Start(ctx); err != nil {
		return err
	}
	g.setMode(ModeRunningActive, CauseUser)
	return nil
}

func (g *Gate) UserStop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == ModeRunningActive {
		if err := g.mon.Stop(ctx); err != nil {
			return err
		}
	}
	g.setMode(ModeUserStopped, CauseUser)
	return nil
}

// ResignedActive pauses a running monitor and remembers to resume it.
func (g *Gate) ResignedActive(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.foreground = false
	if g.mode != ModeRunningActive {
		return nil
	}
	if err := g.mon.Stop(ctx); err != nil {
		return err
	}
	g.setMode(ModePausedInBackground, CauseActivity)
	return nil
}

// BecameActive resumes monitoring only if it was paused by backgrounding.
func (g *Gate) BecameActive(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.foreground = true
	if g.mode != ModePausedInBackground {
		return nil
	}
	if err := g.mon.Start(ctx); err != nil {
		return err
	}
	g.setMode(ModeRunningActive, CauseActivity)
	return nil
}

func (g *Gate) setMode(m Mode, cause string) {
	if g.mode == m {
		return
	}
	g.log.Info("gate mode changed", logx.String("from", g.mode.String()), logx.String("to", m.String()), logx.String("cause", cause))
	eventbus.Publish(g.bus, eventbus.GateMode, eventbus.GateChange{From: g.mode.String(), To: m.String(), Cause: cause})
	g.mode = m
}
