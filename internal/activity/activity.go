// Package activity turns host events (suspend, screen lock, user signals)
// into became-active and resigned-active notifications for the gate.
package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	logx "notifnuke/pkg/logx"
)

var ErrUnsupported = errors.New("activity: watcher not supported on this platform")

type Signal int

const (
	BecameActive Signal = iota + 1
	ResignedActive
)

func (s Signal) String() string {
	switch s {
	case BecameActive:
		return "became_active"
	case ResignedActive:
		return "resigned_active"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Watcher blocks until ctx is done or its event source breaks, calling emit
// for every transition. A returned error means the watcher should be restarted.
type Watcher interface {
	Name() string
	Run(ctx context.Context, emit func(Signal)) error
}

// Sink receives activity transitions. *gate.Gate satisfies it.
type Sink interface {
	BecameActive(ctx context.Context) error
	ResignedActive(ctx context.Context) error
}

// Forward returns an emit func that drives sink. Consecutive duplicates from
// different watchers are harmless: the gate ignores transitions that do not apply.
func Forward(ctx context.Context, sink Sink, log logx.Logger) func(Signal) {
	return func(s Signal) {
		var err error
		switch s {
		case BecameActive:
			err = sink.BecameActive(ctx)
		case ResignedActive:
			err = sink.ResignedActive(ctx)
		}
		if err != nil && ctx.Err() == nil {
			log.Warn("activity transition failed", logx.String("signal", s.String()), logx.Err(err))
		}
	}
}

// New builds the watcher called name.
func New(name string, log logx.Logger) (Watcher, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("watcher", name))
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "login1":
		return newLogin1(log), nil
	case "screensaver":
		return newScreenSaver(log), nil
	case "signals":
		return newSignals(log), nil
	default:
		return nil, fmt.Errorf("unknown activity watcher: %s", name)
	}
}
