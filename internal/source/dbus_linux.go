//go:build linux

package source

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	logx "notifnuke/pkg/logx"
)

const (
	dunstDest  = "org.freedesktop.Notifications"
	dunstPath  = "/org/freedesktop/Notifications"
	dunstIface = "org.dunstproject.cmd0"

	swayncDest  = "org.erikreider.swaync.cc"
	swayncPath  = "/org/erikreider/swaync/cc"
	swayncIface = "org.erikreider.swaync.cc"
)

// sessionObject returns a proxy on the shared session bus connection.
// dbus.SessionBus reconnects by itself if the previous connection dropped.
func sessionObject(dest string, path dbus.ObjectPath) (dbus.BusObject, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	return conn.Object(dest, path), nil
}

func propertyCount(ctx context.Context, obj dbus.BusObject, iface, prop string) (int, error) {
	var v dbus.Variant
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, iface, prop).Store(&v); err != nil {
		return 0, fmt.Errorf("%s.%s: %w", iface, prop, err)
	}
	n, err := toCount(v.Value())
	if err != nil {
		return 0, fmt.Errorf("%s.%s: %w", iface, prop, err)
	}
	return n, nil
}

// dunst exposes its queues as properties on org.dunstproject.cmd0.
type dunst struct {
	props []string
	log   logx.Logger
}

func newDunst(cfg Config, log logx.Logger) (*dunst, error) {
	props := []string{"displayedLength", "waitingLength"}
	if cfg.IncludeHistory {
		props = append(props, "historyLength")
	}
	return &dunst{props: props, log: log.With(logx.String("source", DriverDunst))}, nil
}

func (d *dunst) DeliveredCount(ctx context.Context) (int, error) {
	obj, err := sessionObject(dunstDest, dunstPath)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range d.props {
		n, err := propertyCount(ctx, obj, dunstIface, p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// RemoveAllDelivered closes everything on screen (which moves it to history)
// and then drops the history.
func (d *dunst) RemoveAllDelivered(ctx context.Context) error {
	obj, err := sessionObject(dunstDest, dunstPath)
	if err != nil {
		return err
	}
	if err := obj.CallWithContext(ctx, dunstIface+".NotificationCloseAll", 0).Err; err != nil {
		return fmt.Errorf("dunst close all: %w", err)
	}
	if err := obj.CallWithContext(ctx, dunstIface+".NotificationClearHistory", 0).Err; err != nil {
		return fmt.Errorf("dunst clear history: %w", err)
	}
	d.log.Debug("dunst queues cleared")
	return nil
}

type swayNC struct {
	log logx.Logger
}

func newSwayNC(_ Config, log logx.Logger) (*swayNC, error) {
	return &swayNC{log: log.With(logx.String("source", DriverSwayNC))}, nil
}

func (s *swayNC) DeliveredCount(ctx context.Context) (int, error) {
	obj, err := sessionObject(swayncDest, swayncPath)
	if err != nil {
		return 0, err
	}
	var n uint32
	if err := obj.CallWithContext(ctx, swayncIface+".NotificationCount", 0).Store(&n); err != nil {
		return 0, fmt.Errorf("swaync notification count: %w", err)
	}
	return int(n), nil
}

func (s *swayNC) RemoveAllDelivered(ctx context.Context) error {
	obj, err := sessionObject(swayncDest, swayncPath)
	if err != nil {
		return err
	}
	if err := obj.CallWithContext(ctx, swayncIface+".ClearAll", 0).Err; err != nil {
		return fmt.Errorf("swaync clear all: %w", err)
	}
	return nil
}
