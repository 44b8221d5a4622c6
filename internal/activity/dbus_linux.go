//go:build linux

package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-systemd/v22/login1"
	"github.com/godbus/dbus/v5"

	logx "notifnuke/pkg/logx"
)

var errSignalsClosed = errors.New("signal channel closed")

type login1Watcher struct{ log logx.Logger }

func newLogin1(log logx.Logger) Watcher { return &login1Watcher{log: log} }

func (w *login1Watcher) Name() string { return "login1" }

func (w *login1Watcher) Run(ctx context.Context, emit func(Signal)) error {
	conn, err := login1.New()
	if err != nil {
		return fmt.Errorf("connecting to logind: %w", err)
	}
	defer conn.Close()

	ch := conn.Subscribe("PrepareForSleep")
	w.log.Debug("watching logind sleep")
	return pump(ctx, ch, decodeSleep, emit, w.log)
}

type screenSaverWatcher struct{ log logx.Logger }

func newScreenSaver(log logx.Logger) Watcher { return &screenSaverWatcher{log: log} }

func (w *screenSaverWatcher) Name() string { return "screensaver" }

func (w *screenSaverWatcher) Run(ctx context.Context, emit func(Signal)) error {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("connecting to session bus: %w", err)
	}
	defer conn.Close()

	if err := conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface(screenSaverIface),
		dbus.WithMatchMember("ActiveChanged"),
	); err != nil {
		return fmt.Errorf("subscribing to screensaver: %w", err)
	}
	ch := make(chan *dbus.Signal, 8)
	conn.Signal(ch)
	defer conn.RemoveSignal(ch)

	w.log.Debug("watching screensaver")
	return pump(ctx, ch, decodeScreenSaver, emit, w.log)
}

func pump(ctx context.Context, ch <-chan *dbus.Signal, decode func(*dbus.Signal) (Signal, bool), emit func(Signal), log logx.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return errSignalsClosed
			}
			if s, ok := decode(sig); ok {
				log.Debug("activity signal", logx.String("signal", s.String()))
				emit(s)
			}
		}
	}
}
