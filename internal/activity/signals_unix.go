//go:build unix

package activity

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logx "notifnuke/pkg/logx"
)

// signalsWatcher lets scripts pause (SIGUSR1) and resume (SIGUSR2) monitoring.
type signalsWatcher struct{ log logx.Logger }

func newSignals(log logx.Logger) Watcher { return &signalsWatcher{log: log} }

func (w *signalsWatcher) Name() string { return "signals" }

func (w *signalsWatcher) Run(ctx context.Context, emit func(Signal)) error {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-ch:
			switch s {
			case syscall.SIGUSR1:
				emit(ResignedActive)
			case syscall.SIGUSR2:
				emit(BecameActive)
			}
			w.log.Debug("activity signal", logx.String("os_signal", s.String()))
		}
	}
}
