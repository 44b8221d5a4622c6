package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notifnuke/internal/app"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, flags, opts)
		},
	}
}

func runDaemon(cmd *cobra.Command, flags *globalFlags, opts []app.Option) error {
	a, err := app.NewApp(flags.ConfigPath, opts...)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ctx := cmd.Context()
	if err := a.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.Stop(stopCtx, app.StopFatalError)
		return fmt.Errorf("start: %w", err)
	}

	var reason app.StopReason
	select {
	case s := <-sigs:
		reason = stopReasonFor(s)
	case <-ctx.Done():
		// The caller's context may itself be signal-bound.
		reason = app.StopAppStop
		select {
		case s := <-sigs:
			reason = stopReasonFor(s)
		default:
		}
	case <-a.Done():
		reason = app.StopFatalError
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		return a.Err()
	}
	return nil
}

func stopReasonFor(s os.Signal) app.StopReason {
	switch s {
	case os.Interrupt:
		return app.StopSIGINT
	case syscall.SIGTERM:
		return app.StopSIGTERM
	default:
		return app.StopUnknown
	}
}
