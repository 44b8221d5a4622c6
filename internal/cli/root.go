// Package cli provides the notifnuke command line.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"notifnuke/internal/app"
	"notifnuke/internal/config"
	logx "notifnuke/pkg/logx"
)

// BuildInfo is set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type globalFlags struct {
	ConfigPath string
	Verbose    bool
}

// oneShotTimeout bounds commands that talk to the notification center once.
const oneShotTimeout = 30 * time.Second

// newRootCmd builds the command tree. opts are passed to every app and
// session the commands open.
func newRootCmd(flags *globalFlags, info BuildInfo, opts ...app.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Count and clear delivered desktop notifications",
		Long: `notifnuke watches the desktop notification center, publishes the number of
delivered notifications to a status file and an optional Telegram bot, and
clears them all on request.

Running it without a subcommand starts the daemon.`,
		Version:       formatVersion(info),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, flags, opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", config.DefaultPath(), "path to the YAML or JSON config file")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(
		newRunCmd(flags, opts),
		newCountCmd(flags, opts),
		newClearCmd(flags, opts),
		newLoginItemCmd(flags, opts),
		newAuditCmd(flags, opts),
		newVersionCmd(info),
	)
	return cmd
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.AppName, formatVersion(info))
		},
	}
}

// consoleLogger is used by one-shot commands; the daemon logs per config.
func consoleLogger(flags *globalFlags) logx.Logger {
	if flags.Verbose {
		return logx.NewConsole("debug")
	}
	return logx.NewConsole("warn")
}

// withSession opens a session, runs fn under a bounded context and closes it.
func withSession(cmd *cobra.Command, flags *globalFlags, opts []app.Option, fn func(ctx context.Context, s *app.Session) error) error {
	s, err := app.OpenSession(flags.ConfigPath, consoleLogger(flags), opts...)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
	defer cancel()
	runErr := fn(ctx, s)
	if err := s.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	return newRootCmd(&globalFlags{}, info).ExecuteContext(ctx)
}
