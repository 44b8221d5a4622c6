package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"notifnuke/internal/app"
	"notifnuke/internal/loginitem"
)

func newLoginItemCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login-item",
		Short: "Manage launching notifnuke at login",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show whether notifnuke launches at login",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSession(cmd, flags, opts, func(ctx context.Context, s *app.Session) error {
					st, err := s.LoginItem().Status(ctx)
					if err != nil {
						return err
					}
					printLoginItem(cmd.OutOrStdout(), st)
					return nil
				})
			},
		},
		newLoginItemToggleCmd(flags, opts, "enable", true),
		newLoginItemToggleCmd(flags, opts, "disable", false),
	)
	return cmd
}

func newLoginItemToggleCmd(flags *globalFlags, opts []app.Option, use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s launching at login", capitalize(use)),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, flags, opts, func(ctx context.Context, s *app.Session) error {
				err := s.LoginItem().SetEnabled(ctx, "cli", enabled)
				st, stErr := s.LoginItem().Status(ctx)
				if stErr == nil {
					printLoginItem(cmd.OutOrStdout(), st)
				}
				return err
			})
		},
	}
}

func printLoginItem(w io.Writer, st loginitem.Status) {
	system := onOff(st.System)
	if st.SystemErr != nil {
		system = "unavailable (" + st.SystemErr.Error() + ")"
	}
	intent := "unset"
	if st.IntentSet {
		intent = onOff(st.Intent)
	}
	fmt.Fprintf(w, "Launch at login: %s\n  system: %s\n  intent: %s\n", onOff(st.Effective()), system, intent)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
