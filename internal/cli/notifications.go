package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"notifnuke/internal/app"
	"notifnuke/internal/surface"
)

func newCountCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of delivered notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, flags, opts, func(ctx context.Context, s *app.Session) error {
				n, err := s.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), surface.CountLine(n))
				return nil
			})
		},
	}
}

func newClearCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every delivered notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, flags, opts, func(ctx context.Context, s *app.Session) error {
				out := cmd.OutOrStdout()
				if n, err := s.Count(ctx); err == nil {
					fmt.Fprintln(out, surface.ClearWarning(n))
				}
				remaining, err := s.Clear(ctx, "cli")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, surface.ClearDone(remaining))
				return nil
			})
		},
	}
}
