package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"notifnuke/internal/app"
)

func newAuditCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent user actions (clear-all, pause/resume, login item)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, flags, opts, func(ctx context.Context, s *app.Session) error {
				entries, err := s.RecentAudit(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tORIGIN\tACTION\tRESULT\tDETAIL")
				for _, e := range entries {
					result := "ok"
					if !e.OK {
						result = "failed"
						if e.Error != "" {
							result += ": " + e.Error
						}
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.At.Local().Format(time.DateTime), e.Origin, e.Action, result, e.Detail)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	return cmd
}
