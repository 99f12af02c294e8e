package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/newsfeed-curator/internal/server"
)

func newCleanupCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete published posts older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, rt, err := buildApp(cmd, server.Options{})
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			if !cmd.Flags().Changed("days") {
				days = rt.cfg.Publisher.DaysToKeep
			}
			res, err := app.Publisher().Cleanup(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d, kept %d\n", len(res.Deleted), res.Kept)
			return err
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "days of posts to keep (default publisher.days_to_keep)")
	return cmd
}
