package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/server"
)

func newRunCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline on a schedule and serve the HTTP API",
		Long: `Starts the scheduled pipeline: one cycle immediately, then one every
pipeline.interval, plus the HTTP API, until SIGINT or SIGTERM. With --once a
single cycle runs in the foreground and its report is printed as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, rt, err := buildApp(cmd, server.Options{Pipeline: true, Telemetry: true})
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			if !once {
				return app.Run(cmd.Context())
			}

			report, err := app.RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("run cycle: %w", err)
			}
			rt.logger.Info("single cycle finished",
				zap.Int("inserted", report.Insert.Inserted),
				zap.Stringer("fallback", report.Fallback),
			)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}
