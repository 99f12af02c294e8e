// Package cmd defines and implements the CLI commands for the curator.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/config"
	"github.com/JakeFAU/newsfeed-curator/internal/logging"
	"github.com/JakeFAU/newsfeed-curator/internal/server"
)

type runtimeKey struct{}

// runtime is what PersistentPreRunE hands to subcommands.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp is the application factory. Tests replace it.
var newApp = server.Build

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "newsfeed-curator",
		Short: "Curates, summarizes and publishes news from RSS feeds.",
		Long: `newsfeed-curator polls a list of RSS/Atom feeds, asks a language model
which stories are worth publishing, enriches the survivors with scraped full
text and tiered summaries, stores them with deduplication and writes them out
as markdown posts for a static blog.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Telemetry.ServiceName)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, &runtime{cfg: cfg, logger: logger}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime); ok {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); CURATOR_* env vars override it")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newStatsCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, fmt.Errorf("configuration was not loaded")
	}
	return rt, nil
}

// buildApp resolves the runtime and builds the application for a subcommand.
// The caller closes the App.
func buildApp(cmd *cobra.Command, opts server.Options) (*server.App, *runtime, error) {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	app, err := newApp(cmd.Context(), rt.cfg, rt.logger, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize application services: %w", err)
	}
	return app, rt, nil
}

// Execute is the main entry point. Any error exits with status 1.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
