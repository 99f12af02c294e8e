package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/newsfeed-curator/internal/server"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored article counts per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := buildApp(cmd, server.Options{})
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			stats, err := app.Store().ArticleStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("article stats: %w", err)
			}
			today, err := app.Store().TodaysArticles(cmd.Context(), 0)
			if err != nil {
				return fmt.Errorf("today's articles: %w", err)
			}

			md := markdown.NewMarkdown(cmd.OutOrStdout())
			md.PlainTextf("articles today: %d", len(today))
			md.PlainText("")
			rows := make([][]string, 0, len(stats))
			for _, s := range stats {
				rows = append(rows, []string{s.Category, strconv.Itoa(s.ArticleCount)})
			}
			md.Table(markdown.TableSet{
				Header: []string{"Category", "Articles"},
				Rows:   rows,
			})
			return md.Build()
		},
	}
}
