package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/newsfeed-curator/internal/publisher"
	"github.com/JakeFAU/newsfeed-curator/internal/server"
)

type publishFlags struct {
	preview   bool
	today     bool
	allRecent bool
	days      int
	limit     int
	force     bool
	category  string
}

// recentDays is the --all-recent window when --days is not given.
const recentDays = 7

// options maps the flags onto publisher options. An explicit --today wins
// over --all-recent and --category.
func (f publishFlags) options(todaySet, daysSet bool) publisher.Options {
	opts := publisher.DefaultOptions()
	if f.allRecent || f.category != "" {
		opts.OnlyToday = false
	}
	if todaySet {
		opts.OnlyToday = f.today
	}
	opts.Category = f.category
	opts.Days = f.days
	if f.allRecent && !daysSet {
		opts.Days = recentDays
	}
	opts.Limit = f.limit
	opts.SkipExisting = !f.force
	return opts
}

func newPublishCmd() *cobra.Command {
	var flags publishFlags

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write stored articles out as blog posts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := buildApp(cmd, server.Options{})
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			opts := flags.options(cmd.Flags().Changed("today"), cmd.Flags().Changed("days"))
			out := cmd.OutOrStdout()
			if flags.preview {
				preview, err := app.Publisher().Preview(cmd.Context(), opts)
				if err != nil {
					return fmt.Errorf("preview: %w", err)
				}
				return writePreview(out, preview)
			}

			res, err := app.Publisher().Publish(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			if err := writePublishResult(out, res); err != nil {
				return err
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d units failed to publish", res.Failed, res.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.preview, "preview", false, "show what would be published without writing")
	cmd.Flags().BoolVar(&flags.today, "today", true, "only articles published today")
	cmd.Flags().BoolVar(&flags.allRecent, "all-recent", false, "articles from the last --days days instead of today")
	cmd.Flags().IntVar(&flags.days, "days", 1, "recency window in days; --all-recent alone uses 7")
	cmd.Flags().IntVar(&flags.limit, "limit", 10, "maximum number of articles")
	cmd.Flags().BoolVar(&flags.force, "force", false, "overwrite posts that already exist")
	cmd.Flags().StringVar(&flags.category, "category", "", "only articles in this category")
	return cmd
}

func writePreview(w io.Writer, p publisher.Preview) error {
	md := markdown.NewMarkdown(w)
	md.PlainTextf("%d candidates: %d new, %d existing", p.Total, p.New, p.Existing)
	md.PlainText("")
	rows := make([][]string, 0, len(p.Items))
	for _, item := range p.Items {
		rows = append(rows, []string{item.Filename, item.Title, strconv.FormatBool(item.Exists), strconv.FormatBool(item.WouldSkip)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Title", "Exists", "Would skip"},
		Rows:   rows,
	})
	return md.Build()
}

func writePublishResult(w io.Writer, res publisher.Result) error {
	md := markdown.NewMarkdown(w)
	md.PlainTextf("published %d, skipped %d, failed %d of %d", res.Published, res.Skipped, res.Failed, res.Total)
	md.PlainText("")
	rows := make([][]string, 0, len(res.Units))
	for _, u := range res.Units {
		status := "published"
		switch {
		case u.Error != "":
			status = "failed: " + u.Error
		case u.Skipped:
			status = "skipped"
		}
		rows = append(rows, []string{u.Filename, u.Title, status})
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Title", "Status"},
		Rows:   rows,
	})
	return md.Build()
}
