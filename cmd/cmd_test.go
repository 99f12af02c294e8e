package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newsfeed-curator/internal/publisher"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
app:
  timezone: UTC
storage:
  driver: sqlite
  path: ` + filepath.Join(dir, "articles.db") + `
publisher:
  dir: ` + filepath.Join(dir, "posts") + `
feeds:
  - title: Desk
    feed_url: https://desk.example/rss
    category: Bitcoin
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "stats", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "articles today: 0")
	assert.Contains(t, out, "Category")
}

func TestPublishPreviewCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "publish", "--preview", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "0 candidates")
}

func TestPublishCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "publish", "--all-recent", "--days", "7", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "published 0, skipped 0, failed 0 of 0")
}

func TestCleanupCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "cleanup", "--days", "5", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0, kept 0")
}

func TestRunOnceRequiresLLMKey(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "run", "--once", "--config", writeConfig(t))
	require.ErrorContains(t, err, "llm.api_key")
}

func TestMissingConfigFails(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "stats", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestPublishFlagsOptions(t *testing.T) {
	t.Parallel()

	base := publishFlags{today: true, days: 1, limit: 10}
	tests := []struct {
		name     string
		flags    publishFlags
		todaySet bool
		daysSet  bool
		want     publisher.Options
	}{
		{
			name:  "defaults",
			flags: base,
			want:  publisher.DefaultOptions(),
		},
		{
			name:  "all recent defaults to a week",
			flags: publishFlags{today: true, allRecent: true, days: 1, limit: 20},
			want:  publisher.Options{OnlyToday: false, Days: 7, Limit: 20, SkipExisting: true},
		},
		{
			name:    "all recent with explicit days",
			flags:   publishFlags{today: true, allRecent: true, days: 3, limit: 20},
			daysSet: true,
			want:    publisher.Options{OnlyToday: false, Days: 3, Limit: 20, SkipExisting: true},
		},
		{
			name:  "category",
			flags: publishFlags{today: true, days: 1, limit: 10, category: "DeFi"},
			want:  publisher.Options{OnlyToday: false, Days: 1, Limit: 10, Category: "DeFi", SkipExisting: true},
		},
		{
			name:     "explicit today wins",
			flags:    publishFlags{today: true, allRecent: true, days: 1, limit: 10},
			todaySet: true,
			want:     publisher.Options{OnlyToday: true, Days: 7, Limit: 10, SkipExisting: true},
		},
		{
			name:  "force",
			flags: publishFlags{today: true, days: 1, limit: 10, force: true},
			want:  publisher.Options{OnlyToday: true, Days: 1, Limit: 10, SkipExisting: false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.flags.options(tt.todaySet, tt.daysSet))
		})
	}
}
