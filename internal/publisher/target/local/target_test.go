package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newsfeed-curator/internal/publisher/target/local"
)

func TestNew(t *testing.T) {
	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "blog", "posts")
		target, err := local.New(local.Config{Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, dir, target.Dir())
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("PathIsFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{Dir: file})
		assert.Error(t, err)
	})
}

func TestWriteExistsListDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := target.Exists(ctx, "2025-06-01-btc.mdx")
	require.NoError(t, err)
	assert.False(t, exists)

	uri, err := target.Write(ctx, "2025-06-01-btc.mdx", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.Join(dir, "2025-06-01-btc.mdx"), uri)

	exists, err = target.Exists(ctx, "2025-06-01-btc.mdx")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = target.Write(ctx, "2025-06-01-btc.mdx", []byte("replaced"))
	require.NoError(t, err)
	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(filepath.Join(dir, "2025-06-01-btc.mdx"))
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))

	require.NoError(t, os.Mkdir(filepath.Join(dir, "images"), 0o750))
	names, err := target.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-01-btc.mdx"}, names)

	require.NoError(t, target.Delete(ctx, "2025-06-01-btc.mdx"))
	require.NoError(t, target.Delete(ctx, "2025-06-01-btc.mdx"))
	names, err = target.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRejectsTraversal(t *testing.T) {
	t.Parallel()

	target, err := local.New(local.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	_, err = target.Write(context.Background(), "../escape.mdx", []byte("x"))
	assert.Error(t, err)
	_, err = target.Exists(context.Background(), "")
	assert.Error(t, err)
}
