package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifierStoresMessages(t *testing.T) {
	t.Parallel()

	n := New()
	id1, err := n.Publish(context.Background(), "articles-published", map[string]string{"filename": "a.mdx"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := n.Publish(context.Background(), "other", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := n.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "articles-published", msgs[0].Topic)
	require.Equal(t, "other", msgs[1].Topic)

	msgs[0].Topic = "modified"
	require.Equal(t, "articles-published", n.Messages()[0].Topic, "Messages must return a copy")
}
