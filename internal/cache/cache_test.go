package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_FlushAndLoadRoundTrip(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	err = store.Flush(ctx, []Entry{
		{Path: "a.md", ContentHash: "c1", OutputHash: "o1", RenderedAt: now},
		{Path: "b.md", ContentHash: "c2", OutputHash: "o2", RenderedAt: now},
	})
	require.NoError(t, err)

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "c1", entries["a.md"].ContentHash)
	require.Equal(t, "o2", entries["b.md"].OutputHash)
	require.Equal(t, now.Unix(), entries["a.md"].RenderedAt.Unix())
}

func TestStore_FlushUpserts(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Flush(ctx, []Entry{{Path: "a.md", ContentHash: "old", OutputHash: "old", RenderedAt: time.Now()}}))
	require.NoError(t, store.Flush(ctx, []Entry{{Path: "a.md", ContentHash: "new", OutputHash: "new", RenderedAt: time.Now()}}))

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "new", entries["a.md"].ContentHash)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state", "cache.db")
	ctx := context.Background()

	store, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx, []Entry{{Path: "a.md", ContentHash: "c1", OutputHash: "o1", RenderedAt: time.Now()}}))
	require.NoError(t, store.Close())

	reopened, err := Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "c1", entries["a.md"].ContentHash)
}

func TestStore_Delete(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Flush(ctx, []Entry{{Path: "a.md", ContentHash: "c1", OutputHash: "o1", RenderedAt: time.Now()}}))
	require.NoError(t, store.Delete(ctx, "a.md"))

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}
