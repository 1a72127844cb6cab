package objstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirStore(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), "http://localhost:8080/images/")
	require.NoError(t, err)

	ctx := context.Background()

	ok, err := store.Exists(ctx, "contestants/jinkx/abc123.jpg")
	require.NoError(t, err)
	require.False(t, ok)

	url, err := store.Put(ctx, "contestants/jinkx/abc123.jpg", []byte("fake-jpeg"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/images/contestants/jinkx/abc123.jpg", url)

	ok, err = store.Exists(ctx, "contestants/jinkx/abc123.jpg")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDirStoreRejectsTraversal(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), "http://localhost")
	require.NoError(t, err)

	p, err := store.keyPath("../../etc/passwd")
	require.NoError(t, err)
	require.Contains(t, p, store.dir)
}

func TestMemStore(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	url, err := store.Put(ctx, "a/b.png", []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	require.Equal(t, "mem://a/b.png", url)

	ok, err := store.Exists(ctx, "a/b.png")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"a/b.png"}, store.Keys())
}
