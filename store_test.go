package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/blogkit/go-session"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := session.NewFileStore(path)
	ctx := context.Background()

	ident, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, ident, "missing file means no snapshot")

	require.NoError(t, store.Save(ctx, writerIdentity()))

	ident, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, ident)
	assert.Equal(t, "7", ident.ID)
	assert.True(t, ident.HasRole(session.RoleWriter))
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := session.NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Clear(ctx), "clearing an absent snapshot is fine")

	require.NoError(t, store.Save(ctx, writerIdentity()))
	require.NoError(t, store.Clear(ctx))

	ident, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, ident)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.json")
	store := session.NewFileStore(path)

	require.NoError(t, store.Save(context.Background(), writerIdentity()))

	ident, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ident)
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := session.NewFileStore(path)
	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestBunStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := session.NewBunStore(ctx, filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	ident, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, ident, "missing row means no snapshot")

	require.NoError(t, store.Save(ctx, writerIdentity()))

	ident, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, ident)
	assert.Equal(t, "poe", ident.Username)

	// Save again overwrites the single row.
	updated := writerIdentity()
	updated.Email = "new@example.com"
	require.NoError(t, store.Save(ctx, updated))

	ident, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", ident.Email)
}

func TestBunStoreClear(t *testing.T) {
	ctx := context.Background()
	store, err := session.NewBunStore(ctx, filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Clear(ctx), "clearing an absent row is fine")

	require.NoError(t, store.Save(ctx, writerIdentity()))
	require.NoError(t, store.Clear(ctx))

	ident, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, ident)
}

func TestBunStoreCustomKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	a, err := session.NewBunStore(ctx, path, session.WithSnapshotKey("tab-a"))
	require.NoError(t, err)
	defer a.Close()

	b, err := session.NewBunStore(ctx, path, session.WithSnapshotKey("tab-b"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Save(ctx, writerIdentity()))

	ident, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, ident, "keys do not bleed into each other")
}
