package tokenstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/isdelr/blog-client/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewSQLiteStore(db)
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	_, ok, err := store.Read(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store must be empty")

	require.NoError(t, store.Save(ctx, "jwt-1"))
	require.NoError(t, store.Save(ctx, "jwt-2"))
	token, ok, err := store.Read(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "jwt-2", token)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Read(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, store.Save(ctx, ""))
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, newSQLiteStore(t))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.db")
	ctx := context.Background()

	db, err := database.New(path)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, NewSQLiteStore(db).Save(ctx, "jwt-xyz"))
	require.NoError(t, db.Close())

	db, err = database.New(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(db))
	token, ok, err := NewSQLiteStore(db).Read(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "jwt-xyz", token)
}
