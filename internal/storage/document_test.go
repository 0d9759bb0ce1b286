package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velozfibra/portal/internal/db"
)

func TestFileStore_ReadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read(context.Background(), "goals.json")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestFileStore_WriteRead(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "goals.json", []byte(`[]`)))
	require.NoError(t, store.Write(ctx, "goals.json", []byte(`[{"id":1}]`)))

	data, err := store.Read(ctx, "goals.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(data))

	onDisk, err := os.ReadFile(filepath.Join(dir, "goals.json"))
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)
}

func TestFileStore_CreatesDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Write(context.Background(), "hr/employees.json", []byte(`[]`)))

	path, err := store.Path("hr/employees.json")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestFileStore_RejectsEscapingNames(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", "../goals.json", "/etc/passwd"} {
		err := store.Write(ctx, name, []byte(`[]`))
		assert.ErrorIs(t, err, ErrInvalidDocument, name)
	}
}

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()

	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = db.RunMigrations(context.Background(), database.DB, "sqlite")
	require.NoError(t, err)
	return NewSQLStore(database)
}

func TestSQLStore_ReadMissing(t *testing.T) {
	store := newSQLStore(t)

	_, err := store.Read(context.Background(), "goals.json")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestSQLStore_Upsert(t *testing.T) {
	store := newSQLStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "goals.json", []byte(`[]`)))
	require.NoError(t, store.Write(ctx, "goals.json", []byte(`[{"id":2}]`)))
	require.NoError(t, store.Write(ctx, "users.json", []byte(`[{"id":"u1"}]`)))

	goals, err := store.Read(ctx, "goals.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":2}]`, string(goals))

	users, err := store.Read(ctx, "users.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"u1"}]`, string(users))
}
