package service

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velozfibra/portal/internal/storage"
)

type memoryObjects struct {
	objects map[string][]byte
	failOn  string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string][]byte)}
}

func (m *memoryObjects) Save(ctx context.Context, key string, body io.Reader) error {
	if m.failOn != "" && regexp.MustCompile(m.failOn).MatchString(key) {
		return errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) URL(key string) string {
	return "https://backups.example.com/" + key
}

func newBackupFixture(t *testing.T) (*storage.FileStore, *memoryObjects) {
	t.Helper()
	docs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, docs.Write(context.Background(), "goals.json", []byte(`[{"id": 1}]`)))
	return docs, newMemoryObjects()
}

func TestBackup(t *testing.T) {
	docs, objects := newBackupFixture(t)

	s := NewBackupService(docs, objects, "/backups/", "goals.json", "users.json")
	s.now = func() time.Time { return time.Date(2024, 2, 15, 7, 0, 0, 0, time.FixedZone("BRT", -3*3600)) }

	result, err := s.Backup(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1, "missing users.json is skipped")

	obj := result[0]
	assert.Equal(t, "goals.json", obj.Document)
	assert.Regexp(t, `^backups/goals/20240215T100000Z-[0-9a-f-]{36}\.json$`, obj.Key)
	assert.Equal(t, 11, obj.Size)
	assert.Equal(t, "https://backups.example.com/"+obj.Key, obj.URL)
	assert.Equal(t, `[{"id": 1}]`, string(objects.objects[obj.Key]))
}

func TestBackup_KeysAreUnique(t *testing.T) {
	docs, objects := newBackupFixture(t)
	s := NewBackupService(docs, objects, "backups", "goals.json")

	first, err := s.Backup(context.Background())
	require.NoError(t, err)
	second, err := s.Backup(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first[0].Key, second[0].Key)
	assert.Len(t, objects.objects, 2)
}

func TestBackup_Errors(t *testing.T) {
	docs, objects := newBackupFixture(t)

	_, err := NewBackupService(docs, nil, "backups", "goals.json").Backup(context.Background())
	assert.ErrorIs(t, err, storage.ErrObjectStorageNotConfigured)

	objects.failOn = "goals"
	_, err = NewBackupService(docs, objects, "backups", "goals.json").Backup(context.Background())
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestBackup_FailureRemovesPartialSnapshot(t *testing.T) {
	docs, objects := newBackupFixture(t)
	require.NoError(t, docs.Write(context.Background(), "users.json", []byte(`[]`)))
	objects.failOn = "users"

	result, err := NewBackupService(docs, objects, "backups", "goals.json", "users.json").Backup(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, objects.objects, "goals snapshot is removed")
}
