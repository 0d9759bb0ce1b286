package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/velozfibra/portal/internal/storage"
)

const backupTimestampLayout = "20060102T150405Z"

type BackupObject struct {
	Document string `json:"document" yaml:"document"`
	Key      string `json:"key" yaml:"key"`
	Size     int    `json:"size" yaml:"size"`
	URL      string `json:"url" yaml:"url"`
}

type BackupService struct {
	documents storage.DocumentStore
	objects   storage.ObjectStorage
	prefix    string
	names     []string
	now       func() time.Time
}

func NewBackupService(documents storage.DocumentStore, objects storage.ObjectStorage, prefix string, names ...string) *BackupService {
	return &BackupService{
		documents: documents,
		objects:   objects,
		prefix:    strings.Trim(prefix, "/"),
		names:     names,
		now:       time.Now,
	}
}

// Backup uploads a snapshot of every document. Documents that do not exist
// yet are skipped. When any upload fails the objects already written by this
// run are removed, so a snapshot set is either complete or absent.
func (s *BackupService) Backup(ctx context.Context) ([]BackupObject, error) {
	if s.objects == nil {
		return nil, storage.ErrObjectStorageNotConfigured
	}

	stamp := s.now().UTC().Format(backupTimestampLayout)
	var objects []BackupObject

	for _, name := range s.names {
		data, err := s.documents.Read(ctx, name)
		if errors.Is(err, storage.ErrDocumentNotFound) {
			slog.Warn("backup skipped missing document", "document", name)
			continue
		}
		if err != nil {
			s.discard(objects)
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		key := s.key(name, stamp)
		err = s.objects.Save(ctx, key, bytes.NewReader(data))
		if err != nil {
			s.discard(objects)
			return nil, fmt.Errorf("failed to upload %s: %w", name, err)
		}

		slog.Info("document backed up", "document", name, "key", key, "size", len(data))
		objects = append(objects, BackupObject{
			Document: name,
			Key:      key,
			Size:     len(data),
			URL:      s.objects.URL(key),
		})
	}

	return objects, nil
}

// discard runs on a detached context so a cancelled backup still cleans up.
func (s *BackupService) discard(objects []BackupObject) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, o := range objects {
		err := s.objects.Delete(ctx, o.Key)
		if err != nil {
			slog.Error("failed to remove partial backup", "key", o.Key, "error", err)
		}
	}
}

func (s *BackupService) key(name, stamp string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	return path.Join(s.prefix, base, fmt.Sprintf("%s-%s.json", stamp, uuid.New().String()))
}
