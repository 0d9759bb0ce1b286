package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidDocument  = errors.New("invalid document name")
)

// DocumentStore holds whole documents addressed by name. One document is
// one collection; writes replace the previous content entirely.
type DocumentStore interface {
	// Read returns ErrDocumentNotFound if the document does not exist
	Read(ctx context.Context, name string) ([]byte, error)

	// Write creates or overwrites the document
	Write(ctx context.Context, name string, data []byte) error
}

// FileStore keeps each document as a file below baseDir.
// Writes go through a temp file and rename, so a reader sees either the old
// or the new document, never a partial one.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	slog.Info("file document store ready", "dir", baseDir)
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", name, err)
	}

	return data, nil
}

func (s *FileStore) Write(ctx context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", name, err)
	}

	return nil
}

// Path returns the file backing a document. Used by tooling, not by repositories.
func (s *FileStore) Path(name string) (string, error) {
	return s.path(name)
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocument, name)
	}
	return filepath.Join(s.baseDir, name), nil
}
