package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore keeps documents as rows of the documents table, one row per name.
// Each Write is a single upsert, so the whole document changes in one statement.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Read(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDocument, name)
	}

	var body string
	query := `SELECT body FROM documents WHERE name = $1`

	err := s.db.GetContext(ctx, &body, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", name, err)
	}

	return []byte(body), nil
}

func (s *SQLStore) Write(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDocument, name)
	}

	query := `INSERT INTO documents (name, body, updated_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, name, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", name, err)
	}

	return nil
}
