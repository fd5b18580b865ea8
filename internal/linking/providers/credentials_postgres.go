package providers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dojotrack/pkg/platform/sentinel"
	txcontext "dojotrack/pkg/platform/tx"
)

// PostgresCredentialStore persists email credential hashes in the
// email_credentials table.
type PostgresCredentialStore struct {
	db *sql.DB
}

func NewPostgresCredentialStore(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresCredentialStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresCredentialStore) Save(ctx context.Context, email, passwordHash string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO email_credentials (email, password_hash, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (email) DO NOTHING
	`, email, passwordHash)
	if err != nil {
		return fmt.Errorf("insert email credentials: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert email credentials rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresCredentialStore) Hash(ctx context.Context, email string) (string, error) {
	var hash string
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT password_hash FROM email_credentials WHERE email = $1
	`, email).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find email credentials: %w", err)
	}
	return hash, nil
}

var _ CredentialStore = (*PostgresCredentialStore)(nil)
