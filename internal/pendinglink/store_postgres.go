package pendinglink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dojotrack/internal/identity"
	"dojotrack/pkg/platform/sentinel"
	txcontext "dojotrack/pkg/platform/tx"
)

// PostgresStore persists pending links in the pending_links table.
// DELETE ... RETURNING makes Take a single atomic statement, so concurrent
// confirms of the same code cannot both succeed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Put(ctx context.Context, link PendingLink) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO pending_links (code, provider, provider_user_id, return_to, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, link.Code, string(link.Provider), link.ProviderUserID, link.ReturnTo, link.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert pending link: %w", err)
	}
	return nil
}

func (s *PostgresStore) Take(ctx context.Context, code string) (PendingLink, error) {
	var (
		link        PendingLink
		rawProvider string
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		DELETE FROM pending_links
		WHERE code = $1
		RETURNING provider, provider_user_id, return_to, expires_at
	`, code).Scan(&rawProvider, &link.ProviderUserID, &link.ReturnTo, &link.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PendingLink{}, sentinel.ErrNotFound
		}
		return PendingLink{}, fmt.Errorf("take pending link: %w", err)
	}
	link.Code = code
	link.Provider = identity.Provider(rawProvider)
	return link, nil
}

var _ Store = (*PostgresStore)(nil)
