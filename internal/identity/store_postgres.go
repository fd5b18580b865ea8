package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "dojotrack/pkg/domain"
	txcontext "dojotrack/pkg/platform/tx"
)

// PostgresStore persists identities in PostgreSQL. The unique constraint on
// (provider, provider_user_id) is the ground truth for collision detection;
// conflicting merges serialize on it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer returns the enclosing transaction when one is carried in the
// context, so merge operations span tables atomically.
func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) FindOwner(ctx context.Context, provider Provider, providerUserID string) (id.UserID, error) {
	var raw string
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT user_id FROM identities WHERE provider = $1 AND provider_user_id = $2`,
		string(provider), providerUserID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id.UserID{}, ErrNotFound
		}
		return id.UserID{}, fmt.Errorf("find identity owner: %w", err)
	}
	owner, err := id.ParseUserID(raw)
	if err != nil {
		return id.UserID{}, fmt.Errorf("parse identity owner: %w", err)
	}
	return owner, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]Identity, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, user_id, provider, provider_user_id, created_at, updated_at
		FROM identities
		WHERE user_id = $1
		ORDER BY provider
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		var (
			ident            Identity
			rawID, rawUserID string
			rawProvider      string
		)
		if err := rows.Scan(&rawID, &rawUserID, &rawProvider, &ident.ProviderUserID, &ident.CreatedAt, &ident.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		if ident.ID, err = id.ParseIdentityID(rawID); err != nil {
			return nil, fmt.Errorf("parse identity id: %w", err)
		}
		if ident.UserID, err = id.ParseUserID(rawUserID); err != nil {
			return nil, fmt.Errorf("parse identity user id: %w", err)
		}
		ident.Provider = Provider(rawProvider)
		out = append(out, ident)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListProviders(ctx context.Context, userID id.UserID) ([]Provider, error) {
	var names []string
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT COALESCE(array_agg(DISTINCT provider ORDER BY provider), '{}')
		FROM identities
		WHERE user_id = $1
	`, userID.String()).Scan(pq.Array(&names))
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		providers = append(providers, Provider(name))
	}
	return providers, nil
}

func (s *PostgresStore) Attach(ctx context.Context, ident Identity) error {
	// ON CONFLICT DO NOTHING keeps the insert race-free; a zero row count
	// means the pair exists and we must check who owns it.
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO identities (id, user_id, provider, provider_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (provider, provider_user_id) DO NOTHING
	`, ident.ID.String(), ident.UserID.String(), string(ident.Provider), ident.ProviderUserID)
	if err != nil {
		return fmt.Errorf("attach identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach identity rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	owner, err := s.FindOwner(ctx, ident.Provider, ident.ProviderUserID)
	if err != nil {
		return fmt.Errorf("attach identity owner check: %w", err)
	}
	if owner == ident.UserID {
		return nil
	}
	return ErrAlreadyLinkedElsewhere
}

func (s *PostgresStore) Detach(ctx context.Context, userID id.UserID, provider Provider) error {
	// The guard subquery makes the last-identity check and the delete one
	// atomic statement, so concurrent unlinks cannot strand a user with zero
	// identities.
	res, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM identities
		WHERE user_id = $1
		  AND provider = $2
		  AND (SELECT COUNT(*) FROM identities WHERE user_id = $1) > 1
	`, userID.String(), string(provider))
	if err != nil {
		return fmt.Errorf("detach identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("detach identity rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing deleted: either the identity does not exist or it is the last
	// one. Distinguish for the caller.
	var exists bool
	err = s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM identities WHERE user_id = $1 AND provider = $2)`,
		userID.String(), string(provider),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("detach identity existence check: %w", err)
	}
	if exists {
		return ErrLastIdentity
	}
	return ErrNotFound
}

func (s *PostgresStore) ReassignAll(ctx context.Context, source, target id.UserID) (int, error) {
	exec := s.execer(ctx)

	// Drop source rows that would collide with a pair the target already
	// owns; the target's existing identity wins.
	_, err := exec.ExecContext(ctx, `
		DELETE FROM identities s
		WHERE s.user_id = $1
		  AND EXISTS (
			SELECT 1 FROM identities t
			WHERE t.user_id = $2
			  AND t.provider = s.provider
			  AND t.provider_user_id = s.provider_user_id
		  )
	`, source.String(), target.String())
	if err != nil {
		return 0, fmt.Errorf("drop duplicate identities: %w", err)
	}

	res, err := exec.ExecContext(ctx, `
		UPDATE identities SET user_id = $2, updated_at = now() WHERE user_id = $1
	`, source.String(), target.String())
	if err != nil {
		return 0, fmt.Errorf("reassign identities: %w", err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign identities rows affected: %w", err)
	}
	return int(moved), nil
}

var _ Store = (*PostgresStore)(nil)
