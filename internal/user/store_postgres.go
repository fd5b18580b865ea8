package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "dojotrack/pkg/domain"
	txcontext "dojotrack/pkg/platform/tx"
)

// PostgresStore persists the user_settings and user_roles rows. Both rows are
// written together; reads join them so callers see one record.
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

func (s *PostgresStore) Create(ctx context.Context, u User) error {
	exec := s.execer(ctx)

	res, err := exec.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, email, display_name, image_url, settings_json, version, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), '{}'::jsonb, 0, now())
		ON CONFLICT (lower(email)) DO NOTHING
	`, u.ID.String(), u.Email, u.DisplayName, u.ImageURL)
	if err != nil {
		return fmt.Errorf("insert user settings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user settings rows affected: %w", err)
	}
	if affected == 0 {
		return ErrEmailTaken
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, email, display_name, image_url, role, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, now(), now())
	`, u.ID.String(), u.Email, u.DisplayName, u.ImageURL, string(u.Role))
	if err != nil {
		return fmt.Errorf("insert user role: %w", err)
	}
	return nil
}

const userSelect = `
	SELECT r.user_id, r.email, COALESCE(r.display_name, ''), COALESCE(r.image_url, ''),
	       r.role, r.created_at, r.updated_at
	FROM user_roles r
`

func (s *PostgresStore) scanUser(row *sql.Row) (User, error) {
	var (
		u       User
		rawID   string
		rawRole string
	)
	err := row.Scan(&rawID, &u.Email, &u.DisplayName, &u.ImageURL, &rawRole, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	if u.ID, err = id.ParseUserID(rawID); err != nil {
		return User{}, fmt.Errorf("parse user id: %w", err)
	}
	if u.Role, err = ParseRole(rawRole); err != nil {
		return User{}, fmt.Errorf("parse user role: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (User, error) {
	row := s.execer(ctx).QueryRowContext(ctx, userSelect+`WHERE r.user_id = $1`, userID.String())
	return s.scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	row := s.execer(ctx).QueryRowContext(ctx, userSelect+`WHERE lower(r.email) = lower($1)`, email)
	return s.scanUser(row)
}

func (s *PostgresStore) SetRole(ctx context.Context, userID id.UserID, role Role) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE user_roles SET role = $2, updated_at = now() WHERE user_id = $1
	`, userID.String(), string(role))
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set role rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, userID id.UserID, displayName, imageURL string) error {
	exec := s.execer(ctx)
	res, err := exec.ExecContext(ctx, `
		UPDATE user_roles
		SET display_name = NULLIF($2, ''), image_url = NULLIF($3, ''), updated_at = now()
		WHERE user_id = $1
	`, userID.String(), displayName, imageURL)
	if err != nil {
		return fmt.Errorf("update role profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role profile rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	_, err = exec.ExecContext(ctx, `
		UPDATE user_settings
		SET display_name = NULLIF($2, ''), image_url = NULLIF($3, ''), updated_at = now()
		WHERE user_id = $1
	`, userID.String(), displayName, imageURL)
	if err != nil {
		return fmt.Errorf("update settings profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Settings(ctx context.Context, userID id.UserID) (Settings, error) {
	var (
		st    Settings
		rawID string
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT user_id, email, COALESCE(display_name, ''), COALESCE(image_url, ''),
		       settings_json, version, updated_at
		FROM user_settings
		WHERE user_id = $1
	`, userID.String()).Scan(&rawID, &st.Email, &st.DisplayName, &st.ImageURL, &st.SettingsJSON, &st.Version, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, ErrNotFound
		}
		return Settings{}, fmt.Errorf("find settings: %w", err)
	}
	if st.UserID, err = id.ParseUserID(rawID); err != nil {
		return Settings{}, fmt.Errorf("parse settings user id: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	exec := s.execer(ctx)
	if _, err := exec.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID.String()); err != nil {
		return fmt.Errorf("delete user settings: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID.String()); err != nil {
		return fmt.Errorf("delete user role: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
