package user

import (
	"context"
	"errors"

	id "dojotrack/pkg/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Create when the email already belongs to
	// an active user.
	ErrEmailTaken = errors.New("email already in use")
)

// Store persists the user settings and role rows. Both rows live and die
// together: Create writes both, Delete removes both.
type Store interface {
	// Create inserts the settings and role rows for a new user.
	Create(ctx context.Context, u User) error

	// FindByID returns the user's combined record or ErrNotFound.
	FindByID(ctx context.Context, userID id.UserID) (User, error)

	// FindByEmail resolves the natural-merge key or returns ErrNotFound.
	FindByEmail(ctx context.Context, email string) (User, error)

	// SetRole updates the user's role row.
	SetRole(ctx context.Context, userID id.UserID, role Role) error

	// UpdateProfile overwrites the profile fields on both rows.
	UpdateProfile(ctx context.Context, userID id.UserID, displayName, imageURL string) error

	// Settings returns the user's settings row or ErrNotFound.
	Settings(ctx context.Context, userID id.UserID) (Settings, error)

	// Delete removes the user's settings and role rows entirely. Used for
	// the source account at the end of a merge.
	Delete(ctx context.Context, userID id.UserID) error
}
