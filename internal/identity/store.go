package identity

import (
	"context"
	"errors"

	id "dojotrack/pkg/domain"
)

// Store-level sentinels. Services translate these into coded domain errors;
// they never reach the HTTP layer directly.
var (
	// ErrNotFound is returned when no identity matches the lookup.
	ErrNotFound = errors.New("identity not found")
	// ErrAlreadyLinkedElsewhere is returned by Attach when the (provider,
	// providerUserID) pair already belongs to a different user. Callers must
	// route through the merge engine instead of attaching blindly.
	ErrAlreadyLinkedElsewhere = errors.New("identity already linked to another user")
	// ErrLastIdentity is returned by Detach when removing the identity would
	// leave the user with no way to sign in.
	ErrLastIdentity = errors.New("cannot detach the last identity")
)

// Store is the persistent mapping of (provider, providerUserID) to user.
type Store interface {
	// FindOwner returns the user owning the given provider identity, or
	// ErrNotFound.
	FindOwner(ctx context.Context, provider Provider, providerUserID string) (id.UserID, error)

	// ListByUser returns all identities attached to the user.
	ListByUser(ctx context.Context, userID id.UserID) ([]Identity, error)

	// ListProviders returns the sorted set of provider names attached to the
	// user.
	ListProviders(ctx context.Context, userID id.UserID) ([]Provider, error)

	// Attach binds the identity to ident.UserID. Attaching a pair the user
	// already owns is a no-op; a pair owned by a different user fails with
	// ErrAlreadyLinkedElsewhere.
	Attach(ctx context.Context, ident Identity) error

	// Detach removes the user's identity for the provider. Fails with
	// ErrLastIdentity when it is the user's only identity, leaving the row
	// intact, and ErrNotFound when the user has no identity for the provider.
	Detach(ctx context.Context, userID id.UserID, provider Provider) error

	// ReassignAll moves every identity owned by source to target, dropping
	// source rows that would duplicate a (provider, providerUserID) pair the
	// target already owns. Returns the number of rows moved; zero moved rows
	// with no error means there was nothing to do (already merged).
	ReassignAll(ctx context.Context, source, target id.UserID) (int, error)
}
