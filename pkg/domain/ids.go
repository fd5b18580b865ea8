// Package domain holds typed identifiers shared across features. Wrapping
// uuid.UUID in distinct types makes cross-assignment a compile error, so a
// user ID can never be passed where an identity ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "dojotrack/pkg/domain-errors"
)

type (
	// UserID identifies one logical account a human controls.
	UserID uuid.UUID
	// IdentityID identifies a provider credential record.
	IdentityID uuid.UUID
)

// NewUserID generates a random user identifier. IDs are opaque and never
// reused; there is no shared counter state between instances.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewIdentityID generates a random identity identifier.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id IdentityID) String() string { return uuid.UUID(id).String() }
func (id IdentityID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseUserID validates the invariant that IDs are valid, non-nil UUIDs. Use
// at trust boundaries (HTTP input, JWT claims).
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseIdentityID validates and parses an identity identifier.
func ParseIdentityID(raw string) (IdentityID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return IdentityID{}, err
	}
	return IdentityID(parsed), nil
}

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must not be the nil UUID")
	}
	return parsed, nil
}
