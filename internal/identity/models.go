package identity

import (
	"time"

	id "dojotrack/pkg/domain"
	dErrors "dojotrack/pkg/domain-errors"
)

// Provider enumerates the supported identity providers.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderEmail    Provider = "email"
)

// ParseProvider validates provider names at trust boundaries (URL params).
func ParseProvider(raw string) (Provider, error) {
	switch Provider(raw) {
	case ProviderGoogle, ProviderFacebook, ProviderEmail:
		return Provider(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown provider: "+raw)
	}
}

// Identity is a provider-issued credential bound to exactly one user.
// Invariant: each (provider, providerUserID) pair maps to at most one user,
// and a user always keeps at least one identity.
type Identity struct {
	ID             id.IdentityID
	UserID         id.UserID
	Provider       Provider
	ProviderUserID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
