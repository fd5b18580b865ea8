package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dojotrack/internal/identity"
	"dojotrack/internal/linking"
	dErrors "dojotrack/pkg/domain-errors"
	"dojotrack/pkg/platform/secrets"
	"dojotrack/pkg/platform/sentinel"
)

// CredentialStore persists bcrypt hashes for the email provider, keyed by
// lowercased email.
type CredentialStore interface {
	// Save stores the hash, or sentinel.ErrConflict when the email is taken.
	Save(ctx context.Context, email, passwordHash string) error
	// Hash returns the stored hash or sentinel.ErrNotFound.
	Hash(ctx context.Context, email string) (string, error)
}

// EmailVerifier treats an email/password pair as a provider credential. The
// provider user ID is the lowercased email itself.
type EmailVerifier struct {
	store CredentialStore
}

func NewEmailVerifier(store CredentialStore) *EmailVerifier {
	return &EmailVerifier{store: store}
}

// Register creates credentials for a new email identity.
func (v *EmailVerifier) Register(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return err
	}
	if err := v.store.Save(ctx, email, hash); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return fmt.Errorf("save email credentials: %w", err)
	}
	return nil
}

func (v *EmailVerifier) Verify(ctx context.Context, cred linking.Credential) (linking.ProviderIdentity, error) {
	email := normalizeEmail(cred.Email)
	if email == "" || cred.Password == "" {
		return linking.ProviderIdentity{}, dErrors.New(dErrors.CodeInvalidToken, "invalid credentials")
	}

	hash, err := v.store.Hash(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Same error as a wrong password so lookups cannot probe for
			// registered emails.
			return linking.ProviderIdentity{}, dErrors.New(dErrors.CodeInvalidToken, "invalid credentials")
		}
		return linking.ProviderIdentity{}, fmt.Errorf("load email credentials: %w", err)
	}
	if err := secrets.Verify(cred.Password, hash); err != nil {
		return linking.ProviderIdentity{}, err
	}

	return linking.ProviderIdentity{
		Provider:       identity.ProviderEmail,
		ProviderUserID: email,
		Email:          email,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ linking.TokenVerifier = (*EmailVerifier)(nil)
