package linking

import (
	"context"

	"dojotrack/internal/identity"
	dErrors "dojotrack/pkg/domain-errors"
)

// Credential is what a client presents to prove control of a provider
// identity. OAuth providers fill Token; the email provider fills Email and
// Password.
type Credential struct {
	Token    string
	Email    string
	Password string
}

// ProviderIdentity is the verified identity a provider vouches for.
type ProviderIdentity struct {
	Provider       identity.Provider
	ProviderUserID string
	Email          string
	DisplayName    string
	ImageURL       string
}

// TokenVerifier validates a credential with its provider and returns the
// identity it proves. Implementations return InvalidToken for credentials the
// provider rejects.
type TokenVerifier interface {
	Verify(ctx context.Context, cred Credential) (ProviderIdentity, error)
}

// VerifierMux routes verification to the registered provider verifier.
type VerifierMux struct {
	verifiers map[identity.Provider]TokenVerifier
}

func NewVerifierMux() *VerifierMux {
	return &VerifierMux{verifiers: make(map[identity.Provider]TokenVerifier)}
}

func (m *VerifierMux) Register(provider identity.Provider, v TokenVerifier) {
	m.verifiers[provider] = v
}

func (m *VerifierMux) Verify(ctx context.Context, provider identity.Provider, cred Credential) (ProviderIdentity, error) {
	v, ok := m.verifiers[provider]
	if !ok {
		return ProviderIdentity{}, dErrors.New(dErrors.CodeBadRequest, "provider not enabled: "+string(provider))
	}
	return v.Verify(ctx, cred)
}
