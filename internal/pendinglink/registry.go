// Package pendinglink issues and consumes the single-use codes that bridge an
// unauthenticated OAuth callback to an authenticated confirmation step.
package pendinglink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dojotrack/internal/identity"
	dErrors "dojotrack/pkg/domain-errors"
	"dojotrack/pkg/platform/secrets"
	"dojotrack/pkg/platform/sentinel"
	"dojotrack/pkg/requestcontext"
)

// PendingLink is an ephemeral linking intent awaiting confirmation.
type PendingLink struct {
	Code           string
	Provider       identity.Provider
	ProviderUserID string
	ReturnTo       string
	ExpiresAt      time.Time
}

// Store persists pending links. Take must be an atomic check-and-delete: at
// most one caller ever receives a given code's payload, even under concurrent
// confirm attempts.
type Store interface {
	Put(ctx context.Context, link PendingLink) error
	// Take removes and returns the link, or sentinel.ErrNotFound. Expiry is
	// the registry's concern; Take only guarantees single use.
	Take(ctx context.Context, code string) (PendingLink, error)
}

// Registry wraps a Store with code generation and expiry checking.
type Registry struct {
	store Store
	ttl   time.Duration
}

func NewRegistry(store Store, ttl time.Duration) *Registry {
	return &Registry{store: store, ttl: ttl}
}

// Create issues a cryptographically unpredictable single-use code for the
// identity waiting to be attached. 256 bits of randomness make collision with
// an existing unconsumed code negligible.
func (r *Registry) Create(ctx context.Context, provider identity.Provider, providerUserID, returnTo string) (string, error) {
	code, err := secrets.GenerateCode()
	if err != nil {
		return "", fmt.Errorf("generate pending link code: %w", err)
	}
	link := PendingLink{
		Code:           code,
		Provider:       provider,
		ProviderUserID: providerUserID,
		ReturnTo:       returnTo,
		ExpiresAt:      requestcontext.Now(ctx).Add(r.ttl),
	}
	if err := r.store.Put(ctx, link); err != nil {
		return "", fmt.Errorf("store pending link: %w", err)
	}
	return code, nil
}

// Consume redeems a code exactly once. Expiry is checked against wall-clock
// time at consumption, not creation; an expired code fails even if it was
// never consumed. A second Consume with the same code fails deterministically
// with PendingLinkNotFound.
func (r *Registry) Consume(ctx context.Context, code string) (PendingLink, error) {
	if code == "" {
		return PendingLink{}, dErrors.New(dErrors.CodePendingLinkNotFound, "missing pending link code")
	}
	link, err := r.store.Take(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return PendingLink{}, dErrors.Wrap(err, dErrors.CodePendingLinkNotFound, "pending link not found or already used")
		}
		return PendingLink{}, fmt.Errorf("take pending link: %w", err)
	}
	if requestcontext.Now(ctx).After(link.ExpiresAt) {
		return PendingLink{}, dErrors.New(dErrors.CodePendingLinkExpired, "pending link expired")
	}
	return link, nil
}
