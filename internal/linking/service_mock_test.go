package linking_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dojotrack/internal/identity"
	"dojotrack/internal/linking"
	"dojotrack/internal/linking/mocks"
	"dojotrack/internal/merge"
	"dojotrack/internal/pendinglink"
	"dojotrack/internal/user"
	id "dojotrack/pkg/domain"
	dErrors "dojotrack/pkg/domain-errors"
)

func newMockedService(t *testing.T, verifier *mocks.MockVerifier, tokens *mocks.MockTokenIssuer) (*linking.Service, *identity.InMemoryStore, *user.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identities := identity.NewInMemoryStore()
	users := user.NewInMemoryStore()
	service := linking.NewService(linking.Config{
		Verifier:   verifier,
		Identities: identities,
		Users:      users,
		Pending:    pendinglink.NewRegistry(pendinglink.NewInMemoryStore(), 10*time.Minute),
		Merger:     merge.NewEngine(merge.NopTx{}, identities, users, "", logger, nil),
		Tokens:     tokens,
		Logger:     logger,
	})
	return service, identities, users
}

func TestLogin_VerifiesCredentialExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	tokens := mocks.NewMockTokenIssuer(ctrl)
	service, identities, users := newMockedService(t, verifier, tokens)

	userID := id.NewUserID()
	require.NoError(t, users.Create(context.Background(), user.User{ID: userID, Email: "kenta@dojo.example", Role: user.RoleUser}))
	require.NoError(t, identities.Attach(context.Background(), identity.Identity{
		ID:             id.NewIdentityID(),
		UserID:         userID,
		Provider:       identity.ProviderGoogle,
		ProviderUserID: "g-1",
	}))

	cred := linking.Credential{Token: "tok"}
	verifier.EXPECT().
		Verify(gomock.Any(), identity.ProviderGoogle, cred).
		Return(linking.ProviderIdentity{Provider: identity.ProviderGoogle, ProviderUserID: "g-1"}, nil).
		Times(1)
	tokens.EXPECT().
		GenerateSessionToken(userID, gomock.Any()).
		Return("session-token", nil)

	result, err := service.Login(context.Background(), identity.ProviderGoogle, cred, "")
	require.NoError(t, err)
	require.Equal(t, "session-token", result.Token)
}

func TestLogin_VerifierRejectionShortCircuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	tokens := mocks.NewMockTokenIssuer(ctrl)
	service, _, _ := newMockedService(t, verifier, tokens)

	verifier.EXPECT().
		Verify(gomock.Any(), identity.ProviderFacebook, gomock.Any()).
		Return(linking.ProviderIdentity{}, dErrors.New(dErrors.CodeInvalidToken, "provider rejected the token"))

	// No token is ever issued for a rejected credential.
	_, err := service.Login(context.Background(), identity.ProviderFacebook, linking.Credential{Token: "bad"}, "")
	require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidToken))
}
