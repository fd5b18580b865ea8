//go:build integration

package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"dojotrack/internal/identity"
	"dojotrack/internal/user"
	id "dojotrack/pkg/domain"
	"dojotrack/pkg/testutil/containers"
)

type PostgresIdentityStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *identity.PostgresStore
	users *user.PostgresStore
}

func TestPostgresIdentityStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresIdentityStoreSuite))
}

func (s *PostgresIdentityStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = identity.NewPostgresStore(s.pg.DB)
	s.users = user.NewPostgresStore(s.pg.DB)
}

func (s *PostgresIdentityStoreSuite) SetupTest() {
	require.NoError(s.T(), s.pg.Truncate(context.Background()))
}

func (s *PostgresIdentityStoreSuite) seedUser(email string) id.UserID {
	userID := id.NewUserID()
	require.NoError(s.T(), s.users.Create(context.Background(), user.User{
		ID:    userID,
		Email: email,
		Role:  user.RoleUser,
	}))
	return userID
}

func (s *PostgresIdentityStoreSuite) attach(userID id.UserID, provider identity.Provider, providerUserID string) {
	require.NoError(s.T(), s.store.Attach(context.Background(), identity.Identity{
		ID:             id.NewIdentityID(),
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
	}))
}

func (s *PostgresIdentityStoreSuite) TestAttachAndFindOwner() {
	ctx := context.Background()
	userID := s.seedUser("a@dojo.example")
	s.attach(userID, identity.ProviderGoogle, "g-1")

	owner, err := s.store.FindOwner(ctx, identity.ProviderGoogle, "g-1")
	s.Require().NoError(err)
	s.Require().Equal(userID, owner)

	_, err = s.store.FindOwner(ctx, identity.ProviderGoogle, "missing")
	s.Require().ErrorIs(err, identity.ErrNotFound)
}

func (s *PostgresIdentityStoreSuite) TestAttachIsIdempotentForOwner() {
	ctx := context.Background()
	userID := s.seedUser("a@dojo.example")
	s.attach(userID, identity.ProviderGoogle, "g-1")

	// Same pair, same user: no-op.
	err := s.store.Attach(ctx, identity.Identity{
		ID:             id.NewIdentityID(),
		UserID:         userID,
		Provider:       identity.ProviderGoogle,
		ProviderUserID: "g-1",
	})
	s.Require().NoError(err)

	// Same pair, different user: collision.
	other := s.seedUser("b@dojo.example")
	err = s.store.Attach(ctx, identity.Identity{
		ID:             id.NewIdentityID(),
		UserID:         other,
		Provider:       identity.ProviderGoogle,
		ProviderUserID: "g-1",
	})
	s.Require().ErrorIs(err, identity.ErrAlreadyLinkedElsewhere)
}

func (s *PostgresIdentityStoreSuite) TestDetachLastIdentityGuard() {
	ctx := context.Background()
	userID := s.seedUser("a@dojo.example")
	s.attach(userID, identity.ProviderGoogle, "g-1")

	err := s.store.Detach(ctx, userID, identity.ProviderGoogle)
	s.Require().ErrorIs(err, identity.ErrLastIdentity)

	// The row survived the failed detach.
	owner, err := s.store.FindOwner(ctx, identity.ProviderGoogle, "g-1")
	s.Require().NoError(err)
	s.Require().Equal(userID, owner)

	s.attach(userID, identity.ProviderFacebook, "fb-1")
	s.Require().NoError(s.store.Detach(ctx, userID, identity.ProviderGoogle))

	providers, err := s.store.ListProviders(ctx, userID)
	s.Require().NoError(err)
	s.Require().Equal([]identity.Provider{identity.ProviderFacebook}, providers)
}

func (s *PostgresIdentityStoreSuite) TestReassignAllWithTargetWins() {
	ctx := context.Background()
	source := s.seedUser("source@dojo.example")
	target := s.seedUser("target@dojo.example")

	// google is unique to source; email exists on both sides.
	s.attach(source, identity.ProviderGoogle, "g-1")
	s.attach(source, identity.ProviderEmail, "source@dojo.example")
	s.attach(target, identity.ProviderEmail, "target@dojo.example")

	moved, err := s.store.ReassignAll(ctx, source, target)
	s.Require().NoError(err)
	s.Require().Equal(2, moved)

	remaining, err := s.store.ListByUser(ctx, source)
	s.Require().NoError(err)
	s.Require().Empty(remaining)

	providers, err := s.store.ListProviders(ctx, target)
	s.Require().NoError(err)
	s.Require().Equal([]identity.Provider{identity.ProviderEmail, identity.ProviderGoogle}, providers)

	// Second run has nothing left to move.
	moved, err = s.store.ReassignAll(ctx, source, target)
	s.Require().NoError(err)
	s.Require().Zero(moved)
}
