package merge

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"dojotrack/internal/identity"
	"dojotrack/internal/user"
	id "dojotrack/pkg/domain"
	dErrors "dojotrack/pkg/domain-errors"
)

type fixture struct {
	engine     *Engine
	identities *identity.InMemoryStore
	users      *user.InMemoryStore
}

func newFixture(t *testing.T, adminEmail string) *fixture {
	t.Helper()
	identities := identity.NewInMemoryStore()
	users := user.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		engine:     NewEngine(NopTx{}, identities, users, adminEmail, logger, nil),
		identities: identities,
		users:      users,
	}
}

func (f *fixture) seedUser(t *testing.T, email, displayName string, role user.Role, providers ...identity.Provider) id.UserID {
	t.Helper()
	userID := id.NewUserID()
	require.NoError(t, f.users.Create(context.Background(), user.User{
		ID:          userID,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
	}))
	for _, p := range providers {
		require.NoError(t, f.identities.Attach(context.Background(), identity.Identity{
			ID:             id.NewIdentityID(),
			UserID:         userID,
			Provider:       p,
			ProviderUserID: email + ":" + string(p),
		}))
	}
	return userID
}

func TestMerge_MovesIdentitiesAndDeletesSource(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	target := f.seedUser(t, "kenta@dojo.example", "Kenta", user.RoleUser, identity.ProviderGoogle)
	source := f.seedUser(t, "kenta.old@dojo.example", "Old Kenta", user.RoleUser, identity.ProviderFacebook)

	merged, err := f.engine.Merge(ctx, source, target, "")
	require.NoError(t, err)
	require.Equal(t, target, merged.UserID)
	require.Equal(t, "kenta@dojo.example", merged.Email)
	require.Equal(t, []identity.Provider{identity.ProviderFacebook, identity.ProviderGoogle}, merged.Providers)

	_, err = f.users.FindByID(ctx, source)
	require.ErrorIs(t, err, user.ErrNotFound)
	_, err = f.users.Settings(ctx, source)
	require.ErrorIs(t, err, user.ErrNotFound)

	remaining, err := f.identities.ListByUser(ctx, source)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestMerge_RoleUnion(t *testing.T) {
	tests := []struct {
		name       string
		sourceRole user.Role
		targetRole user.Role
		want       user.Role
	}{
		{"admin source wins", user.RoleAdmin, user.RoleUser, user.RoleAdmin},
		{"admin target kept", user.RoleUser, user.RoleAdmin, user.RoleAdmin},
		{"both plain users", user.RoleUser, user.RoleUser, user.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")
			target := f.seedUser(t, "t@dojo.example", "T", tt.targetRole, identity.ProviderGoogle)
			source := f.seedUser(t, "s@dojo.example", "S", tt.sourceRole, identity.ProviderFacebook)

			merged, err := f.engine.Merge(context.Background(), source, target, "")
			require.NoError(t, err)
			require.Equal(t, tt.want, merged.Role)
		})
	}
}

func TestMerge_AdminEmailForcesAdmin(t *testing.T) {
	tests := []struct {
		name          string
		targetEmail   string
		sourceEmail   string
		incomingEmail string
		want          user.Role
	}{
		{"target email matches", "Sensei@dojo.example", "other@dojo.example", "", user.RoleAdmin},
		{"source email matches", "other@dojo.example", "sensei@dojo.example", "", user.RoleAdmin},
		{"incoming email matches", "other@dojo.example", "old@dojo.example", "SENSEI@dojo.example", user.RoleAdmin},
		{"no email matches", "other@dojo.example", "old@dojo.example", "third@dojo.example", user.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "sensei@dojo.example")
			target := f.seedUser(t, tt.targetEmail, "T", user.RoleUser, identity.ProviderGoogle)
			source := f.seedUser(t, tt.sourceEmail, "S", user.RoleUser, identity.ProviderFacebook)

			merged, err := f.engine.Merge(context.Background(), source, target, tt.incomingEmail)
			require.NoError(t, err)
			require.Equal(t, tt.want, merged.Role)
		})
	}
}

func TestMerge_FillsEmptyProfileFromSource(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	target := f.seedUser(t, "t@dojo.example", "", user.RoleUser, identity.ProviderGoogle)
	source := f.seedUser(t, "s@dojo.example", "From Source", user.RoleUser, identity.ProviderFacebook)

	merged, err := f.engine.Merge(ctx, source, target, "")
	require.NoError(t, err)
	require.Equal(t, "From Source", merged.DisplayName)

	kept, err := f.users.FindByID(ctx, target)
	require.NoError(t, err)
	require.Equal(t, "From Source", kept.DisplayName)
}

func TestMerge_KeepsTargetProfileWhenSet(t *testing.T) {
	f := newFixture(t, "")

	target := f.seedUser(t, "t@dojo.example", "Target Name", user.RoleUser, identity.ProviderGoogle)
	source := f.seedUser(t, "s@dojo.example", "Source Name", user.RoleUser, identity.ProviderFacebook)

	merged, err := f.engine.Merge(context.Background(), source, target, "")
	require.NoError(t, err)
	require.Equal(t, "Target Name", merged.DisplayName)
}

func TestMerge_SourceAlreadyGone(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	target := f.seedUser(t, "t@dojo.example", "T", user.RoleAdmin, identity.ProviderGoogle)
	source := id.NewUserID()

	merged, err := f.engine.Merge(ctx, source, target, "")
	require.NoError(t, err)
	require.Equal(t, target, merged.UserID)
	require.Equal(t, user.RoleAdmin, merged.Role)
	require.Equal(t, []identity.Provider{identity.ProviderGoogle}, merged.Providers)
}

func TestMerge_SelfMergeRejected(t *testing.T) {
	f := newFixture(t, "")
	target := f.seedUser(t, "t@dojo.example", "T", user.RoleUser, identity.ProviderGoogle)

	_, err := f.engine.Merge(context.Background(), target, target, "")
	require.True(t, dErrors.HasCode(err, dErrors.CodeMergeFailed))
}

func TestMerge_MissingTargetFails(t *testing.T) {
	f := newFixture(t, "")
	source := f.seedUser(t, "s@dojo.example", "S", user.RoleUser, identity.ProviderFacebook)

	_, err := f.engine.Merge(context.Background(), source, id.NewUserID(), "")
	require.True(t, dErrors.HasCode(err, dErrors.CodeMergeFailed))
}
