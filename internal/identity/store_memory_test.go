package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "dojotrack/pkg/domain"
)

func attach(t *testing.T, s *InMemoryStore, userID id.UserID, provider Provider, providerUserID string) {
	t.Helper()
	require.NoError(t, s.Attach(context.Background(), Identity{
		ID:             id.NewIdentityID(),
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
	}))
}

func TestAttachAndFindOwner(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	alice := id.NewUserID()
	bob := id.NewUserID()

	attach(t, store, alice, ProviderGoogle, "g-1")

	t.Run("owner is found by pair", func(t *testing.T) {
		owner, err := store.FindOwner(ctx, ProviderGoogle, "g-1")
		require.NoError(t, err)
		assert.Equal(t, alice, owner)
	})

	t.Run("unknown pair returns not found", func(t *testing.T) {
		_, err := store.FindOwner(ctx, ProviderFacebook, "f-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("re-attaching own pair is a no-op", func(t *testing.T) {
		require.NoError(t, store.Attach(ctx, Identity{
			ID:             id.NewIdentityID(),
			UserID:         alice,
			Provider:       ProviderGoogle,
			ProviderUserID: "g-1",
		}))
		rows, err := store.ListByUser(ctx, alice)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("attaching someone else's pair fails", func(t *testing.T) {
		err := store.Attach(ctx, Identity{
			ID:             id.NewIdentityID(),
			UserID:         bob,
			Provider:       ProviderGoogle,
			ProviderUserID: "g-1",
		})
		assert.ErrorIs(t, err, ErrAlreadyLinkedElsewhere)
	})
}

func TestDetach_LastIdentityGuard(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	alice := id.NewUserID()

	attach(t, store, alice, ProviderGoogle, "g-1")

	t.Run("sole identity cannot be detached", func(t *testing.T) {
		err := store.Detach(ctx, alice, ProviderGoogle)
		assert.ErrorIs(t, err, ErrLastIdentity)

		// the row must be left intact
		rows, err := store.ListByUser(ctx, alice)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("detach succeeds once a second identity exists", func(t *testing.T) {
		attach(t, store, alice, ProviderFacebook, "f-1")
		require.NoError(t, store.Detach(ctx, alice, ProviderGoogle))

		providers, err := store.ListProviders(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, []Provider{ProviderFacebook}, providers)
	})

	t.Run("missing provider returns not found", func(t *testing.T) {
		err := store.Detach(ctx, alice, ProviderGoogle)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReassignAll(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	source := id.NewUserID()
	target := id.NewUserID()

	attach(t, store, source, ProviderGoogle, "g-1")
	attach(t, store, source, ProviderFacebook, "f-1")
	attach(t, store, target, ProviderFacebook, "f-1-target")

	moved, err := store.ReassignAll(ctx, source, target)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	providers, err := store.ListProviders(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, []Provider{ProviderFacebook, ProviderFacebook, ProviderGoogle}, providers)

	remaining, err := store.ListByUser(ctx, source)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestReassignAll_SecondRunMovesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	source := id.NewUserID()
	target := id.NewUserID()

	attach(t, store, source, ProviderGoogle, "shared")

	moved, err := store.ReassignAll(ctx, source, target)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	owner, err := store.FindOwner(ctx, ProviderGoogle, "shared")
	require.NoError(t, err)
	assert.Equal(t, target, owner)

	// a second reassign from the same source finds no rows: already merged
	moved, err = store.ReassignAll(ctx, source, target)
	require.NoError(t, err)
	assert.Zero(t, moved)
}
