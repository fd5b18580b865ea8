//go:build integration

package pendinglink_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dojotrack/internal/identity"
	"dojotrack/internal/pendinglink"
	dErrors "dojotrack/pkg/domain-errors"
	"dojotrack/pkg/platform/sentinel"
	"dojotrack/pkg/requestcontext"
	"dojotrack/pkg/testutil/containers"
)

func testStoreSingleUse(t *testing.T, store pendinglink.Store) {
	t.Helper()
	ctx := context.Background()
	link := pendinglink.PendingLink{
		Code:           "itest-code-1",
		Provider:       identity.ProviderGoogle,
		ProviderUserID: "g-1",
		ReturnTo:       "/home",
		ExpiresAt:      time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, store.Put(ctx, link))

	got, err := store.Take(ctx, link.Code)
	require.NoError(t, err)
	require.Equal(t, link.Provider, got.Provider)
	require.Equal(t, link.ProviderUserID, got.ProviderUserID)
	require.Equal(t, link.ReturnTo, got.ReturnTo)

	_, err = store.Take(ctx, link.Code)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := pendinglink.NewRedisStore(rc.Client)

	t.Run("single use", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(context.Background()))
		testStoreSingleUse(t, store)
	})

	t.Run("expired code still distinguishable", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(context.Background()))
		reg := pendinglink.NewRegistry(store, time.Second)

		created := time.Now()
		code, err := reg.Create(requestcontext.WithTime(context.Background(), created), identity.ProviderFacebook, "fb-1", "")
		require.NoError(t, err)

		// Past the logical TTL but inside the grace window the payload is
		// still present, so the registry can report Expired, not NotFound.
		late := requestcontext.WithTime(context.Background(), created.Add(2*time.Second))
		_, err = reg.Consume(late, code)
		require.True(t, dErrors.HasCode(err, dErrors.CodePendingLinkExpired))
	})
}

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := pendinglink.NewPostgresStore(pg.DB)

	t.Run("single use", func(t *testing.T) {
		require.NoError(t, pg.Truncate(context.Background()))
		testStoreSingleUse(t, store)
	})
}
