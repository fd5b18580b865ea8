package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreAllowsUpToLimit(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := store.Allow(ctx, "ip:203.0.113.9", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, result.Allowed)
		require.Equal(t, 2-i, result.Remaining)
	}

	result, err := store.Allow(ctx, "ip:203.0.113.9", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	// Other keys are unaffected.
	other, err := store.Allow(ctx, "ip:198.51.100.7", 3, time.Minute)
	require.NoError(t, err)
	require.True(t, other.Allowed)
}

func TestInMemoryStoreWindowSlides(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Allow(ctx, "k", 1, 20*time.Millisecond)
	require.NoError(t, err)
	blocked, err := store.Allow(ctx, "k", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, blocked.Allowed)

	time.Sleep(30 * time.Millisecond)

	again, err := store.Allow(ctx, "k", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, again.Allowed)
}

func TestInMemoryStoreReset(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx, "k"))

	result, err := store.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestLimitByIPMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := LimitByIP(NewInMemoryStore(), 2, time.Minute, logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/google/login", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/google/login", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}
