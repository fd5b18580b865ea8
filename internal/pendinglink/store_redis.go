package pendinglink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dojotrack/internal/identity"
	"dojotrack/pkg/platform/sentinel"
)

// expiryGrace keeps the key alive past its logical expiry so that a consume
// attempt shortly after expiry reports PendingLinkExpired instead of the
// indistinguishable not-found. After the grace the key disappears on its own.
const expiryGrace = 5 * time.Minute

const keyPrefix = "pendinglink:"

// RedisStore persists pending links as JSON values with a server-side TTL.
// GETDEL makes Take atomic without a transaction.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisLink struct {
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	ReturnTo       string    `json:"return_to,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (s *RedisStore) Put(ctx context.Context, link PendingLink) error {
	payload, err := json.Marshal(redisLink{
		Provider:       string(link.Provider),
		ProviderUserID: link.ProviderUserID,
		ReturnTo:       link.ReturnTo,
		ExpiresAt:      link.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal pending link: %w", err)
	}
	ttl := time.Until(link.ExpiresAt) + expiryGrace
	if err := s.client.Set(ctx, keyPrefix+link.Code, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set pending link: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, code string) (PendingLink, error) {
	raw, err := s.client.GetDel(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return PendingLink{}, sentinel.ErrNotFound
		}
		return PendingLink{}, fmt.Errorf("getdel pending link: %w", err)
	}
	var stored redisLink
	if err := json.Unmarshal(raw, &stored); err != nil {
		return PendingLink{}, fmt.Errorf("unmarshal pending link: %w", err)
	}
	return PendingLink{
		Code:           code,
		Provider:       identity.Provider(stored.Provider),
		ProviderUserID: stored.ProviderUserID,
		ReturnTo:       stored.ReturnTo,
		ExpiresAt:      stored.ExpiresAt,
	}, nil
}

var _ Store = (*RedisStore)(nil)
