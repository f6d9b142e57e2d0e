package payments

import (
	"time"

	"github.com/HappyLearnKE/HappyLearn/internal/pkg/cache"
)

// TokenCache stores short-lived vendor OAuth access tokens. A nil cache on a
// client disables caching (tests, one-off CLI use).
type TokenCache interface {
	Get(key string) (string, error)
	Set(key string, value string, ttl time.Duration) error
}

// redisTokenCache backs TokenCache with the shared Redis client.
type redisTokenCache struct{}

// NewRedisTokenCache returns the Redis-backed token cache.
func NewRedisTokenCache() TokenCache {
	return redisTokenCache{}
}

func (redisTokenCache) Get(key string) (string, error) {
	return cache.Get(key)
}

func (redisTokenCache) Set(key string, value string, ttl time.Duration) error {
	return cache.Set(key, value, ttl)
}
