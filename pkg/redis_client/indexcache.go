package redis_client

import (
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
)

// NewIndexCache returns the cache shared route indexes are kept in
func NewIndexCache(expiration time.Duration) *cache.Cache[string] {
	redisStore := redisstore.NewRedis(Client, store.WithExpiration(expiration))

	return cache.New[string](redisStore)
}
