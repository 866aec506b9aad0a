// README: Redis read-through cache in front of the user directory.
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ridewave/internal/types"
)

const (
	userKeyPrefix = "users:%s"
	// cacheTTL bounds how long a role or push-token change can go unseen.
	cacheTTL = 5 * time.Minute
)

type CachedDirectory struct {
	next  Directory
	redis *redis.Client
	log   zerolog.Logger
}

func NewCachedDirectory(next Directory, rdb *redis.Client, log zerolog.Logger) *CachedDirectory {
	return &CachedDirectory{next: next, redis: rdb, log: log.With().Str("component", "user_cache").Logger()}
}

// Lookup serves from Redis when possible. Redis failures fall through to
// the backing directory; they never fail the lookup on their own.
func (c *CachedDirectory) Lookup(ctx context.Context, id types.ID) (User, error) {
	key := userKey(id)
	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u User
		if jerr := json.Unmarshal(raw, &u); jerr == nil {
			return u, nil
		}
		c.log.Warn().Str("user_id", string(id)).Msg("user_cache_corrupt")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("user_id", string(id)).Msg("user_cache_get_fail")
	}

	u, err := c.next.Lookup(ctx, id)
	if err != nil {
		return User{}, err
	}
	if data, jerr := json.Marshal(u); jerr == nil {
		if serr := c.redis.Set(ctx, key, data, cacheTTL).Err(); serr != nil {
			c.log.Warn().Err(serr).Str("user_id", string(id)).Msg("user_cache_set_fail")
		}
	}
	return u, nil
}

// Invalidate drops the cached entry for id.
func (c *CachedDirectory) Invalidate(ctx context.Context, id types.ID) error {
	return c.redis.Del(ctx, userKey(id)).Err()
}

func userKey(id types.ID) string {
	return fmt.Sprintf(userKeyPrefix, string(id))
}
