package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errChallengeBackend = errors.New("challenge guard backend unavailable")

// challengeGuard makes 2FA-pending tokens single use. Each issued challenge
// id is registered with the pending TTL; consuming deletes the key, so a
// replayed token finds nothing and is rejected. The guard is optional: a nil
// guard accepts every consume, leaving only the token's own expiry.
type challengeGuard struct {
	redis  *redis.Client
	prefix string
}

func newChallengeGuard(redisClient *redis.Client, prefix string) *challengeGuard {
	if redisClient == nil {
		return nil
	}
	if prefix == "" {
		prefix = "acg"
	}
	return &challengeGuard{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (g *challengeGuard) key(challengeID string) string {
	return g.prefix + ":" + challengeID
}

// Register records a freshly issued challenge id.
func (g *challengeGuard) Register(ctx context.Context, challengeID string, ttl time.Duration) error {
	if g == nil {
		return nil
	}
	if err := g.redis.Set(ctx, g.key(challengeID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}

// Consume removes the challenge id and reports whether it was still live.
// Exactly one caller observes true per registered id.
func (g *challengeGuard) Consume(ctx context.Context, challengeID string) (bool, error) {
	if g == nil {
		return true, nil
	}
	n, err := g.redis.Del(ctx, g.key(challengeID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return n > 0, nil
}
