package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "ans/pkg/domain-errors"
)

// RedisGuard is a Guard backed by Redis so multiple gateway instances share
// one used-signature set. Keys carry the guard TTL and expire on their own.
type RedisGuard struct {
	client *redis.Client
	prefix string
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client, prefix: "ans:replay:"}
}

func (g *RedisGuard) CheckAndStore(ctx context.Context, sig string, ttl time.Duration) error {
	// SET NX is the atomic test-and-set; a lost race means someone else
	// accepted the same signature first, which is exactly a replay.
	ok, err := g.client.SetNX(ctx, g.key(sig), 1, ttl).Result()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "replay guard unavailable")
	}
	if !ok {
		return ErrReplay
	}
	return nil
}

// key hashes the signature so arbitrarily long adversarial input cannot
// inflate Redis key sizes.
func (g *RedisGuard) key(sig string) string {
	sum := sha256.Sum256([]byte(sig))
	return g.prefix + hex.EncodeToString(sum[:])
}
