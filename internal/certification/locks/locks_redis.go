package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "attest/pkg/domain"
)

// releaseScript deletes the lock key only when the caller still owns it, so a
// lock that expired and was re-acquired by someone else survives a stale
// release.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker coordinates the certification lock across nodes.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func lockKey(certID id.CertificationID) string {
	return "attest:cert-lock:" + certID.String()
}

func (l *RedisLocker) Acquire(ctx context.Context, certID id.CertificationID, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(certID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire certification lock: %w", err)
	}
	if ok {
		return true, nil
	}
	// Re-entry: the same owner may take the lock again, refreshing the TTL.
	current, err := l.client.Get(ctx, lockKey(certID)).Result()
	if err == redis.Nil {
		ok, err := l.client.SetNX(ctx, lockKey(certID), owner, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("acquire certification lock: %w", err)
		}
		return ok, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect certification lock: %w", err)
	}
	if current == owner {
		if err := l.client.Set(ctx, lockKey(certID), owner, ttl).Err(); err != nil {
			return false, fmt.Errorf("refresh certification lock: %w", err)
		}
		return true, nil
	}
	return false, nil
}

func (l *RedisLocker) Release(ctx context.Context, certID id.CertificationID, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(certID)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release certification lock: %w", err)
	}
	return nil
}

func (l *RedisLocker) Held(ctx context.Context, certID id.CertificationID) (bool, error) {
	n, err := l.client.Exists(ctx, lockKey(certID)).Result()
	if err != nil {
		return false, fmt.Errorf("inspect certification lock: %w", err)
	}
	return n > 0, nil
}
