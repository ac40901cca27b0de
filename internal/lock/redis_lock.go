package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const retryInterval = 25 * time.Millisecond

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds keys with SET NX PX so that every API replica sees the
// same lock. The token guards against releasing a lock that already expired
// and was taken by someone else.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	prefix string
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		prefix: "lock:",
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			logger.Error("Failed to acquire redis lock", err, map[string]interface{}{
				"key": redisKey,
			})
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Warn("Timed out waiting for redis lock", map[string]interface{}{
				"key":  redisKey,
				"wait": l.wait.String(),
			})
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
	}
}

func (l *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
		logger.Error("Failed to release redis lock", err, map[string]interface{}{
			"key": redisKey,
		})
	}
}
