// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"catalog-console/internal/domain"
	"catalog-console/internal/domain/ports/repository"
)

var _ repository.BatchLocker = (*RedisLocker)(nil)

// RedisLocker serializes batch launches. A second launch while one runs
// fails with ErrBatchInProgress; in-flight work is never cancelled.
type RedisLocker struct {
	cli *redis.Client
	ttl time.Duration
}

func NewLocker(c *Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		// Long enough for 50 items x several categories at 2s pacing.
		ttl = 2 * time.Hour
	}
	return &RedisLocker{cli: c.cli, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrBatchInProgress
	}
	return token, nil
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{key}, token).Result()
	return err
}
