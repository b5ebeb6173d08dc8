package redis

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"

	"catalog-console/internal/domain/ports/repository"
)

var _ repository.FlagRepository = (*MarkerRepo)(nil)

// MarkerRepo is the durable flag store behind the batch in-progress marker.
// Values are boolean-as-string under a fixed key with no TTL so the marker
// survives a crash.
type MarkerRepo struct {
	client RedisClient
}

func NewMarkerRepo(client RedisClient) *MarkerRepo {
	return &MarkerRepo{client: client}
}

func (m *MarkerRepo) Set(ctx context.Context, key string) error {
	return m.client.Set(ctx, key, "true", 0)
}

func (m *MarkerRepo) Get(ctx context.Context, key string) (bool, error) {
	v, err := m.client.Get(ctx, key)
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b, _ := strconv.ParseBool(v)
	return b, nil
}

func (m *MarkerRepo) Clear(ctx context.Context, key string) error {
	return m.client.Del(ctx, key)
}
