package geo

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisGeo mirrors vehicle positions into a Redis GEO set so other services
// can run radius queries without talking to the dispatch API.
type RedisGeo struct {
	client *redis.Client
	key    string
}

func NewRedisGeo(addr, password, key string) *RedisGeo {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisGeo{client: c, key: key}
}

func (r *RedisGeo) Key() string { return r.key }

func (r *RedisGeo) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	return r.client.GeoAdd(ctx, key, loc).Err()
}

func (r *RedisGeo) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	return r.client.HSet(ctx, key, values).Err()
}

func (r *RedisGeo) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisGeo) Close() error { return r.client.Close() }

func MetaKey(vehicleID string) string { return "vehicle:meta:" + vehicleID }
