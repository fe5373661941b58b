package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/gomarket-cart/internal/port"
)

const (
	valueField   = "value"
	versionField = "version"
)

var setIfNewerScript = redis.NewScript(`
local key = KEYS[1]
local version = tonumber(ARGV[1])

local current = tonumber(redis.call('HGET', key, 'version')) or 0
if current >= version then
	return 0
end

redis.call('HSET', key, 'value', ARGV[2], 'version', ARGV[1])
return 1
`)

// RedisAdapter keeps each key as a hash holding the value and its version.
type RedisAdapter struct {
	client *redis.Client
}

var _ port.KeyValueRepository = (*RedisAdapter)(nil)

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Get(ctx context.Context, key string) (port.Entry, bool, error) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return port.Entry{}, false, fmt.Errorf("redis hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return port.Entry{}, false, nil
	}

	version, err := strconv.ParseInt(fields[versionField], 10, 64)
	if err != nil {
		return port.Entry{}, false, fmt.Errorf("%w: version of %s: %v", port.ErrCorruptEntry, key, err)
	}
	return port.Entry{Value: fields[valueField], Version: version}, true, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key string, entry port.Entry) (bool, error) {
	result, err := setIfNewerScript.Run(ctx, r.client, []string{key}, entry.Version, entry.Value).Int()
	if err != nil {
		return false, fmt.Errorf("redis set %s: %w", key, err)
	}

	return result == 1, nil
}

func (r *RedisAdapter) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
