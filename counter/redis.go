package counter

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const keyPrefix = "counter:"

var raiseScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local floor = tonumber(ARGV[1])
if floor > current then
	redis.call("SET", KEYS[1], floor)
	return floor
end
return current
`)

// RedisStore keeps counters as plain Redis integers. INCR is atomic and
// creates missing keys at zero.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Increment(ctx context.Context, name string) (int64, error) {
	v, err := s.client.Incr(ctx, keyPrefix+name).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "increment counter %s", name)
	}
	return v, nil
}

func (s *RedisStore) RaiseTo(ctx context.Context, name string, floor int64) (int64, error) {
	v, err := raiseScript.Run(ctx, s.client, []string{keyPrefix + name}, floor).Int64()
	if err != nil {
		return 0, errors.Wrapf(err, "raise counter %s", name)
	}
	return v, nil
}

func (s *RedisStore) Current(ctx context.Context, name string) (int64, error) {
	raw, err := s.client.Get(ctx, keyPrefix+name).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "read counter %s", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "counter %s holds %q", name, raw)
	}
	return v, nil
}
