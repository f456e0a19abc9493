package kv

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNamespace prefixes every key written by thermae.
const RedisNamespace = "thermae"

// incrScript sets the expiry only when INCR created the key.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisStore implements Store on Redis. Keys are namespaced as
// thermae:{key}.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) namespaceKey(key string) string {
	return RedisNamespace + ":" + key
}

// Get retrieves a value by key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.client == nil {
		return "", false, ErrUnavailable
	}
	if len(key) > KeyMaxLength {
		return "", false, ErrKeyTooLong
	}

	val, err := s.client.Get(ctx, s.namespaceKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores a value; ttl <= 0 stores without expiration.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.client == nil {
		return ErrUnavailable
	}
	if err := validate(key, value); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.namespaceKey(key), value, ttl).Err()
}

// Remove deletes a key.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if s.client == nil {
		return ErrUnavailable
	}
	return s.client.Del(ctx, s.namespaceKey(key)).Err()
}

// Incr adds one to the integer at key.
func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.client == nil {
		return 0, ErrUnavailable
	}
	if err := validate(key, ""); err != nil {
		return 0, err
	}
	n, err := incrScript.Run(ctx, s.client, []string{s.namespaceKey(key)}, ttl.Milliseconds()).Int64()
	if err != nil && strings.Contains(err.Error(), "not an integer") {
		return 0, ErrNotInteger
	}
	return n, err
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrUnavailable
	}
	return s.client.Ping(ctx).Err()
}

var _ Store = (*RedisStore)(nil)
