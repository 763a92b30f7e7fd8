package revocation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "sa"

// RedisStore keeps revocation entries as Redis keys that expire together
// with the token they describe. SET NX provides the uniqueness constraint.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore binds a store to client. Keys are written as "<prefix>:rv:<jti>".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) key(jti string) string {
	return s.prefix + ":rv:" + jti
}

// IsBlacklisted reports whether the key for jti exists.
func (s *RedisStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyID
	}
	n, err := s.redis.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Blacklist records jti with a TTL reaching expiresAt.
func (s *RedisStore) Blacklist(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.Claim(ctx, jti, expiresAt)
	return err
}

// Claim records jti with SET NX; exactly one concurrent caller wins.
func (s *RedisStore) Claim(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if jti == "" {
		return false, ErrEmptyID
	}
	ttl := retention(expiresAt, s.now())
	created, err := s.redis.SetNX(ctx, s.key(jti), strconv.FormatInt(expiresAt.Unix(), 10), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return created, nil
}

// Ping checks connectivity to the backing Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
