package helpers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the shared redis client used for session records and
// rate limiting.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// SessionKey is the redis key holding the active session record for an account.
func SessionKey(accountID string) string {
	return "account:session:" + accountID
}

// RedisSessionStore keeps one session record per account as a redis hash
// under SessionKey. The auth middleware treats the hash's existence as
// session liveness, so Revoke logs the account out everywhere at once.
type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func (s *RedisSessionStore) Save(ctx context.Context, accountID string, fields map[string]any, ttl time.Duration) error {
	key := SessionKey(accountID)
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) SetField(ctx context.Context, accountID, field, value string) error {
	return s.rdb.HSet(ctx, SessionKey(accountID), field, value).Err()
}

func (s *RedisSessionStore) Revoke(ctx context.Context, accountID string) error {
	return s.rdb.Del(ctx, SessionKey(accountID)).Err()
}
