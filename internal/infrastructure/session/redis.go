package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// RedisStore keeps operator sessions as JSON values with a key TTL.
type RedisStore struct {
	rdb        *redis.Client
	defaultTTL time.Duration
}

var _ ports.SessionStore = (*RedisStore)(nil)

// NewRedisStore accepts a redis:// URL or a bare host:port address.
func NewRedisStore(ctx context.Context, redisURL string, defaultTTL time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &RedisStore{rdb: rdb, defaultTTL: defaultTTL}, nil
}

// Get returns the live session of an operator.
func (r *RedisStore) Get(ctx context.Context, operatorID int64) (domain.Session, bool, error) {
	raw, err := r.rdb.Get(ctx, key(operatorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return s, true, nil
}

// Put stores the session for ttl.
func (r *RedisStore) Put(ctx context.Context, s domain.Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, key(s.OperatorID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Delete drops the operator session.
func (r *RedisStore) Delete(ctx context.Context, operatorID int64) error {
	if err := r.rdb.Del(ctx, key(operatorID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
