// Package cache is the process-external store consulted by the auth core:
// it records denylisted access tokens, consumed single-use tokens, a short
// lived copy of the current user record, and the sliding counters behind the
// rate limiter gate.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/contacts-api/internal/domain"
)

var ErrUnavailable = errors.New("redis unavailable")

type Store struct {
	rdb      *redis.Client
	attempts int
	window   time.Duration
}

func New(ctx context.Context, addr, password string, db, limitAttempts int, limitWindow time.Duration) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Store{rdb: rdb, attempts: limitAttempts, window: limitWindow}, nil
}

func (s *Store) Close() error { return s.rdb.Close() }

// Deny marks an access token as invalid until its natural expiry.
func (s *Store) Deny(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, denyKey(jti), "1", ttl).Err()
}

func (s *Store) IsDenied(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, denyKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// ConsumeOnce records a single-use token id. The first call returns true;
// every later call within ttl returns false.
func (s *Store) ConsumeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := s.rdb.SetNX(ctx, usedKey(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ok, nil
}

func (s *Store) CacheUser(ctx context.Context, user *domain.User, ttl time.Duration) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, userKey(user.Email), data, ttl).Err()
}

// CachedUser returns the cached user record, or nil on a miss.
func (s *Store) CachedUser(ctx context.Context, email string) (*domain.User, error) {
	data, err := s.rdb.Get(ctx, userKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, nil
	}
	return &user, nil
}

func (s *Store) DropUser(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, userKey(email)).Err()
}

// Allow enforces a fixed window counter per client and endpoint. The guarded
// operation must not run when it returns false.
func (s *Store) Allow(ctx context.Context, clientKey, endpointKey string) (bool, error) {
	key := limitKey(endpointKey, clientKey)
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, s.window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return count <= int64(s.attempts), nil
}

func denyKey(jti string) string   { return "deny:" + jti }
func usedKey(jti string) string   { return "used:" + jti }
func userKey(email string) string { return "user:" + email }

func limitKey(endpoint, client string) string {
	return "rl:" + endpoint + ":" + client
}
