package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key suffixes for rate-limit state storage.
const (
	RedisKeyResetTimestamp = "rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "rate_limit:last_update"
)

// DefaultRedisPrefix namespaces the Redis keys.
const DefaultRedisPrefix = "commerce"

// Store persists the rate-limit state.
type Store interface {
	// Load returns the stored state; ok is false when nothing is stored yet.
	Load(ctx context.Context) (state State, ok bool, err error)
	// Save replaces the stored state.
	Save(ctx context.Context, state State) error
}

// MemoryStore keeps the state in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	ok    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.ok, nil
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.ok = true
	return nil
}

// RedisStore shares the state through Redis.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(redisClient *redis.Client, prefix string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) key(suffix string) string {
	return s.prefix + ":" + suffix
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (State, bool, error) {
	resetTimestamp, err := s.redis.Get(ctx, s.key(RedisKeyResetTimestamp)).Int64()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("get reset timestamp: %w", err)
	}

	state := State{ResetAt: time.Unix(resetTimestamp, 0)}

	lastUpdate, err := s.redis.Get(ctx, s.key(RedisKeyLastUpdate)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return State{}, false, fmt.Errorf("get last update: %w", err)
	}
	if len(lastUpdate) > 0 {
		if err := json.Unmarshal(lastUpdate, &state.LastUpdate); err != nil {
			return State{}, false, fmt.Errorf("unmarshal last update: %w", err)
		}
	}

	return state, true, nil
}

// Save implements Store. Keys expire a minute after the reset has passed.
func (s *RedisStore) Save(ctx context.Context, state State) error {
	ttl := time.Until(state.ResetAt) + time.Minute
	if ttl < time.Minute {
		ttl = time.Minute
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, s.key(RedisKeyResetTimestamp), state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, s.key(RedisKeyLastUpdate), lastUpdateJSON, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}
