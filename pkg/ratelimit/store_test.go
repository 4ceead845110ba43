package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newMiniRedis creates a redis.Client backed by miniredis for testing.
func newMiniRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	t.Cleanup(func() {
		client.Close()
		mini.Close()
	})
	return client, mini
}

func TestRedisStore_RoundTrip(t *testing.T) {
	client, mini := newMiniRedis(t)
	store := NewRedisStore(client, "test")
	ctx := context.Background()

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("Load() on empty store = ok %v, err %v; want false, nil", ok, err)
	}

	want := State{
		ResetAt:    time.Now().Add(10 * time.Second).Truncate(time.Second),
		LastUpdate: time.Now().Truncate(time.Millisecond),
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if !got.ResetAt.Equal(want.ResetAt) {
		t.Errorf("ResetAt = %v, want %v", got.ResetAt, want.ResetAt)
	}
	if !got.LastUpdate.Equal(want.LastUpdate) {
		t.Errorf("LastUpdate = %v, want %v", got.LastUpdate, want.LastUpdate)
	}

	if !mini.Exists("test:" + RedisKeyResetTimestamp) {
		t.Error("reset key not written under prefix")
	}
	if ttl := mini.TTL("test:" + RedisKeyResetTimestamp); ttl <= time.Minute {
		t.Errorf("TTL = %v, want > 1m", ttl)
	}
}

func TestRedisStore_Expires(t *testing.T) {
	client, mini := newMiniRedis(t)
	store := NewRedisStore(client, "")
	ctx := context.Background()

	if err := store.Save(ctx, State{ResetAt: time.Now(), LastUpdate: time.Now()}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	mini.FastForward(2 * time.Minute)

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Errorf("Load() after expiry = ok %v, err %v; want false, nil", ok, err)
	}
}

func TestTracker_SharedThroughRedis(t *testing.T) {
	client, _ := newMiniRedis(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	writer := newTestTracker(now)
	writer.store = NewRedisStore(client, "shared")
	reader := newTestTracker(now)
	reader.store = NewRedisStore(client, "shared")

	if err := writer.store.Save(ctx, State{ResetAt: now.Add(3 * time.Second), LastUpdate: now}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	d, err := reader.WaitDuration(ctx, DefaultWait)
	if err != nil {
		t.Fatalf("WaitDuration() error: %v", err)
	}
	if d != 3*time.Second {
		t.Errorf("WaitDuration() = %v, want 3s", d)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := s.Load(ctx); ok {
		t.Error("empty MemoryStore reported state")
	}
	want := State{ResetAt: time.Unix(10, 0)}
	_ = s.Save(ctx, want)
	if got, ok, _ := s.Load(ctx); !ok || !got.ResetAt.Equal(want.ResetAt) {
		t.Errorf("Load() = %+v, %v", got, ok)
	}
}
