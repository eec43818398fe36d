package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := NewWithCmdable(mock)

	if err := client.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if mock.ttls["k"] != time.Minute {
		t.Fatalf("expected ttl to be forwarded, got %v", mock.ttls["k"])
	}
	got, err := client.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("unexpected get result %q err=%v", got, err)
	}
	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); !errors.Is(err, ErrNil) {
		t.Fatalf("expected ErrNil after delete, got %v", err)
	}
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := NewWithCmdable(newMockCmdable())

	ok, err := client.SetNX(ctx, "lock", "owner-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "lock", "owner-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, ok=%v err=%v", ok, err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil raw client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("mailer", "evt-1"); got != "mks:idempotency:mailer:evt-1" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("admin-login", "203.0.113.7"); got != "mks:rate:admin-login:203.0.113.7" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.LockKey("cron-worker:prod"); got != "mks:lock:cron-worker:prod" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.RateLimitKey("email-login", " "); got != "mks:rate:email-login" {
		t.Fatalf("blank parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:pw@localhost:6380/2",
		PoolSize:    7,
		DialTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 2 || opts.Password != "pw" {
		t.Fatalf("url not applied: %+v", opts)
	}
	if opts.PoolSize != 7 || opts.DialTimeout != 3*time.Second {
		t.Fatalf("config defaults not applied: pool=%d dial=%v", opts.PoolSize, opts.DialTimeout)
	}

	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
