package sessionauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("engine-secret-engine-secret-engine-secret")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testSecret
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, clock *testClock, opts ...func(*Builder)) *Engine {
	t.Helper()

	b := New().WithConfig(cfg).WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

var testVerifier = CredentialVerifierFunc(func(_ context.Context, username, password string) (Identity, error) {
	switch {
	case username == "alice" && password == "correct-password-123":
		return Identity{Subject: "user-alice", Attributes: map[string]string{"role": "admin"}}, nil
	case username == "broken":
		return Identity{}, errors.New("directory offline")
	default:
		return Identity{}, ErrInvalidCredentials
	}
})
