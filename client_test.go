package quotaledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestOpen_NoStore(t *testing.T) {
	_, err := Open()
	if err == nil {
		t.Fatal("expected error when no store configured")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "postgres", addrs: []string{"localhost:5432"}}
	_, err := createStore(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpen_BadResetWindow(t *testing.T) {
	_, err := Open(WithSQLite(":memory:"), WithResetWindow(-time.Hour))
	if err == nil {
		t.Fatal("expected error for negative reset window")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" {
		t.Errorf("driver = %q, want valkey", cfg.driver)
	}
	if len(cfg.addrs) != 1 || cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addrs = %v, want [localhost:6379]", cfg.addrs)
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q, want secret", cfg.password)
	}

	WithRedis("localhost:6380", "").apply(cfg)
	if cfg.driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg.driver)
	}

	WithSQLite("/tmp/quota.db").apply(cfg)
	if cfg.driver != "sqlite" || cfg.path != "/tmp/quota.db" {
		t.Errorf("driver/path = %q/%q, want sqlite//tmp/quota.db", cfg.driver, cfg.path)
	}

	WithKeyPrefix("app:").apply(cfg)
	if cfg.keyPrefix != "app:" {
		t.Errorf("key prefix = %q, want app:", cfg.keyPrefix)
	}
}

// manualClock is a settable wall clock for driving window resets.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := Open(append([]Option{WithSQLite(":memory:")}, opts...)...)
	if err != nil {
		t.Fatalf("open client: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestClient_SpendAndUsage(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	if err := c.Spend(ctx, "alice", "$1.25"); err != nil {
		t.Fatalf("spend: %v", err)
	}
	if err := c.Spend(ctx, "alice", 25_000_000); err != nil { // $0.25 in microcents
		t.Fatalf("spend: %v", err)
	}

	u, err := c.Usage(ctx, "alice")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Used.Microcents() != 150_000_000 {
		t.Errorf("used = %d microcents, want 150000000", u.Used.Microcents())
	}
	if u.Limit.Microcents() != 500_000_000 {
		t.Errorf("limit = %d microcents, want 500000000 (default)", u.Limit.Microcents())
	}
	if u.Exhausted {
		t.Error("exhausted = true, want false")
	}
}

func TestClient_InvalidCost(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	for _, cost := range []any{"nope", "-1.00", -5, 3.14} {
		err := c.Spend(ctx, "alice", cost)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("cost %v: err = %v, want ErrInvalidAmount", cost, err)
		}
	}
}

func TestClient_DepletionLifecycle(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	limit, _ := ParseMoney("$2.00")
	c := openTestClient(t,
		WithDefaultLimit(limit),
		WithResetWindow(24*time.Hour),
		WithClock(clock.Now),
	)
	ctx := context.Background()

	// Fresh subject passes.
	if err := c.EnsureNotDepleted(ctx, "alice"); err != nil {
		t.Fatalf("fresh check: %v", err)
	}

	// The spend that crosses the limit still succeeds.
	if err := c.Spend(ctx, "alice", "$2.50"); err != nil {
		t.Fatalf("overage spend: %v", err)
	}

	err := c.EnsureNotDepleted(ctx, "alice")
	if !errors.Is(err, ErrQuotaDepleted) {
		t.Fatalf("err = %v, want ErrQuotaDepleted", err)
	}
	var depleted *QuotaDepletedError
	if !errors.As(err, &depleted) {
		t.Fatal("expected QuotaDepletedError diagnostics")
	}
	if depleted.Used.Microcents() != 250_000_000 {
		t.Errorf("used = %d microcents, want 250000000", depleted.Used.Microcents())
	}

	// Window elapses: usage zeroes lazily and checks pass again.
	clock.Advance(25 * time.Hour)
	if err := c.EnsureNotDepleted(ctx, "alice"); err != nil {
		t.Fatalf("post-reset check: %v", err)
	}
	u, err := c.Usage(ctx, "alice")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if !u.Used.IsZero() {
		t.Errorf("used after reset = %s, want $0.00", u.Used)
	}
}

func TestClient_SubjectsIsolated(t *testing.T) {
	limit, _ := ParseMoney("$1.00")
	c := openTestClient(t, WithDefaultLimit(limit))
	ctx := context.Background()

	if err := c.Spend(ctx, "alice", "$1.00"); err != nil {
		t.Fatalf("spend: %v", err)
	}
	if err := c.EnsureNotDepleted(ctx, "alice"); !errors.Is(err, ErrQuotaDepleted) {
		t.Fatalf("alice: err = %v, want ErrQuotaDepleted", err)
	}
	if err := c.EnsureNotDepleted(ctx, "bob"); err != nil {
		t.Fatalf("bob should be unaffected: %v", err)
	}
}

func TestClient_NilLogger(t *testing.T) {
	c := openTestClient(t, WithLogger(nil))
	ctx := context.Background()

	if err := c.Spend(ctx, "alice", "$0.01"); err != nil {
		t.Fatalf("spend with nil logger: %v", err)
	}
	if err := c.EnsureNotDepleted(ctx, "alice"); err != nil {
		t.Fatalf("check with nil logger: %v", err)
	}
}

func TestClient_Ping(t *testing.T) {
	c := openTestClient(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
