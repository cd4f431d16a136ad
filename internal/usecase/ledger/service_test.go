package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quotaledger/internal/domain"
)

const testWindow = 7 * 24 * time.Hour

// memStore is an in-memory Store. Load and Save are individually
// thread-safe but perform no locking across the pair, so lost updates
// surface if the service fails to serialize read-modify-write cycles.
type memStore struct {
	mu      sync.Mutex
	data    map[string]domain.Quota
	loadErr error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]domain.Quota)}
}

func (m *memStore) Load(_ context.Context, subject string) (domain.Quota, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.Quota{}, false, m.loadErr
	}
	q, ok := m.data[subject]
	return q, ok, nil
}

func (m *memStore) Save(_ context.Context, subject string, q domain.Quota) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[subject] = q
	m.saves++
	return nil
}

func (m *memStore) get(subject string) domain.Quota {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[subject]
}

func (m *memStore) put(subject string, q domain.Quota) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[subject] = q
}

func newTestService(store *memStore, limit int64, now time.Time) *Service {
	return New(store, domain.MoneyFromMicrocents(limit), testWindow, zap.NewNop()).
		WithClock(func() time.Time { return now })
}

func TestSpend_CreatesLedgerLazily(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, 1000, now)

	if err := svc.Spend(context.Background(), "alice", domain.MoneyFromMicrocents(5)); err != nil {
		t.Fatalf("Spend: %v", err)
	}

	q := store.get("alice")
	if q.Used().Microcents() != 5 {
		t.Errorf("used = %d, want 5", q.Used().Microcents())
	}
	if q.Limit().Microcents() != 1000 {
		t.Errorf("limit = %d, want default 1000", q.Limit().Microcents())
	}
	if !q.ResetAt().Equal(now.Add(testWindow)) {
		t.Errorf("resetAt = %v, want now+window", q.ResetAt())
	}
}

func TestSpend_Additivity(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()
	svc := newTestService(store, 1000, now)
	ctx := context.Background()

	for _, c := range []int64{1, 2, 3, 10, 100} {
		if err := svc.Spend(ctx, "alice", domain.MoneyFromMicrocents(c)); err != nil {
			t.Fatalf("Spend(%d): %v", c, err)
		}
	}

	if got := store.get("alice").Used().Microcents(); got != 116 {
		t.Errorf("used = %d, want 116", got)
	}
}

func TestSpend_RecordsOverageWithoutError(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()
	store.put("alice", domain.RestoreQuota(
		domain.MoneyFromMicrocents(100),
		domain.MoneyFromMicrocents(100),
		now.Add(time.Hour),
	))
	svc := newTestService(store, 100, now)

	if err := svc.Spend(context.Background(), "alice", domain.MoneyFromMicrocents(1)); err != nil {
		t.Fatalf("Spend past the limit must not fail, got %v", err)
	}
	if got := store.get("alice").Used().Microcents(); got != 101 {
		t.Errorf("used = %d, want 101", got)
	}
}

func TestSpend_RejectsNegativeCost(t *testing.T) {
	svc := newTestService(newMemStore(), 100, time.Now().UTC())

	err := svc.Spend(context.Background(), "alice", domain.MoneyFromMicrocents(-1))
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSpend_PropagatesStoreError(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("connection refused")
	svc := newTestService(store, 100, time.Now().UTC())

	err := svc.Spend(context.Background(), "alice", domain.MoneyFromMicrocents(1))
	if !errors.Is(err, store.loadErr) {
		t.Fatalf("expected store error propagated, got %v", err)
	}
}

func TestEnsureNotDepleted_FreshLedgerPasses(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, 100, time.Now().UTC())

	if err := svc.EnsureNotDepleted(context.Background(), "alice"); err != nil {
		t.Fatalf("fresh ledger should pass, got %v", err)
	}
	// Lazy creation persisted the new ledger.
	if _, ok := store.data["alice"]; !ok {
		t.Error("expected lazily created ledger to be persisted")
	}
}

func TestEnsureNotDepleted_DepletedFails(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()
	store.put("alice", domain.RestoreQuota(
		domain.MoneyFromMicrocents(100),
		domain.MoneyFromMicrocents(100),
		now.Add(time.Hour),
	))
	svc := newTestService(store, 100, now)

	err := svc.EnsureNotDepleted(context.Background(), "alice")
	if !errors.Is(err, domain.ErrQuotaDepleted) {
		t.Fatalf("expected ErrQuotaDepleted, got %v", err)
	}

	var depleted *domain.QuotaDepletedError
	if !errors.As(err, &depleted) {
		t.Fatal("expected *QuotaDepletedError")
	}
	if depleted.Used.Microcents() != 100 || depleted.Limit.Microcents() != 100 {
		t.Errorf("diagnostics = used %d / limit %d, want 100/100",
			depleted.Used.Microcents(), depleted.Limit.Microcents())
	}
}

func TestEnsureNotDepleted_LazyResetGrantsFreshBudget(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()
	// Window elapsed one second ago, budget fully spent.
	store.put("alice", domain.RestoreQuota(
		domain.MoneyFromMicrocents(100),
		domain.MoneyFromMicrocents(100),
		now.Add(-time.Second),
	))
	svc := newTestService(store, 100, now)

	if err := svc.EnsureNotDepleted(context.Background(), "alice"); err != nil {
		t.Fatalf("reset should fire before the check, got %v", err)
	}

	q := store.get("alice")
	if !q.Used().IsZero() {
		t.Errorf("used after reset = %d, want 0", q.Used().Microcents())
	}
	if !q.ResetAt().Equal(now.Add(testWindow)) {
		t.Errorf("resetAt = %v, want now+window", q.ResetAt())
	}
}

func TestEnsureNotDepleted_NoOpIsIdempotent(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()
	q := domain.RestoreQuota(
		domain.MoneyFromMicrocents(100),
		domain.MoneyFromMicrocents(10),
		now.Add(time.Hour),
	)
	store.put("alice", q)
	svc := newTestService(store, 100, now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.EnsureNotDepleted(ctx, "alice"); err != nil {
			t.Fatalf("EnsureNotDepleted: %v", err)
		}
	}

	got := store.get("alice")
	if got.Used() != q.Used() || !got.ResetAt().Equal(q.ResetAt()) {
		t.Errorf("state changed by no-op checks: got %+v, want %+v", got, q)
	}
	if store.saves != 0 {
		t.Errorf("no-op checks performed %d saves, want 0", store.saves)
	}
}

func TestSpend_ResetAndSpendAreOneAtomicUnit(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()
	store.put("alice", domain.RestoreQuota(
		domain.MoneyFromMicrocents(100),
		domain.MoneyFromMicrocents(90),
		now.Add(-time.Minute),
	))
	svc := newTestService(store, 100, now)

	if err := svc.Spend(context.Background(), "alice", domain.MoneyFromMicrocents(7)); err != nil {
		t.Fatalf("Spend: %v", err)
	}

	q := store.get("alice")
	// The spend lands entirely in the fresh window.
	if got := q.Used().Microcents(); got != 7 {
		t.Errorf("used = %d, want 7 (old window's 90 discarded by reset)", got)
	}
	if store.saves != 1 {
		t.Errorf("reset+spend took %d saves, want 1 (single atomic write)", store.saves)
	}
}

func TestSpend_ConcurrentNoLostUpdates(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()
	svc := newTestService(store, 1_000_000, now)
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := svc.Spend(ctx, "alice", domain.MoneyFromMicrocents(1)); err != nil {
				t.Errorf("Spend: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.get("alice").Used().Microcents(); got != n {
		t.Errorf("used = %d, want %d (lost updates)", got, n)
	}
}

func TestSpend_ConcurrentDistinctSubjects(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, 1000, time.Now().UTC())
	ctx := context.Background()

	subjects := []string{"alice", "bob", "carol", "dave"}
	var wg sync.WaitGroup
	for _, sub := range subjects {
		sub := sub
		for j := 0; j < 10; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := svc.Spend(ctx, sub, domain.MoneyFromMicrocents(1)); err != nil {
					t.Errorf("Spend(%s): %v", sub, err)
				}
			}()
		}
	}
	wg.Wait()

	for _, sub := range subjects {
		if got := store.get(sub).Used().Microcents(); got != 10 {
			t.Errorf("used[%s] = %d, want 10", sub, got)
		}
	}
}

func TestSnapshot_AppliesLazyReset(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()
	store.put("alice", domain.RestoreQuota(
		domain.MoneyFromMicrocents(100),
		domain.MoneyFromMicrocents(50),
		now.Add(-time.Hour),
	))
	svc := newTestService(store, 100, now)

	q, err := svc.Snapshot(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !q.Used().IsZero() {
		t.Errorf("snapshot used = %d, want 0 after lazy reset", q.Used().Microcents())
	}
}
