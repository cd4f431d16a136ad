package quotaledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quotaledger/internal/db"
	dbRedis "github.com/kailas-cloud/quotaledger/internal/db/redis"
	dbSqlite "github.com/kailas-cloud/quotaledger/internal/db/sqlite"
	"github.com/kailas-cloud/quotaledger/internal/domain"
	quotarepo "github.com/kailas-cloud/quotaledger/internal/repository/quota"
	ledgeruc "github.com/kailas-cloud/quotaledger/internal/usecase/ledger"
	usageuc "github.com/kailas-cloud/quotaledger/internal/usecase/usage"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the quotaledger SDK entry point. Safe for concurrent use.
type Client struct {
	store  db.Store
	ledger ledgeruc.Ledger
	usage  *usageuc.Service
}

// Open creates a Client and connects to the configured store.
func Open(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		defaultLimit: domain.MoneyFromMicrocents(500_000_000), // $5.00
		resetWindow:  168 * time.Hour,
		keyPrefix:    "quotaledger:",
		logger:       zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		// WithLogger(nil) means "disable", same as the default.
		cfg.logger = zap.NewNop()
	}

	if cfg.driver == "" {
		return nil, errors.New("quotaledger: store required (use WithValkey, WithRedis or WithSQLite)")
	}
	if cfg.resetWindow <= 0 {
		return nil, errors.New("quotaledger: reset window must be positive")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("quotaledger: store not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("quotaledger: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "sqlite":
		s, err := dbSqlite.NewStore(dbSqlite.Config{Path: cfg.path})
		if err != nil {
			return nil, fmt.Errorf("quotaledger: create sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("quotaledger: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	repo := quotarepo.New(store, cfg.keyPrefix)

	svc := ledgeruc.New(repo, cfg.defaultLimit, cfg.resetWindow, cfg.logger)
	if cfg.clock != nil {
		svc = svc.WithClock(cfg.clock)
	}

	var ledger ledgeruc.Ledger = ledgeruc.NewInstrumented(svc, cfg.logger)

	return &Client{
		store:  store,
		ledger: ledger,
		usage:  usageuc.New(ledger),
	}
}

// Spend records a cost against the subject's ledger. The cost may be a
// Money, an int/int64 microcent count, or a decimal dollar string.
// Overage is recorded, not rejected: the spend that crosses the limit
// succeeds, and EnsureNotDepleted fails from then on.
func (c *Client) Spend(ctx context.Context, subject string, cost any) error {
	m, err := domain.Wrap(cost)
	if err != nil {
		return err
	}
	return c.ledger.Spend(ctx, subject, m)
}

// EnsureNotDepleted fails with ErrQuotaDepleted once the subject's
// usage has reached its limit. A subject that has never spent passes.
func (c *Client) EnsureNotDepleted(ctx context.Context, subject string) error {
	return c.ledger.EnsureNotDepleted(ctx, subject)
}

// Usage reports the subject's current consumption. Reading applies the
// lazy window reset, so an elapsed window never shows stale usage.
func (c *Client) Usage(ctx context.Context, subject string) (Usage, error) {
	report, err := c.usage.GetReport(ctx, subject)
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		Subject:   report.Subject(),
		Limit:     report.Limit(),
		Used:      report.Used(),
		Remaining: report.Remaining(),
		Exhausted: report.IsExhausted(),
		ResetsAt:  report.ResetsAt(),
	}, nil
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}
