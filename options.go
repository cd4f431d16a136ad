package quotaledger

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis" or "sqlite"
	addrs    []string
	password string
	path     string

	defaultLimit Money
	resetWindow  time.Duration
	keyPrefix    string

	logger *zap.Logger
	clock  func() time.Time
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithSQLite stores ledgers in an embedded SQLite file. Use ":memory:"
// for a throwaway store in tests.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "sqlite"
		c.path = path
	})
}

// WithDefaultLimit sets the budget granted to a subject on first use.
// Default: $5.00.
func WithDefaultLimit(limit Money) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = limit
	})
}

// WithResetWindow sets the accounting window length. A subject's usage
// zeroes lazily once the window elapses. Default: 168h (one week).
func WithResetWindow(window time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.resetWindow = window
	})
}

// WithKeyPrefix namespaces all storage keys. Default: "quotaledger:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithLogger enables structured logging for ledger operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithClock overrides the wall-clock source (tests).
func WithClock(clock func() time.Time) Option {
	return optionFunc(func(c *clientConfig) {
		c.clock = clock
	})
}
