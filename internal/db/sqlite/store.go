// Package sqlite implements db.Store on an embedded SQLite database.
// Pure-Go driver (modernc.org/sqlite), no CGO. Suited to single-node
// deployments and local development where running Redis is overkill.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/quotaledger/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a SQLite store.
type Config struct {
	// Path is the database file path. ":memory:" gives a throwaway store.
	Path string
}

// Store implements db.Store on a local SQLite file.
type Store struct {
	sql *sql.DB
}

// NewStore opens (and if needed creates) the database file and applies
// the schema.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Single writer: SQLite serializes writes anyway, and one connection
	// avoids SQLITE_BUSY under concurrent HSet calls.
	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{sql: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `CREATE TABLE IF NOT EXISTS quota_hash (
		key   TEXT NOT NULL,
		field TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (key, field)
	)`
	if _, err := s.sql.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks database availability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.sql.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the database handle.
func (s *Store) Close() {
	_ = s.sql.Close()
}

// WaitForReady pings once; an embedded database is ready as soon as it opens.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	return nil
}

// HSet upserts hash fields in a single transaction.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO quota_hash (key, field, value) VALUES (?, ?, ?)
		ON CONFLICT (key, field) DO UPDATE SET value = excluded.value`
	for f, v := range fields {
		if _, err := tx.ExecContext(ctx, upsert, key, f, v); err != nil {
			return &db.Error{Op: db.OpHSet, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT field, value FROM quota_hash WHERE key = ?`, key)
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var f, v string
		if err := rows.Scan(&f, &v); err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: err}
		}
		m[f] = v
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// Del deletes a key and all its fields.
func (s *Store) Del(ctx context.Context, key string) error {
	if _, err := s.sql.ExecContext(ctx,
		`DELETE FROM quota_hash WHERE key = ?`, key); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Exists checks if a key has any fields.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.sql.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM quota_hash WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return n > 0, nil
}
