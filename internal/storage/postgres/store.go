package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hongminglow/invest-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for users, ledger records,
// settings and contacts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			phone TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			password_hash TEXT NOT NULL,
			ledger_version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS ledger_version BIGINT NOT NULL DEFAULT 0;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique_idx ON users (email);`,
		`CREATE INDEX IF NOT EXISTS users_phone_idx ON users (phone);`,
		`CREATE TABLE IF NOT EXISTS deposits (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount NUMERIC(24,2) NOT NULL CHECK (amount > 0),
			duration_days INTEGER NOT NULL CHECK (duration_days BETWEEN 1 AND 3650),
			interest_rate NUMERIC(10,4) NOT NULL,
			expected_return NUMERIC(24,2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			submitted_at TIMESTAMPTZ,
			decided_at TIMESTAMPTZ,
			screenshot_url TEXT,
			product_id TEXT,
			note TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS deposits_user_idx ON deposits (user_id);`,
		`CREATE INDEX IF NOT EXISTS deposits_status_submitted_idx ON deposits (status, submitted_at DESC);`,
		`CREATE TABLE IF NOT EXISTS withdrawals (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount NUMERIC(24,2) NOT NULL CHECK (amount > 0),
			note TEXT NOT NULL DEFAULT '',
			account_info TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			decided_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS withdrawals_user_idx ON withdrawals (user_id);`,
		`CREATE INDEX IF NOT EXISTS withdrawals_status_requested_idx ON withdrawals (status, requested_at DESC);`,
		`CREATE TABLE IF NOT EXISTS settings (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			interest_rate NUMERIC(10,4) NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			message TEXT NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrAlreadyExists
	}
	return err
}

// likePattern wraps q for a case-insensitive substring match, escaping
// LIKE metacharacters so user input is matched literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// where accumulates positional SQL conditions. Every "?" in a condition
// refers to that condition's single argument.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
