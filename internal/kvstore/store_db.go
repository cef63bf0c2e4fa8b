package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 3 * time.Second

const (
	qGet         = `SELECT value FROM kv_entries WHERE key = $1`
	qSet         = `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, now()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	qRemove      = `DELETE FROM kv_entries WHERE key = $1`
	qMultiRemove = `DELETE FROM kv_entries WHERE key = ANY($1)`
	qAllKeys     = `SELECT key FROM kv_entries ORDER BY key`
)

// PgxPool is the subset of *pgxpool.Pool the store needs. pgxmock.PgxPoolIface
// satisfies it as well.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// DB wraps the connection pool so tests can swap it.
type DB struct{ Pool PgxPool }

func Connect(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() { db.Pool.Close() }

// PostgresStore shares one kv_entries table, which lets several client
// processes on a kiosk or test rig reuse the same persisted state.
type PostgresStore struct {
	db *DB
}

func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := withTimeout(ctx, func(ctx context.Context) error {
		return s.db.Pool.QueryRow(ctx, qGet, key).Scan(&v)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	return withTimeout(ctx, func(ctx context.Context) error {
		_, err := s.db.Pool.Exec(ctx, qSet, key, value)
		return err
	})
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	return withTimeout(ctx, func(ctx context.Context) error {
		_, err := s.db.Pool.Exec(ctx, qRemove, key)
		return err
	})
}

func (s *PostgresStore) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return withTimeout(ctx, func(ctx context.Context) error {
		_, err := s.db.Pool.Exec(ctx, qMultiRemove, keys)
		return err
	})
}

func (s *PostgresStore) AllKeys(ctx context.Context) ([]string, error) {
	var out []string
	err := withTimeout(ctx, func(ctx context.Context) error {
		rows, err := s.db.Pool.Query(ctx, qAllKeys)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				return err
			}
			out = append(out, k)
		}
		return rows.Err()
	})
	return out, err
}

func withTimeout(parent context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, queryTimeout)
	defer cancel()
	return fn(ctx)
}
