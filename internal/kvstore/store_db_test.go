package kvstore

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestPostgresStore_Get_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresStore(db)

	mock.ExpectQuery(`SELECT value FROM kv_entries WHERE key = \$1`).
		WithArgs("cache_banners").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(`{"data":[]}`))

	v, ok, err := s.Get(context.Background(), "cache_banners")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"data":[]}`, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Missing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresStore(db)

	mock.ExpectQuery(`SELECT value FROM kv_entries WHERE key = \$1`).
		WithArgs("auth_token").
		WillReturnError(pgx.ErrNoRows)

	v, ok, err := s.Get(context.Background(), "auth_token")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)
}

func TestPostgresStore_Get_Error(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresStore(db)

	boom := errors.New("conn reset")
	mock.ExpectQuery(`SELECT value FROM kv_entries WHERE key = \$1`).
		WithArgs("auth_token").
		WillReturnError(boom)

	_, _, err := s.Get(context.Background(), "auth_token")
	require.ErrorIs(t, err, boom)
}

func TestPostgresStore_Set_Upserts(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresStore(db)

	mock.ExpectExec(`INSERT INTO kv_entries \(key, value, updated_at\) VALUES \(\$1, \$2, now\(\)\) ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("shopping_cart", `{"items":[]}`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Set(context.Background(), "shopping_cart", `{"items":[]}`))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MultiRemove(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresStore(db)

	mock.ExpectExec(`DELETE FROM kv_entries WHERE key = ANY\(\$1\)`).
		WithArgs([]string{"auth_token", "user_data"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, s.MultiRemove(context.Background(), "auth_token", "user_data"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MultiRemove_Empty_NoQuery(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresStore(db)

	require.NoError(t, s.MultiRemove(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Remove(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresStore(db)

	mock.ExpectExec(`DELETE FROM kv_entries WHERE key = \$1`).
		WithArgs("offline_queue").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Remove(context.Background(), "offline_queue"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AllKeys(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewPostgresStore(db)

	mock.ExpectQuery(`SELECT key FROM kv_entries ORDER BY key`).
		WillReturnRows(pgxmock.NewRows([]string{"key"}).
			AddRow("auth_token").
			AddRow("cache_banners"))

	keys, err := s.AllKeys(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"auth_token", "cache_banners"}, keys)
}
