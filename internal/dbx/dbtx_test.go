package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	return db
}

func rows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	return n
}

func insert(ctx context.Context, tx DBTX, k string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES (?, 'x')`, k)
	return err
}

func TestWithTx_Commits(t *testing.T) {
	db := openDB(t)

	err := WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		if err := insert(ctx, tx, "session.token"); err != nil {
			return err
		}
		return insert(ctx, tx, "session.user")
	})
	require.NoError(t, err)
	require.Equal(t, 2, rows(t, db))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := openDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insert(ctx, tx, "session.token"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, rows(t, db))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := openDB(t)

	require.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insert(ctx, tx, "session.token"))
			panic("kaput")
		})
	})
	require.Zero(t, rows(t, db))
}

func TestWithTx_BeginFails(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.ErrorContains(t, err, "begin transaction")
	require.False(t, called)
}
