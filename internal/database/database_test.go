package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.InitSchema())
	return db
}

func TestOpenAndHealth(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.Health(context.Background()))
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	// Running migrations again must be a no-op.
	require.NoError(t, db.InitSchema())

	version, err := NewMigrator(db).CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestSchemaHasDatasetsTable(t *testing.T) {
	db := openTestDB(t)

	var name string
	err := db.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' AND name='datasets'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "datasets", name)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx,
			"INSERT INTO datasets (id, tests, test_count) VALUES (?, ?, ?)",
			"abc", "[]", 0)
		require.NoError(t, execErr)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM datasets").Scan(&count))
	assert.Zero(t, count)
}

func TestWithTxCommits(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx,
			"INSERT INTO datasets (id, tests, test_count) VALUES (?, ?, ?)",
			"abc", "[]", 0)
		return execErr
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM datasets").Scan(&count))
	assert.Equal(t, 1, count)
}
