package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
)

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.Context(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates database file and directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

		db, err := Open(t.Context(), config.DatabaseConfig{Path: dbPath, WALMode: true, BusyTimeout: 5})
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck // Test cleanup

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
		assert.Equal(t, dbPath, db.Path())
	})

	t.Run("single writer connection", func(t *testing.T) {
		db := openTestDB(t)
		assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.HealthCheck(t.Context()))
}

func TestClose(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Close())

	db.DB = nil
	assert.NoError(t, db.Close())
}

func TestBeginTx(t *testing.T) {
	db := openTestDB(t)
	ctx := t.Context()

	_, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")
	require.NoError(t, err)

	t.Run("commit", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx, "INSERT INTO t (name) VALUES ('a')")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("rollback", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx, "INSERT INTO t (name) VALUES ('b')")
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
		assert.Equal(t, 1, n)
	})
}
