package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "nested", "lotofacil.db"),
		Profile: ProfileCache,
		Name:    "lotofacil",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_CreatesDirectoryAndPings(t *testing.T) {
	db := newTestDB(t)
	assert.FileExists(t, db.Path())
	assert.Equal(t, "lotofacil", db.Name())
	assert.NoError(t, db.QuickCheck(context.Background()))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('draws', 'predictions')`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMigrate_UnknownSchema(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "unknown"})
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, db.Migrate())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())

	testErr := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO draws (draw_id, draw_date, numbers) VALUES (1, '2024-01-07', '1, 2')`); err != nil {
			return err
		}
		return testErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, testErr)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM draws`).Scan(&count))
	assert.Zero(t, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTestDB(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("bad")
	})
	assert.ErrorContains(t, err, "panic in transaction")
}

func TestVacuumInto(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())

	target := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, db.VacuumInto(context.Background(), target))
	assert.FileExists(t, target)
}
