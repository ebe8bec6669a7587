package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func TestOpen_AppliesMigrations(t *testing.T) {
	sqlDB := openTestDB(t)

	for _, table := range []string{"songs", "directories", "playlists", "playlist_songs", "play_history", "settings"} {
		var name string
		err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestOpen_Twice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
}

func TestWithTx_Success(t *testing.T) {
	sqlDB := openTestDB(t)

	err := WithTx(context.Background(), sqlDB, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, "theme", `"dark"`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTx_Rollback(t *testing.T) {
	sqlDB := openTestDB(t)
	testErr := errors.New("test error")

	err := WithTx(context.Background(), sqlDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, "theme", `"dark"`); err != nil {
			return err
		}
		return testErr
	})
	assert.ErrorIs(t, err, testErr)

	var count int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&count))
	assert.Equal(t, 0, count, "insert should be rolled back")
}

func TestForeignKeysEnabled(t *testing.T) {
	sqlDB := openTestDB(t)

	_, err := sqlDB.Exec(`INSERT INTO playlist_songs (playlist_id, position, path) VALUES (42, 0, '/a.mp3')`)
	assert.Error(t, err, "orphan playlist row should violate the foreign key")
}

func TestNullHelpers(t *testing.T) {
	assert.Equal(t, "", NullStringValue(sql.NullString{}))
	assert.Equal(t, "x", NullStringValue(sql.NullString{String: "x", Valid: true}))
	assert.False(t, NullString("").Valid)
	assert.True(t, NullString("cover.jpg").Valid)
}
