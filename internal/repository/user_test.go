package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auth247/pin-server-go/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Connect(context.Background(), url)
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			disabled_at TIMESTAMPTZ
		)
	`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM users WHERE id LIKE 'test-%'`)
	require.NoError(t, err)

	return db
}

func TestUserRepository_FindByID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.Exec(`
		INSERT INTO users (id, email, display_name, disabled_at) VALUES
			('test-active', 'ada@example.com', 'Ada', NULL),
			('test-disabled', 'bob@example.com', 'Bob', NOW())
	`)
	require.NoError(t, err)

	repo := NewUserRepository(db.DB)
	ctx := context.Background()

	t.Run("finds active user", func(t *testing.T) {
		user, err := repo.FindByID(ctx, "test-active")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, "Ada", user.DisplayName)
	})

	t.Run("returns nil for disabled user", func(t *testing.T) {
		user, err := repo.FindByID(ctx, "test-disabled")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("returns nil for unknown user", func(t *testing.T) {
		user, err := repo.FindByID(ctx, "test-missing")
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}
