package database

import (
	"context"
	"testing"

	"barbeapp/internal/domain"
	"barbeapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	db := newTestDB(t)
	db.SetFilesURL("http://localhost:3333/files/")
	ctx := context.Background()

	avatar := &models.File{Name: "me.png", Path: "abc123.png"}
	require.NoError(t, db.CreateFile(ctx, avatar))
	assert.Equal(t, "http://localhost:3333/files/abc123.png", avatar.URL)

	provider := &models.User{Name: "Barber", Email: "barber@test", Provider: true, AvatarID: &avatar.ID}
	require.NoError(t, db.UpsertUser(ctx, provider))
	client := seedUser(t, db, "Client", "client@test", false)

	t.Run("GetUserByID", func(t *testing.T) {
		got, err := db.GetUserByID(ctx, provider.ID)
		require.NoError(t, err)
		assert.Equal(t, "Barber", got.Name)
		require.NotNil(t, got.Avatar)
		assert.Equal(t, avatar.URL, got.Avatar.URL)

		_, err = db.GetUserByID(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("GetProviderByID", func(t *testing.T) {
		got, err := db.GetProviderByID(ctx, provider.ID)
		require.NoError(t, err)
		assert.True(t, got.Provider)

		_, err = db.GetProviderByID(ctx, client.ID)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("UpsertUser updates by email", func(t *testing.T) {
		again := &models.User{Name: "Client Renamed", Email: "client@test", Provider: true}
		require.NoError(t, db.UpsertUser(ctx, again))
		assert.Equal(t, client.ID, again.ID)
		assert.Equal(t, "Client Renamed", again.Name)
		assert.True(t, again.Provider)
	})
}
