package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/post-battles/internal/db/dbtest"
	users "github.com/AdamBeresnev/post-battles/internal/user"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateUserByProvider(t *testing.T) {
	database := dbtest.New(t)
	svc := NewUserService(database, []string{"Boss@Example.com"})
	ctx := context.Background()

	gothUser := goth.User{
		Provider: "discord",
		UserID:   "42",
		Email:    "fan@example.com",
		NickName: "fan",
	}
	created, err := svc.FindOrCreateUserByProvider(ctx, gothUser)
	require.NoError(t, err)
	assert.Equal(t, "fan", created.Username)
	assert.Equal(t, users.RoleUser, created.Role)
	assert.Nil(t, created.AvatarURL, "an empty avatar is stored as NULL")

	gothUser.NickName = "superfan"
	gothUser.AvatarURL = "https://cdn.example.com/a.png"
	found, err := svc.FindOrCreateUserByProvider(ctx, gothUser)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	stored, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "superfan", stored.Username)
	require.NotNil(t, stored.AvatarURL)
	assert.Equal(t, "https://cdn.example.com/a.png", *stored.AvatarURL)
}

func TestFindOrCreateUserByProvider_PromotesAdmins(t *testing.T) {
	database := dbtest.New(t)
	svc := NewUserService(database, []string{" Boss@Example.com "})
	ctx := context.Background()

	admin, err := svc.FindOrCreateUserByProvider(ctx, goth.User{Provider: "google", UserID: "1", Email: "boss@example.com", Name: "Boss"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	stored, err := svc.GetUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, stored.Role)
}

func TestEnsureGuestUser(t *testing.T) {
	database := dbtest.New(t)
	svc := NewUserService(database, nil)
	ctx := context.Background()

	first, err := svc.EnsureGuestUser(ctx)
	require.NoError(t, err)
	second, err := svc.EnsureGuestUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
