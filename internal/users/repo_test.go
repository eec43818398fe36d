package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mksagencies/storefront-backend/pkg/db/dbtest"
	"github.com/mksagencies/storefront-backend/pkg/db/models"
	"github.com/mksagencies/storefront-backend/pkg/enums"
)

func strPtr(s string) *string { return &s }

func TestCreateAndFindByEmailIsCaseInsensitive(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user := &models.User{Email: " Asha@Example.COM ", Name: strPtr("Asha"), Provider: enums.AuthProviderGoogle}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "asha@example.com", found.Email)
}

func TestFindByEmailSkipsGuests(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &models.User{Email: "asha@example.com", Provider: enums.AuthProviderGuest, IsGuest: true}))
	}
	_, err := repo.FindByEmail(ctx, "asha@example.com")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	account := &models.User{Email: "asha@example.com", Provider: enums.AuthProviderEmail}
	require.NoError(t, repo.Create(ctx, account))
	found, err := repo.FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	dup := &models.User{Email: "Asha@example.com", Provider: enums.AuthProviderGoogle}
	assert.Error(t, repo.Create(ctx, dup))
}

func TestFindByIDMissing(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestVerificationTokenLifecycle(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user := &models.User{Email: "guest@example.com", Provider: enums.AuthProviderGuest, IsGuest: true}
	require.NoError(t, repo.Create(ctx, user))

	expires := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, repo.SetVerificationToken(ctx, user.ID, "tok-123", expires))

	found, err := repo.FindByVerificationToken(ctx, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	require.NotNil(t, found.VerificationExpires)

	require.NoError(t, repo.ConsumeVerificationToken(ctx, user.ID))
	_, err = repo.FindByVerificationToken(ctx, "tok-123")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.EmailVerified)
	assert.Nil(t, reloaded.VerificationToken)
}

func TestUpdateMissingUser(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.Update(context.Background(), uuid.New(), map[string]any{"name": "x"})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
