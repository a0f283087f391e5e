package auth

import (
	"context"
	"testing"
	"time"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/models"
	"geopickup/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *repositories.MemoryUserRepository) {
	t.Helper()
	hashed, err := HashPassword("s3cret!pass")
	require.NoError(t, err)
	users := repositories.NewMemoryUserRepository(models.User{
		ID:           "u1",
		Email:        "parent@example.com",
		Password:     hashed,
		Name:         "Pat",
		Role:         models.RoleParent,
		TokenVersion: 1,
	})
	return NewService(users, NewTokenIssuer("test-secret", time.Hour)), users
}

func TestLoginAndVerify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Login(ctx, "parent@example.com", "s3cret!pass")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NotEmpty(t, token)

	claims, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.HasPermission(models.PermissionTokenWrite))
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Login(context.Background(), "parent@example.com", "nope")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "ghost@example.com", "s3cret!pass")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestVerifyRejectsRevokedToken(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	_, token, err := svc.Login(ctx, "parent@example.com", "s3cret!pass")
	require.NoError(t, err)
	require.NoError(t, users.IncrementTokenVersion(ctx, "u1"))

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, domainerrors.ErrNotAuthenticated)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	svc, _ := newTestService(t)
	other := NewTokenIssuer("other-secret", time.Hour)
	token, err := other.Issue(&models.UserClaims{UserID: "u1", TokenVersion: 1})
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, domainerrors.ErrNotAuthenticated)
}
