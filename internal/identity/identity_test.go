package identity

import (
	"context"
	"testing"
	"time"

	"geopickup/internal/models"
	"geopickup/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTProvider_NoPrincipal(t *testing.T) {
	p := NewJWTProvider(repositories.NewMemoryUserRepository())
	ctx := context.Background()

	user, err := p.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	token, err := p.AuthToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestJWTProvider_ResolvesPrincipal(t *testing.T) {
	users := repositories.NewMemoryUserRepository(models.User{ID: "u1", Email: "a@b.c", Name: "Ann", Role: models.RoleParent, TokenVersion: 1})
	p := NewJWTProvider(users)
	ctx := WithPrincipal(context.Background(), &models.UserClaims{UserID: "u1", TokenVersion: 1}, "bearer-abc")

	user, err := p.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Ann", user.Name)

	token, err := p.AuthToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bearer-abc", token)

	require.NoError(t, p.SignOut(ctx))
	stored, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TokenVersion)
}

func TestMockProvider(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	p := NewMockProvider(MockUser(), func() time.Time { return now })
	ctx := context.Background()

	user, err := p.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mock-user-123", user.ID)
	assert.Len(t, user.Students, 1)

	token, _ := p.AuthToken(ctx)
	assert.Equal(t, "mock-auth-token-1700000000123", token)

	require.NoError(t, p.SignOut(ctx))
	user, _ = p.CurrentUser(ctx)
	assert.Nil(t, user)
	token, _ = p.AuthToken(ctx)
	assert.Empty(t, token)
}
