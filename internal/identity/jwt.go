package identity

import (
	"context"
	"errors"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/models"
	"geopickup/internal/repositories"
)

// JWTProvider resolves the request principal against the user repository.
type JWTProvider struct {
	users repositories.UserRepository
}

func NewJWTProvider(users repositories.UserRepository) *JWTProvider {
	return &JWTProvider{users: users}
}

func (p *JWTProvider) CurrentUser(ctx context.Context) (*models.User, error) {
	principal, ok := PrincipalFrom(ctx)
	if !ok {
		return nil, nil
	}
	user, err := p.users.GetByID(ctx, principal.Claims.UserID)
	if errors.Is(err, domainerrors.ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

func (p *JWTProvider) AuthToken(ctx context.Context) (string, error) {
	principal, ok := PrincipalFrom(ctx)
	if !ok {
		return "", nil
	}
	return principal.Token, nil
}

// SignOut revokes every JWT of the caller.
func (p *JWTProvider) SignOut(ctx context.Context) error {
	principal, ok := PrincipalFrom(ctx)
	if !ok {
		return nil
	}
	return p.users.IncrementTokenVersion(ctx, principal.Claims.UserID)
}
