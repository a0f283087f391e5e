// Package identity answers "who is acting" for the pickup services. The JWT
// provider reads the principal the auth middleware put on the request
// context; the mock provider serves a fixed development profile.
package identity

import (
	"context"

	"geopickup/internal/models"
)

// Provider exposes the authenticated principal. CurrentUser returns nil with
// no error when nobody is signed in; AuthToken returns "" in that case.
type Provider interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	AuthToken(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// Principal is the verified caller of a request.
type Principal struct {
	Claims *models.UserClaims
	Token  string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, claims *models.UserClaims, bearer string) context.Context {
	return context.WithValue(ctx, principalKey{}, Principal{Claims: claims, Token: bearer})
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.Claims == nil {
		return Principal{}, false
	}
	return p, true
}
