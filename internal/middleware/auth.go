// Package middleware provides HTTP middleware components for the application.
// It includes authentication and role checks for the fiber routes.
package middleware

import (
	"context"
	"log"
	"strings"

	"geopickup/internal/identity"
	"geopickup/internal/models"
	"geopickup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// Verifier checks a bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, bearer string) (*models.UserClaims, error)
}

// AuthMiddleware handles JWT token validation and user authentication.
type AuthMiddleware struct {
	verifier Verifier
}

func NewAuthMiddleware(verifier Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Handler validates the bearer token and attaches the principal to both the
// fiber locals and the request context seen by the services.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		log.Println("Missing Authorization header")
		return response.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		log.Println("Invalid Authorization format")
		return response.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := m.verifier.Verify(c.UserContext(), tokenString)
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return response.Error(c, fiber.StatusUnauthorized, err.Error())
	}

	setPrincipal(c, claims, tokenString)
	return c.Next()
}

// MockAuth signs every request in as user. Used when MOCK_MODE is on.
func MockAuth(user models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := &models.UserClaims{
			UserID:       user.ID,
			Email:        user.Email,
			Role:         user.Role,
			Permissions:  models.GetDefaultPermissions(user.Role),
			TokenVersion: user.TokenVersion,
		}
		setPrincipal(c, claims, "")
		return c.Next()
	}
}

func setPrincipal(c *fiber.Ctx, claims *models.UserClaims, token string) {
	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)
	c.SetUserContext(identity.WithPrincipal(c.UserContext(), claims, token))
}

// ClaimsFrom returns the claims stored by Handler or MockAuth.
func ClaimsFrom(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	return claims, ok && claims != nil
}

// RequireRole lets through only the listed roles. Admins always pass.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return response.Unauthorized(c)
		}
		if claims.Role == models.RoleAdmin {
			return c.Next()
		}
		for _, r := range roles {
			if claims.Role == r {
				return c.Next()
			}
		}
		log.Printf("Access denied: user %s has role %s", claims.UserID, claims.Role)
		return response.Forbidden(c)
	}
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return response.Unauthorized(c)
		}

		// If user is admin, allow all permissions
		if claims.Role == models.RoleAdmin {
			return c.Next()
		}

		if claims.HasPermission(permission) {
			return c.Next()
		}

		return response.Forbidden(c)
	}
}
