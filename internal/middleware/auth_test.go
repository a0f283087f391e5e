package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/identity"
	"geopickup/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, bearer string) (*models.UserClaims, error) {
	args := m.Called(ctx, bearer)
	claims, _ := args.Get(0).(*models.UserClaims)
	return claims, args.Error(1)
}

func whoami(c *fiber.Ctx) error {
	p, ok := identity.PrincipalFrom(c.UserContext())
	if !ok {
		return c.SendStatus(fiber.StatusTeapot)
	}
	return c.SendString(p.Claims.UserID + "|" + p.Token)
}

func TestAuthMiddleware_Handler(t *testing.T) {
	parent := &models.UserClaims{UserID: "p1", Role: models.RoleParent}

	tests := []struct {
		name      string
		header    string
		setupMock func(*MockVerifier)
		status    int
		body      string
	}{
		{name: "missing header", status: fiber.StatusUnauthorized},
		{name: "not a bearer", header: "Basic abc", status: fiber.StatusUnauthorized},
		{
			name:   "revoked token",
			header: "Bearer stale",
			setupMock: func(v *MockVerifier) {
				v.On("Verify", mock.Anything, "stale").Return(nil, domainerrors.ErrNotAuthenticated.WithMessage("session expired"))
			},
			status: fiber.StatusUnauthorized,
		},
		{
			name:   "valid token",
			header: "Bearer good",
			setupMock: func(v *MockVerifier) {
				v.On("Verify", mock.Anything, "good").Return(parent, nil)
			},
			status: fiber.StatusOK,
			body:   "p1|good",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := new(MockVerifier)
			if tt.setupMock != nil {
				tt.setupMock(v)
			}
			app := fiber.New()
			app.Get("/", NewAuthMiddleware(v).Handler, whoami)

			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				buf := make([]byte, len(tt.body))
				_, _ = resp.Body.Read(buf)
				assert.Equal(t, tt.body, string(buf))
			}
			v.AssertExpectations(t)
		})
	}
}

func TestRoleAndPermissionChecks(t *testing.T) {
	users := map[string]models.User{
		"parent": {ID: "p1", Role: models.RoleParent},
		"staff":  {ID: "s1", Role: models.RoleStaff},
		"admin":  {ID: "a1", Role: models.RoleAdmin},
	}
	tests := []struct {
		user   string
		guard  fiber.Handler
		status int
	}{
		{user: "parent", guard: RequireRole(models.RoleStaff), status: fiber.StatusForbidden},
		{user: "staff", guard: RequireRole(models.RoleStaff), status: fiber.StatusOK},
		{user: "admin", guard: RequireRole(models.RoleStaff), status: fiber.StatusOK},
		{user: "staff", guard: RequireRole(), status: fiber.StatusForbidden},
		{user: "parent", guard: HasPermission(models.PermissionTokenWrite), status: fiber.StatusOK},
		{user: "staff", guard: HasPermission(models.PermissionTokenWrite), status: fiber.StatusForbidden},
		{user: "admin", guard: HasPermission(models.PermissionTokenWrite), status: fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", MockAuth(users[tt.user]), tt.guard, whoami)
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	t.Run("no claims", func(t *testing.T) {
		app := fiber.New()
		app.Get("/", RequireRole(models.RoleStaff), whoami)
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}
