package handlers

import (
	"geopickup/internal/identity"
	"geopickup/internal/models"
	"geopickup/internal/services/auth"
	"geopickup/internal/utils/response"
	"geopickup/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService auth.Service
	provider    identity.Provider
	validate    *validation.Validator
}

// NewAuthHandler wires login and session endpoints. authService is nil in
// mock mode, where login is unavailable.
func NewAuthHandler(authService auth.Service, provider identity.Provider, v *validation.Validator) *AuthHandler {
	return &AuthHandler{authService: authService, provider: provider, validate: v}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginUser handles user authentication and returns a JWT
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	if h.authService == nil {
		return response.Error(c, fiber.StatusNotFound, "Login is not available in mock mode")
	}

	var input loginRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(input); err != nil {
		return response.ValidationError(c, "Email and password are required", validation.Fields(err))
	}

	user, accessToken, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"access_token": accessToken,
		"user": fiber.Map{
			"id":          user.ID,
			"email":       user.Email,
			"name":        user.Name,
			"role":        user.Role,
			"permissions": models.GetDefaultPermissions(user.Role),
		},
	})
}

// LogoutUser revokes the caller's session.
func (h *AuthHandler) LogoutUser(c *fiber.Ctx) error {
	if err := h.provider.SignOut(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Logged out successfully", nil)
}

// Me returns the signed-in profile with students and vehicle.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.provider.CurrentUser(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return response.Unauthorized(c)
	}
	return response.Success(c, "Profile retrieved", user)
}
