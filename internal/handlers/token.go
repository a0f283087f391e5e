package handlers

import (
	"context"
	"strconv"

	"geopickup/internal/models"
	"geopickup/internal/services/token"
	"geopickup/internal/utils/response"
	"geopickup/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// TokenEngine is the parent-side credential lifecycle.
type TokenEngine interface {
	GenerateToken(ctx context.Context, studentID, schoolID string) (*models.PickupToken, error)
	GetCurrentToken(ctx context.Context) (*models.PickupToken, error)
	InvalidateToken(ctx context.Context) error
}

type TokenHandler struct {
	tokens   TokenEngine
	validate *validation.Validator
}

func NewTokenHandler(tokens TokenEngine, v *validation.Validator) *TokenHandler {
	return &TokenHandler{tokens: tokens, validate: v}
}

type generateTokenRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	SchoolID  string `json:"schoolId" validate:"required"`
}

func (h *TokenHandler) Generate(c *fiber.Ctx) error {
	var input generateTokenRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(input); err != nil {
		return response.ValidationError(c, "studentId and schoolId are required", validation.Fields(err))
	}

	t, err := h.tokens.GenerateToken(c.UserContext(), input.StudentID, input.SchoolID)
	if err != nil {
		return respondError(c, err)
	}
	return response.Created(c, "Pickup token generated", t)
}

func (h *TokenHandler) Current(c *fiber.Ctx) error {
	t, err := h.tokens.GetCurrentToken(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if t == nil {
		return response.NotFound(c, "No active pickup token")
	}
	return response.Success(c, "Pickup token retrieved", t)
}

// CurrentQR renders the current token as a PNG. ?size= sets the edge in pixels.
func (h *TokenHandler) CurrentQR(c *fiber.Ctx) error {
	t, err := h.tokens.GetCurrentToken(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if t == nil {
		return response.NotFound(c, "No active pickup token")
	}

	size, err := strconv.Atoi(c.Query("size", strconv.Itoa(token.DefaultQRSize)))
	if err != nil || size < 64 || size > 1024 {
		return response.BadRequest(c, "size must be between 64 and 1024")
	}
	png, err := token.RenderQRCode(t, size)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

func (h *TokenHandler) Invalidate(c *fiber.Ctx) error {
	if err := h.tokens.InvalidateToken(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Pickup token invalidated", nil)
}
