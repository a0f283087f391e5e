package handlers

import (
	"context"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/identity"
	"geopickup/internal/models"
	"geopickup/internal/utils/response"
	"geopickup/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Ledger is the board-facing side of the check-in ledger.
type Ledger interface {
	GetCheckIns(ctx context.Context, schoolID string) []models.CheckIn
	GetCheckInCount(ctx context.Context, schoolID string) int
	GetCheckIn(ctx context.Context, id string) (*models.CheckIn, error)
	UpdateCheckInStatus(ctx context.Context, id string, status models.CheckInStatus) (*models.CheckIn, error)
	RemoveCheckIn(ctx context.Context, id string) error
	ClearCheckIns(ctx context.Context, schoolID string) error
}

type CheckInHandler struct {
	ledger   Ledger
	provider identity.Provider
	validate *validation.Validator
}

func NewCheckInHandler(ledger Ledger, provider identity.Provider, v *validation.Validator) *CheckInHandler {
	return &CheckInHandler{ledger: ledger, provider: provider, validate: v}
}

// operator checks the caller may change the board of schoolID.
// An empty schoolID means every school, which only admins may touch.
func (h *CheckInHandler) operator(c *fiber.Ctx, schoolID string) error {
	user, err := h.provider.CurrentUser(c.UserContext())
	if err != nil {
		return err
	}
	if user == nil {
		return domainerrors.ErrNotAuthenticated
	}
	if schoolID == "" {
		if user.Role != models.RoleAdmin {
			return domainerrors.ErrNotAuthorized.WithMessage("Only admins may clear every school")
		}
		return nil
	}
	if !user.OperatesSchool(schoolID) {
		return domainerrors.ErrNotAuthorized.WithMessage("Not authorized to manage pickups for %s", schoolID)
	}
	return nil
}

// authorizeCheckIn loads the check-in and checks the caller operates its school.
func (h *CheckInHandler) authorizeCheckIn(c *fiber.Ctx, id string) error {
	checkIn, err := h.ledger.GetCheckIn(c.UserContext(), id)
	if err != nil {
		return err
	}
	return h.operator(c, checkIn.SchoolID)
}

// List returns the pickup board, optionally for one school (?schoolId=).
func (h *CheckInHandler) List(c *fiber.Ctx) error {
	return response.Success(c, "Check-ins retrieved", h.ledger.GetCheckIns(c.UserContext(), c.Query("schoolId")))
}

func (h *CheckInHandler) Count(c *fiber.Ctx) error {
	n := h.ledger.GetCheckInCount(c.UserContext(), c.Query("schoolId"))
	return response.Success(c, "Outstanding check-ins", fiber.Map{"count": n})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=waiting processing completed"`
}

func (h *CheckInHandler) UpdateStatus(c *fiber.Ctx) error {
	var input updateStatusRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(input); err != nil {
		return response.ValidationError(c, "status must be waiting, processing or completed", validation.Fields(err))
	}

	if err := h.authorizeCheckIn(c, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	updated, err := h.ledger.UpdateCheckInStatus(c.UserContext(), c.Params("id"), models.CheckInStatus(input.Status))
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Check-in updated", updated)
}

func (h *CheckInHandler) Remove(c *fiber.Ctx) error {
	if err := h.authorizeCheckIn(c, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	if err := h.ledger.RemoveCheckIn(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Check-in removed", nil)
}

// Clear empties the board of ?schoolId=, or of every school for admins.
func (h *CheckInHandler) Clear(c *fiber.Ctx) error {
	schoolID := c.Query("schoolId")
	if err := h.operator(c, schoolID); err != nil {
		return respondError(c, err)
	}
	if err := h.ledger.ClearCheckIns(c.UserContext(), schoolID); err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Board cleared", nil)
}
