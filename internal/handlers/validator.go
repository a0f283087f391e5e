package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/identity"
	"geopickup/internal/models"
	"geopickup/internal/services/scanner"
	"geopickup/internal/services/token"
	"geopickup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// CredentialChecker is the staff-side of the token engine.
type CredentialChecker interface {
	ValidateToken(ctx context.Context, scanned string) models.ValidationResult
	Redeem(ctx context.Context, scanned string, staff *models.User) (*token.RedeemResult, error)
}

// ValidatorHandler serves the gate scanner. Depending on the scanner mode
// it accepts an uploaded photo ("image" form file) or the scanned text
// ("data" in JSON or form body).
type ValidatorHandler struct {
	tokens   CredentialChecker
	provider identity.Provider
	mode     scanner.Mode
}

func NewValidatorHandler(tokens CredentialChecker, provider identity.Provider, mode scanner.Mode) *ValidatorHandler {
	return &ValidatorHandler{tokens: tokens, provider: provider, mode: mode}
}

type scanRequest struct {
	Data string `json:"data" form:"data"`
}

func (h *ValidatorHandler) input(c *fiber.Ctx) (scanner.Input, error) {
	if file, err := c.FormFile("image"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		// buffered so the multipart file can be closed here
		raw, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		return scanner.NewImageInput(bytes.NewReader(raw)), nil
	}
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, scanner.ErrEmptyInput
	}
	return scanner.NewTextInput(req.Data), nil
}

// read resolves the request to the scanned credential string.
func (h *ValidatorHandler) read(c *fiber.Ctx) (string, error) {
	in, err := h.input(c)
	if err != nil {
		return "", err
	}
	if !h.mode.Accepts(in) {
		return "", scanner.ErrUnsupported
	}
	return in.Read(c.UserContext())
}

func (h *ValidatorHandler) scanError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, scanner.ErrUnsupported):
		return response.Error(c, fiber.StatusUnsupportedMediaType, "Image scanning is disabled")
	case errors.Is(err, scanner.ErrEmptyInput):
		return response.BadRequest(c, "Scan data is required")
	case errors.Is(err, scanner.ErrNoCode):
		return response.Error(c, fiber.StatusUnprocessableEntity, "No QR code found in image")
	}
	return response.BadRequest(c, "Could not read scan input")
}

// Validate checks a credential without consuming it.
func (h *ValidatorHandler) Validate(c *fiber.Ctx) error {
	scanned, err := h.read(c)
	if err != nil {
		return h.scanError(c, err)
	}
	return response.Success(c, "Token checked", h.tokens.ValidateToken(c.UserContext(), scanned))
}

// Redeem validates, consumes the credential and checks the parent in.
func (h *ValidatorHandler) Redeem(c *fiber.Ctx) error {
	scanned, err := h.read(c)
	if err != nil {
		return h.scanError(c, err)
	}
	staff, err := h.provider.CurrentUser(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	res, err := h.tokens.Redeem(c.UserContext(), scanned, staff)
	if err != nil {
		var de *domainerrors.DomainError
		if !errors.As(err, &de) {
			return respondError(c, err)
		}
		body := fiber.Map{"error": de.Message, "code": de.Code}
		if res != nil {
			body["validation"] = res.Validation
		}
		if statusFor(de) >= fiber.StatusInternalServerError {
			log.Printf("Redeem failed: %v", err)
		}
		return c.Status(statusFor(de)).JSON(body)
	}
	return response.Created(c, "Pickup checked in", res)
}
