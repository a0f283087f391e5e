package handlers

import (
	"errors"
	"log"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps a domain error code to an HTTP status.
func statusFor(de *domainerrors.DomainError) int {
	switch de.Code {
	case domainerrors.ErrNotAuthenticated.Code, domainerrors.ErrInvalidCredentials.Code:
		return fiber.StatusUnauthorized
	case domainerrors.ErrNotAuthorized.Code:
		return fiber.StatusForbidden
	case domainerrors.ErrTokenExpired.Code, domainerrors.ErrInvalidTokenFormat.Code, domainerrors.ErrInvalidStatus.Code:
		return fiber.StatusBadRequest
	case domainerrors.ErrTokenAlreadyUsed.Code, domainerrors.ErrInvalidTransition.Code, domainerrors.ErrEmailTaken.Code:
		return fiber.StatusConflict
	case domainerrors.ErrCheckInNotFound.Code, domainerrors.ErrUserNotFound.Code:
		return fiber.StatusNotFound
	case domainerrors.ErrStorageFailure.Code:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	var de *domainerrors.DomainError
	if errors.As(err, &de) {
		status := statusFor(de)
		if status >= fiber.StatusInternalServerError {
			log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
		}
		return response.ErrorWithCode(c, status, de.Code, de.Message)
	}
	log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	return response.ServerError(c, "Internal server error")
}
