package handlers

import (
	"geopickup/internal/repositories"
	"geopickup/internal/utils/pagination"

	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	logs repositories.NotificationLogRepository
}

func NewNotificationHandler(logs repositories.NotificationLogRepository) *NotificationHandler {
	return &NotificationHandler{logs: logs}
}

// List pages through the notification log, newest first.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	entries, total, err := h.logs.List(c.UserContext(), p.Offset, p.Limit)
	if err != nil {
		return respondError(c, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, entries))
}
