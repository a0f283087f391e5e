package handlers

import (
	"time"

	"geopickup/internal/middleware"
	"geopickup/internal/models"
	"geopickup/internal/services/geofence"
	"geopickup/internal/utils/response"
	"geopickup/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// FenceChecker answers whether a point is inside a school fence.
type FenceChecker interface {
	CheckEntry(loc *models.Location) models.GeofenceCheck
	IsMonitoringActive() bool
	MonitoredRegions() []geofence.Region
}

// LocationRecorder buffers fixes for the geofence poller.
type LocationRecorder interface {
	Record(subjectID string, loc models.Location)
}

type LocationHandler struct {
	fences   FenceChecker
	tracker  LocationRecorder
	schools  []models.School
	validate *validation.Validator
	now      func() time.Time
}

func NewLocationHandler(fences FenceChecker, tracker LocationRecorder, schools []models.School, v *validation.Validator, now func() time.Time) *LocationHandler {
	if now == nil {
		now = time.Now
	}
	return &LocationHandler{fences: fences, tracker: tracker, schools: schools, validate: v, now: now}
}

type locationRequest struct {
	Latitude   *float64   `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude  *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	RecordedAt *time.Time `json:"recordedAt"`
}

// Report takes a position fix from a parent device. The fix is queued for
// the geofence poller and the immediate fence check is returned.
func (h *LocationHandler) Report(c *fiber.Ctx) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var input locationRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(input); err != nil {
		return response.ValidationError(c, "latitude and longitude are required", validation.Fields(err))
	}

	loc := models.Location{Latitude: *input.Latitude, Longitude: *input.Longitude, RecordedAt: h.now()}
	if input.RecordedAt != nil {
		loc.RecordedAt = *input.RecordedAt
	}
	h.tracker.Record(claims.UserID, loc)
	return response.Success(c, "Location received", h.fences.CheckEntry(&loc))
}

func (h *LocationHandler) Schools(c *fiber.Ctx) error {
	return response.Success(c, "Schools retrieved", h.schools)
}

func (h *LocationHandler) Regions(c *fiber.Ctx) error {
	return response.Success(c, "Geofence regions", fiber.Map{
		"active":  h.fences.IsMonitoringActive(),
		"regions": h.fences.MonitoredRegions(),
	})
}
