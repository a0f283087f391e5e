package handlers

import (
	"context"
	"time"

	"geopickup/internal/models"
	"geopickup/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// StatsReader is the statistics aggregator.
type StatsReader interface {
	GetPickupStats(ctx context.Context, schoolID string, dateRange *models.DateRange) models.PickupStats
	GetDailyStats(ctx context.Context, start, end time.Time, schoolID string) []models.DailyStats
	GetTopMetrics(ctx context.Context, schoolID string) models.TopMetrics
}

const (
	dayLayout        = "2006-01-02"
	defaultDailySpan = 6 // days before end
	maxDailySpan     = 366
)

type StatsHandler struct {
	stats StatsReader
	loc   *time.Location
	now   func() time.Time
}

func NewStatsHandler(stats StatsReader, loc *time.Location, now func() time.Time) *StatsHandler {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &StatsHandler{stats: stats, loc: loc, now: now}
}

// parseDay accepts YYYY-MM-DD (in the stats location) or RFC3339.
func (h *StatsHandler) parseDay(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dayLayout, s, h.loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Pickup returns the KPIs, restricted to ?start=&end= when both are given.
// A bare end date covers that whole day.
func (h *StatsHandler) Pickup(c *fiber.Ctx) error {
	var dateRange *models.DateRange
	start, end := c.Query("start"), c.Query("end")
	if start != "" || end != "" {
		if start == "" || end == "" {
			return response.BadRequest(c, "start and end must be given together")
		}
		from, err := h.parseDay(start)
		if err != nil {
			return response.BadRequest(c, "invalid start date")
		}
		to, err := h.parseDay(end)
		if err != nil {
			return response.BadRequest(c, "invalid end date")
		}
		if len(end) == len(dayLayout) {
			to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		if to.Before(from) {
			return response.BadRequest(c, "end is before start")
		}
		dateRange = &models.DateRange{Start: from, End: to}
	}
	return response.Success(c, "Pickup statistics", h.stats.GetPickupStats(c.UserContext(), c.Query("schoolId"), dateRange))
}

// Daily returns one entry per day, the last seven days by default.
func (h *StatsHandler) Daily(c *fiber.Ctx) error {
	end := h.now()
	if s := c.Query("end"); s != "" {
		t, err := h.parseDay(s)
		if err != nil {
			return response.BadRequest(c, "invalid end date")
		}
		end = t
	}
	start := end.AddDate(0, 0, -defaultDailySpan)
	if s := c.Query("start"); s != "" {
		t, err := h.parseDay(s)
		if err != nil {
			return response.BadRequest(c, "invalid start date")
		}
		start = t
	}
	if end.Before(start) {
		return response.BadRequest(c, "end is before start")
	}
	if end.Sub(start) > maxDailySpan*24*time.Hour {
		return response.BadRequest(c, "date range too long")
	}
	return response.Success(c, "Daily statistics", h.stats.GetDailyStats(c.UserContext(), start, end, c.Query("schoolId")))
}

func (h *StatsHandler) Top(c *fiber.Ctx) error {
	return response.Success(c, "Top metrics", h.stats.GetTopMetrics(c.UserContext(), c.Query("schoolId")))
}
