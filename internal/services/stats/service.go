// Package stats derives pickup KPIs by replaying the full check-in history.
package stats

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"geopickup/internal/models"
)

const (
	DefaultOnTimeThresholdMinutes = 10
	// bestDayWindow is how far back GetTopMetrics looks for the best day.
	bestDayWindow = 7 * 24 * time.Hour
	dateLayout    = "2006-01-02"
	notAvailable  = "N/A"
)

// HistorySource supplies every check-in ever recorded.
type HistorySource interface {
	History(ctx context.Context) []models.CheckIn
}

type Config struct {
	OnTimeThresholdMinutes int
	Location               *time.Location
	Now                    func() time.Time
}

type Service struct {
	history   HistorySource
	threshold int
	loc       *time.Location
	now       func() time.Time
}

func NewService(history HistorySource, cfg Config) *Service {
	if cfg.OnTimeThresholdMinutes <= 0 {
		cfg.OnTimeThresholdMinutes = DefaultOnTimeThresholdMinutes
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{history: history, threshold: cfg.OnTimeThresholdMinutes, loc: cfg.Location, now: cfg.Now}
}

// GetPickupStats aggregates check-ins of a school (all when empty) whose
// check-in time falls inside dateRange (everything when nil).
func (s *Service) GetPickupStats(ctx context.Context, schoolID string, dateRange *models.DateRange) models.PickupStats {
	filtered := filterBySchool(s.history.History(ctx), schoolID)
	if dateRange != nil {
		inRange := filtered[:0:0]
		for _, c := range filtered {
			if !c.CheckedInAt.Before(dateRange.Start) && !c.CheckedInAt.After(dateRange.End) {
				inRange = append(inRange, c)
			}
		}
		filtered = inRange
	}

	out := models.PickupStats{
		PickupsBySchool: map[string]int{},
		PickupsByHour:   map[string]int{},
	}
	today := dateKey(s.now(), s.loc)
	var waits []int
	completed := 0
	for _, c := range filtered {
		if c.Status != models.CheckInCompleted {
			continue
		}
		completed++
		if dateKey(c.CheckedInAt, s.loc) == today {
			out.TotalPickupsToday++
		}
		if c.WaitTimeMinutes != nil {
			waits = append(waits, *c.WaitTimeMinutes)
			if *c.WaitTimeMinutes <= s.threshold {
				out.OnTimePickups++
			}
		}
		out.PickupsBySchool[c.SchoolID]++

		at := c.CheckedInAt
		if c.CompletedAt != nil {
			at = *c.CompletedAt
		}
		out.PickupsByHour[hourKey(at.In(s.loc).Hour())]++
	}

	out.TotalPickups = completed
	out.AverageWaitTime = average(waits)
	if len(waits) > 0 {
		out.FastestPickup, out.SlowestPickup = waits[0], waits[0]
		for _, w := range waits[1:] {
			out.FastestPickup = min(out.FastestPickup, w)
			out.SlowestPickup = max(out.SlowestPickup, w)
		}
	}
	if len(filtered) > 0 {
		out.CompletionRate = roundHalfUp(float64(completed) / float64(len(filtered)) * 100)
	}
	return out
}

// GetDailyStats returns one entry per calendar day from start to end
// inclusive, days counted in the configured location.
func (s *Service) GetDailyStats(ctx context.Context, start, end time.Time, schoolID string) []models.DailyStats {
	filtered := filterBySchool(s.history.History(ctx), schoolID)

	byDay := map[string][]models.CheckIn{}
	for _, c := range filtered {
		key := dateKey(c.CheckedInAt, s.loc)
		byDay[key] = append(byDay[key], c)
	}

	var days []models.DailyStats
	first := startOfDay(start.In(s.loc))
	last := startOfDay(end.In(s.loc))
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		day := models.DailyStats{Date: key}
		var waits []int
		onTime := 0
		for _, c := range byDay[key] {
			day.TotalCheckIns++
			if c.Status != models.CheckInCompleted {
				continue
			}
			day.CompletedPickups++
			if c.WaitTimeMinutes != nil {
				waits = append(waits, *c.WaitTimeMinutes)
				if *c.WaitTimeMinutes <= s.threshold {
					onTime++
				}
			}
		}
		day.AverageWaitTime = average(waits)
		if len(waits) > 0 {
			day.OnTimeRate = roundHalfUp(float64(onTime) / float64(len(waits)) * 100)
		}
		days = append(days, day)
	}
	return days
}

// GetTopMetrics picks the best day of the trailing week, the peak hour and
// the best school. Ties go to the earliest key in ascending order.
func (s *Service) GetTopMetrics(ctx context.Context, schoolID string) models.TopMetrics {
	stats := s.GetPickupStats(ctx, schoolID, nil)
	out := models.TopMetrics{
		BestDay:    models.BestDay{Date: notAvailable},
		PeakHour:   models.PeakHour{Hour: notAvailable},
		BestSchool: models.BestSchool{SchoolID: notAvailable},
	}

	hours := make([]string, 0, len(stats.PickupsByHour))
	for h := range stats.PickupsByHour {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool { return hourOf(hours[i]) < hourOf(hours[j]) })
	for _, h := range hours {
		if n := stats.PickupsByHour[h]; n > out.PeakHour.Pickups {
			out.PeakHour = models.PeakHour{Hour: h, Pickups: n}
		}
	}

	schools := make([]string, 0, len(stats.PickupsBySchool))
	for id := range stats.PickupsBySchool {
		schools = append(schools, id)
	}
	sort.Strings(schools)
	for _, id := range schools {
		if n := stats.PickupsBySchool[id]; n > out.BestSchool.Pickups {
			out.BestSchool = models.BestSchool{SchoolID: id, Pickups: n}
		}
	}

	now := s.now()
	for _, day := range s.GetDailyStats(ctx, now.Add(-bestDayWindow), now, schoolID) {
		if day.CompletedPickups > out.BestDay.Pickups {
			out.BestDay = models.BestDay{Date: day.Date, Pickups: day.CompletedPickups}
		}
	}
	return out
}

func filterBySchool(all []models.CheckIn, schoolID string) []models.CheckIn {
	if schoolID == "" {
		return all
	}
	out := make([]models.CheckIn, 0, len(all))
	for _, c := range all {
		if c.SchoolID == schoolID {
			out = append(out, c)
		}
	}
	return out
}

func average(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return roundHalfUp(float64(sum) / float64(len(values)))
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func dateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func hourKey(h int) string {
	return strconv.Itoa(h) + ":00"
}

func hourOf(key string) int {
	h, _ := strconv.Atoi(strings.TrimSuffix(key, ":00"))
	return h
}
