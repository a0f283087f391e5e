package stats

import (
	"context"
	"testing"
	"time"

	"geopickup/internal/config"
	"geopickup/internal/identity"
	"geopickup/internal/models"
	"geopickup/internal/repositories"
	"geopickup/internal/services/checkin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHistory []models.CheckIn

func (h staticHistory) History(context.Context) []models.CheckIn {
	return append([]models.CheckIn(nil), h...)
}

var now = time.Date(2024, 3, 6, 16, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func minutes(n int) *int { return &n }

func completed(id, school string, checkedIn time.Time, wait int) models.CheckIn {
	done := checkedIn.Add(time.Duration(wait) * time.Minute)
	return models.CheckIn{
		ID:              id,
		SchoolID:        school,
		CheckedInAt:     checkedIn,
		CompletedAt:     &done,
		Status:          models.CheckInCompleted,
		WaitTimeMinutes: minutes(wait),
	}
}

func waiting(id, school string, checkedIn time.Time) models.CheckIn {
	return models.CheckIn{ID: id, SchoolID: school, CheckedInAt: checkedIn, Status: models.CheckInWaiting}
}

func newService(h staticHistory) *Service {
	return NewService(h, Config{Location: time.UTC, Now: fixedNow})
}

func TestGetPickupStats_Empty(t *testing.T) {
	got := newService(nil).GetPickupStats(context.Background(), "", nil)
	assert.Equal(t, 0, got.TotalPickups)
	assert.Equal(t, 0, got.CompletionRate)
	assert.Equal(t, 0, got.AverageWaitTime)
	assert.Equal(t, 0, got.FastestPickup)
	assert.Equal(t, 0, got.SlowestPickup)
	assert.Empty(t, got.PickupsByHour)
	assert.Empty(t, got.PickupsBySchool)
}

func TestGetPickupStats(t *testing.T) {
	yesterday := now.AddDate(0, 0, -1)
	h := staticHistory{
		completed("a", "school-1", now.Add(-90*time.Minute), 4),
		completed("b", "school-1", now.Add(-80*time.Minute), 15),
		completed("c", "school-2", yesterday, 7),
		waiting("d", "school-1", now.Add(-5*time.Minute)),
	}
	svc := newService(h)
	ctx := context.Background()

	all := svc.GetPickupStats(ctx, "", nil)
	assert.Equal(t, 3, all.TotalPickups)
	assert.Equal(t, 2, all.TotalPickupsToday)
	assert.Equal(t, 2, all.OnTimePickups)
	assert.Equal(t, 9, all.AverageWaitTime) // 26/3 = 8.67
	assert.Equal(t, 4, all.FastestPickup)
	assert.Equal(t, 15, all.SlowestPickup)
	assert.Equal(t, map[string]int{"school-1": 2, "school-2": 1}, all.PickupsBySchool)
	assert.Equal(t, map[string]int{"14:00": 2, "16:00": 1}, all.PickupsByHour)
	assert.Equal(t, 75, all.CompletionRate)

	one := svc.GetPickupStats(ctx, "school-1", nil)
	assert.Equal(t, 2, one.TotalPickups)
	assert.Equal(t, 67, one.CompletionRate)
	assert.Equal(t, map[string]int{"school-1": 2}, one.PickupsBySchool)

	ranged := svc.GetPickupStats(ctx, "", &models.DateRange{Start: yesterday, End: yesterday})
	assert.Equal(t, 1, ranged.TotalPickups)
	assert.Equal(t, 100, ranged.CompletionRate)
}

func TestGetPickupStats_HourFallsBackToCheckIn(t *testing.T) {
	c := completed("a", "school-1", time.Date(2024, 3, 6, 9, 59, 0, 0, time.UTC), 3)
	c.CompletedAt = nil
	got := newService(staticHistory{c}).GetPickupStats(context.Background(), "", nil)
	assert.Equal(t, map[string]int{"9:00": 1}, got.PickupsByHour)
}

func TestGetPickupStats_UsesConfiguredLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 02:00 UTC on the 6th is still the 5th in New York.
	c := completed("a", "school-1", time.Date(2024, 3, 6, 2, 0, 0, 0, time.UTC), 5)
	svc := NewService(staticHistory{c}, Config{Location: ny, Now: fixedNow})

	got := svc.GetPickupStats(context.Background(), "", nil)
	assert.Equal(t, 0, got.TotalPickupsToday)
	assert.Equal(t, map[string]int{"21:00": 1}, got.PickupsByHour)
}

func TestGetDailyStats_EmptyDays(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	days := newService(nil).GetDailyStats(context.Background(), start, end, "")
	require.Len(t, days, 3)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03"}, []string{days[0].Date, days[1].Date, days[2].Date})
	for _, d := range days {
		assert.Zero(t, d.TotalCheckIns)
		assert.Zero(t, d.CompletedPickups)
		assert.Zero(t, d.AverageWaitTime)
		assert.Zero(t, d.OnTimeRate)
	}
}

func TestGetDailyStats(t *testing.T) {
	day := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	h := staticHistory{
		completed("a", "school-1", day, 5),
		completed("b", "school-1", day.Add(time.Minute), 12),
		completed("c", "school-1", day.Add(2*time.Minute), 9),
		waiting("d", "school-1", day.Add(3*time.Minute)),
		completed("e", "school-2", day, 1),
	}
	days := newService(h).GetDailyStats(context.Background(), day, day, "school-1")
	require.Len(t, days, 1)
	assert.Equal(t, models.DailyStats{
		Date:             "2024-03-05",
		TotalCheckIns:    4,
		CompletedPickups: 3,
		AverageWaitTime:  9, // 26/3
		OnTimeRate:       67,
	}, days[0])
}

func TestGetTopMetrics(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got := newService(nil).GetTopMetrics(context.Background(), "")
		assert.Equal(t, models.TopMetrics{
			BestDay:    models.BestDay{Date: "N/A"},
			PeakHour:   models.PeakHour{Hour: "N/A"},
			BestSchool: models.BestSchool{SchoolID: "N/A"},
		}, got)
	})

	t.Run("populated", func(t *testing.T) {
		h := staticHistory{
			completed("a", "school-2", time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 1),
			completed("b", "school-1", time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC), 1),
			completed("c", "school-1", time.Date(2024, 3, 5, 14, 40, 0, 0, time.UTC), 1),
			completed("d", "school-2", time.Date(2024, 3, 5, 9, 10, 0, 0, time.UTC), 1),
			completed("e", "school-2", time.Date(2024, 3, 5, 14, 10, 0, 0, time.UTC), 1),
			// outside the trailing week
			completed("f", "school-1", time.Date(2024, 2, 1, 14, 10, 0, 0, time.UTC), 1),
		}
		got := newService(h).GetTopMetrics(context.Background(), "")
		assert.Equal(t, models.BestDay{Date: "2024-03-05", Pickups: 3}, got.BestDay)
		assert.Equal(t, models.PeakHour{Hour: "14:00", Pickups: 4}, got.PeakHour)
		assert.Equal(t, models.BestSchool{SchoolID: "school-1", Pickups: 3}, got.BestSchool)
	})

	t.Run("ties go to the lowest key", func(t *testing.T) {
		h := staticHistory{
			completed("a", "school-b", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 1),
			completed("b", "school-a", time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), 1),
		}
		got := newService(h).GetTopMetrics(context.Background(), "")
		assert.Equal(t, "9:00", got.PeakHour.Hour)
		assert.Equal(t, "school-a", got.BestSchool.SchoolID)
	})
}

// Completed check-ins drop off the board after an hour but stay in the stats.
func TestStats_FromLedgerHistory(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 3, 4, 14, 40, 0, 0, time.UTC)
	tick := func() time.Time { return clock }

	user := identity.MockUser()
	ledger := checkin.NewService(
		repositories.NewBlobCheckInStore(repositories.NewMemoryKV()),
		identity.NewMockProvider(user, tick),
		nil, nil, nil,
		config.NewSchoolCatalog(config.DefaultSchools),
		checkin.Config{Now: tick, Location: time.UTC},
	)

	c, err := ledger.RegisterCheckIn(ctx, user.ID, "student-1", "school-1", "")
	require.NoError(t, err)
	clock = clock.Add(7 * time.Minute)
	_, err = ledger.UpdateCheckInStatus(ctx, c.ID, models.CheckInCompleted)
	require.NoError(t, err)

	svc := NewService(ledger, Config{Location: time.UTC, Now: tick})
	got := svc.GetPickupStats(ctx, "school-1", nil)
	assert.Equal(t, 1, got.TotalPickups)
	assert.Equal(t, 1, got.OnTimePickups)
	assert.Equal(t, 7, got.AverageWaitTime)
	assert.Equal(t, map[string]int{"14:00": 1}, got.PickupsByHour)

	clock = clock.Add(2 * time.Hour)
	assert.Empty(t, ledger.GetCheckIns(ctx, "school-1"))
	assert.Equal(t, 1, svc.GetPickupStats(ctx, "school-1", nil).TotalPickups)
}
