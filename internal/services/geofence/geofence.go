// Package geofence decides when a parent's reported position enters a
// school's pickup radius and raises an approach notification.
package geofence

import (
	"context"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"geopickup/internal/models"
	"geopickup/internal/services/notification"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371e3

// DefaultPollInterval is used by Run when given a non-positive interval.
const DefaultPollInterval = 30 * time.Second

// Region is a monitored circular area, radius in meters.
type Region struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

// RegionsFromSchools builds one region per school geofence.
func RegionsFromSchools(schools []models.School) []Region {
	out := make([]Region, 0, len(schools))
	for _, s := range schools {
		out = append(out, Region{
			ID:        s.ID,
			Name:      s.Name,
			Latitude:  s.Geofence.Latitude,
			Longitude: s.Geofence.Longitude,
			Radius:    s.Geofence.Radius,
		})
	}
	return out
}

// Distance returns the great-circle distance in meters (haversine).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadius * c
}

func (r Region) contains(loc models.Location) (float64, bool) {
	d := Distance(loc.Latitude, loc.Longitude, r.Latitude, r.Longitude)
	return d, d <= r.Radius
}

// Fix is a position reported for one subject (a parent user id).
type Fix struct {
	SubjectID string
	Location  models.Location
}

// LocationSource yields the fixes to evaluate on each poll.
type LocationSource interface {
	Locations(ctx context.Context) ([]Fix, error)
}

type Monitor struct {
	schools  []models.School
	notifier notification.Notifier
	now      func() time.Time

	mu      sync.Mutex
	active  bool
	regions []Region
	// inside tracks, per subject, the regions already announced.
	inside map[string]map[string]bool

	polling int32
}

func NewMonitor(schools []models.School, notifier notification.Notifier, now func() time.Time) *Monitor {
	if notifier == nil {
		notifier = notification.NoopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		schools:  append([]models.School(nil), schools...),
		notifier: notifier,
		now:      now,
		inside:   map[string]map[string]bool{},
	}
}

// CheckEntry reports the first school whose fence contains loc.
func (m *Monitor) CheckEntry(loc *models.Location) models.GeofenceCheck {
	if loc == nil {
		return models.GeofenceCheck{}
	}
	for i := range m.schools {
		s := m.schools[i]
		d := Distance(loc.Latitude, loc.Longitude, s.Geofence.Latitude, s.Geofence.Longitude)
		if d <= s.Geofence.Radius {
			return models.GeofenceCheck{IsInside: true, School: &s, Distance: d}
		}
	}
	return models.GeofenceCheck{}
}

func (m *Monitor) StartMonitoring(regions []Region) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions = append([]Region(nil), regions...)
	m.inside = map[string]map[string]bool{}
	m.active = true
	log.Printf("Geofence monitoring started for %d regions", len(regions))
}

// StopMonitoring keeps the region list so MonitoredRegions still reports it.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
	log.Printf("Geofence monitoring stopped")
}

func (m *Monitor) IsMonitoringActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Monitor) MonitoredRegions() []Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Region(nil), m.regions...)
}

// Observe evaluates one fix against the monitored regions and notifies the
// subject for each region newly entered. A region is re-armed once the
// subject is seen outside it. Returns the regions entered by this fix.
func (m *Monitor) Observe(ctx context.Context, subjectID string, loc models.Location) []Region {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return nil
	}
	seen := m.inside[subjectID]
	if seen == nil {
		seen = map[string]bool{}
		m.inside[subjectID] = seen
	}
	var entered []Region
	for _, r := range m.regions {
		_, in := r.contains(loc)
		switch {
		case in && !seen[r.ID]:
			seen[r.ID] = true
			entered = append(entered, r)
		case !in:
			delete(seen, r.ID)
		}
	}
	if len(seen) == 0 {
		delete(m.inside, subjectID)
	}
	m.mu.Unlock()

	at := loc.RecordedAt
	if at.IsZero() {
		at = m.now()
	}
	for _, r := range entered {
		log.Printf("Entered geofence: %s (user %s)", r.Name, subjectID)
		if err := m.notifier.Send(ctx, notification.GeofenceEntry(subjectID, r.Name, r.ID, at)); err != nil {
			log.Printf("Geofence notification error: %v", err)
		}
	}
	return entered
}

// Run polls source every interval until ctx is done. A tick is skipped while
// the previous poll is still in flight.
func (m *Monitor) Run(ctx context.Context, source LocationSource, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&m.polling, 0, 1) {
				continue
			}
			go func() {
				defer atomic.StoreInt32(&m.polling, 0)
				m.Poll(ctx, source)
			}()
		}
	}
}

// Poll evaluates every fix the source currently has.
func (m *Monitor) Poll(ctx context.Context, source LocationSource) {
	fixes, err := source.Locations(ctx)
	if err != nil {
		log.Printf("Location poll error: %v", err)
		return
	}
	for _, f := range fixes {
		m.Observe(ctx, f.SubjectID, f.Location)
	}
}
