package geofence

import (
	"context"
	"sync"

	"geopickup/internal/models"
)

// Tracker buffers the latest reported fix per subject until the next poll.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]models.Location
}

func NewTracker() *Tracker {
	return &Tracker{pending: map[string]models.Location{}}
}

// Record replaces any fix not yet polled for subjectID.
func (t *Tracker) Record(subjectID string, loc models.Location) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[subjectID] = loc
}

// Locations drains the buffered fixes.
func (t *Tracker) Locations(context.Context) ([]Fix, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Fix, 0, len(t.pending))
	for id, loc := range t.pending {
		out = append(out, Fix{SubjectID: id, Location: loc})
	}
	t.pending = map[string]models.Location{}
	return out, nil
}
