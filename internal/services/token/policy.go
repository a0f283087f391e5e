package token

import (
	"context"
	"log"
	"time"

	"geopickup/internal/config"
	"geopickup/internal/models"
)

// AuthorizationPolicy decides whether user may generate a pickup token for
// the student at the school at time now.
type AuthorizationPolicy interface {
	Authorize(ctx context.Context, user *models.User, studentID, schoolID string, now time.Time) (bool, error)
}

// PolicyFunc adapts a function to AuthorizationPolicy.
type PolicyFunc func(ctx context.Context, user *models.User, studentID, schoolID string, now time.Time) (bool, error)

func (f PolicyFunc) Authorize(ctx context.Context, user *models.User, studentID, schoolID string, now time.Time) (bool, error) {
	return f(ctx, user, studentID, schoolID, now)
}

// AllowAll authorizes every request.
var AllowAll = PolicyFunc(func(context.Context, *models.User, string, string, time.Time) (bool, error) {
	return true, nil
})

// PickupWindowPolicy allows generation only inside one of the school's
// configured pickup windows.
type PickupWindowPolicy struct {
	Schools  *config.SchoolCatalog
	Location *time.Location
}

func (p PickupWindowPolicy) Authorize(_ context.Context, _ *models.User, _ string, schoolID string, now time.Time) (bool, error) {
	school, ok := p.Schools.Get(schoolID)
	if !ok {
		return false, nil
	}
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	for _, w := range school.PickupTimes {
		inside, err := w.Contains(local)
		if err != nil {
			log.Printf("Skipping pickup window %q of %s: %v", w.Label, schoolID, err)
			continue
		}
		if inside {
			return true, nil
		}
	}
	return false, nil
}

// StudentOwnershipPolicy requires the student to belong to the user and be
// enrolled at the school.
type StudentOwnershipPolicy struct{}

func (StudentOwnershipPolicy) Authorize(_ context.Context, user *models.User, studentID, schoolID string, _ time.Time) (bool, error) {
	student, ok := user.Student(studentID)
	if !ok {
		return false, nil
	}
	return student.SchoolID == schoolID, nil
}

// AllOf authorizes when every policy does. An empty list allows everything.
func AllOf(policies ...AuthorizationPolicy) AuthorizationPolicy {
	return PolicyFunc(func(ctx context.Context, user *models.User, studentID, schoolID string, now time.Time) (bool, error) {
		for _, p := range policies {
			ok, err := p.Authorize(ctx, user, studentID, schoolID, now)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	})
}
