package token

import (
	"context"
	"testing"
	"time"

	"geopickup/internal/config"
	"geopickup/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPickupWindowPolicy(t *testing.T) {
	policy := PickupWindowPolicy{Schools: config.NewSchoolCatalog(config.DefaultSchools), Location: time.UTC}
	day := func(h, m int) time.Time { return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		schoolID string
		at       time.Time
		want     bool
	}{
		{"regular window start", "school-1", day(14, 30), true},
		{"regular window end", "school-1", day(15, 30), true},
		{"early dismissal", "school-1", day(12, 15), true},
		{"morning", "school-1", day(9, 0), false},
		{"after window", "school-1", day(15, 31), false},
		{"unknown school", "school-x", day(14, 45), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := policy.Authorize(context.Background(), &models.User{}, "s1", tt.schoolID, tt.at)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAllOf(t *testing.T) {
	user := &models.User{Students: []models.Student{{ID: "s1", SchoolID: "school-1"}}}
	policy := AllOf(AllowAll, StudentOwnershipPolicy{})

	ok, _ := policy.Authorize(context.Background(), user, "s1", "school-1", time.Now())
	assert.True(t, ok)

	ok, _ = policy.Authorize(context.Background(), user, "s1", "school-2", time.Now())
	assert.False(t, ok)

	ok, _ = AllOf().Authorize(context.Background(), user, "x", "y", time.Now())
	assert.True(t, ok)
}
