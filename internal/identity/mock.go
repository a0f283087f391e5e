package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"geopickup/internal/models"
)

// MockUser is the development profile served in mock mode.
func MockUser() models.User {
	return models.User{
		ID:    "mock-user-123",
		Email: "parent@example.com",
		Name:  "John Doe",
		Phone: "+1234567890",
		Role:  models.RoleAdmin,
		Students: []models.Student{
			{ID: "student-1", ParentID: "mock-user-123", Name: "Jane Doe", Grade: "3rd", SchoolID: "school-1"},
		},
		Vehicle: &models.Vehicle{
			OwnerID:      "mock-user-123",
			Make:         "Toyota",
			Model:        "Camry",
			Color:        "Blue",
			LicensePlate: "ABC123",
		},
		TokenVersion: 1,
	}
}

// MockProvider is signed in as a fixed user until SignOut.
type MockProvider struct {
	mu       sync.RWMutex
	user     models.User
	signedIn bool
	now      func() time.Time
}

func NewMockProvider(user models.User, now func() time.Time) *MockProvider {
	if now == nil {
		now = time.Now
	}
	return &MockProvider{user: user, signedIn: true, now: now}
}

func (p *MockProvider) CurrentUser(context.Context) (*models.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.signedIn {
		return nil, nil
	}
	u := p.user
	return &u, nil
}

func (p *MockProvider) AuthToken(context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.signedIn {
		return "", nil
	}
	return fmt.Sprintf("mock-auth-token-%d", p.now().UnixMilli()), nil
}

func (p *MockProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.signedIn = false
	p.mu.Unlock()
	return nil
}

func (p *MockProvider) SignIn() {
	p.mu.Lock()
	p.signedIn = true
	p.mu.Unlock()
}
