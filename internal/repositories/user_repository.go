package repositories

import (
	"context"

	"geopickup/internal/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	// Create creates a new user together with their students and vehicle
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user with students and vehicle loaded
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by their email address
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// IncrementTokenVersion revokes every JWT issued so far to the user
	IncrementTokenVersion(ctx context.Context, id string) error

	// ListParentsBySchool returns parents with at least one student at the school
	ListParentsBySchool(ctx context.Context, schoolID string) ([]models.User, error)
}
