package repositories

import (
	"context"
	"sync"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/models"
)

// MemoryUserRepository backs the memory storage mode and tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserRepository(seed ...models.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[string]models.User)}
	for _, u := range seed {
		r.users[u.ID] = u
	}
	return r
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domainerrors.ErrEmailTaken
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domainerrors.ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domainerrors.ErrUserNotFound
}

func (r *MemoryUserRepository) IncrementTokenVersion(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	u.TokenVersion++
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepository) ListParentsBySchool(_ context.Context, schoolID string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.User
	for _, u := range r.users {
		if u.Role != models.RoleParent {
			continue
		}
		for _, s := range u.Students {
			if s.SchoolID == schoolID {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}
