package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"geopickup/internal/models"

	"gorm.io/gorm"
)

// CheckInStore persists the check-in ledger.
type CheckInStore interface {
	LoadAll(ctx context.Context) ([]models.CheckIn, error)
	Upsert(ctx context.Context, checkIn models.CheckIn) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

type gormCheckInStore struct {
	db *gorm.DB
}

// NewGormCheckInStore keeps one indexed row per check-in.
func NewGormCheckInStore(db *gorm.DB) CheckInStore {
	return &gormCheckInStore{db: db}
}

func (s *gormCheckInStore) LoadAll(ctx context.Context) ([]models.CheckIn, error) {
	var rows []models.CheckIn
	if err := s.db.WithContext(ctx).Order("checked_in_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load check-ins: %w", err)
	}
	return rows, nil
}

func (s *gormCheckInStore) Upsert(ctx context.Context, checkIn models.CheckIn) error {
	if err := s.db.WithContext(ctx).Save(&checkIn).Error; err != nil {
		return fmt.Errorf("failed to save check-in %s: %w", checkIn.ID, err)
	}
	return nil
}

func (s *gormCheckInStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.CheckIn{}, "id = ?", id).Error
}

func (s *gormCheckInStore) DeleteAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CheckIn{}).Error
}

// blobCheckInStore rewrites the whole collection under KeyCheckIns on every
// mutation.
type blobCheckInStore struct {
	kv KVStore
	mu sync.Mutex
}

func NewBlobCheckInStore(kv KVStore) CheckInStore {
	return &blobCheckInStore{kv: kv}
}

func (s *blobCheckInStore) LoadAll(ctx context.Context) ([]models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *blobCheckInStore) load(ctx context.Context) ([]models.CheckIn, error) {
	var all []models.CheckIn
	if _, err := s.kv.Get(ctx, KeyCheckIns, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (s *blobCheckInStore) Upsert(ctx context.Context, checkIn models.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].ID == checkIn.ID {
			all[i] = checkIn
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, checkIn)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CheckedInAt.Before(all[j].CheckedInAt)
	})
	return s.kv.Set(ctx, KeyCheckIns, all)
}

func (s *blobCheckInStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, c := range all {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	return s.kv.Set(ctx, KeyCheckIns, kept)
}

func (s *blobCheckInStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, KeyCheckIns)
}
