package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVBlob is a row of the postgres-backed key-value surface.
type KVBlob struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     []byte `gorm:"type:bytea;not null"`
	UpdatedAt time.Time
}

func (KVBlob) TableName() string { return "kv_blobs" }

type gormKV struct {
	db *gorm.DB
}

// NewGormKV stores blobs in the kv_blobs table.
func NewGormKV(db *gorm.DB) KVStore {
	return &gormKV{db: db}
}

func (s *gormKV) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var row KVBlob
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	if err := DecodeBlob(row.Value, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *gormKV) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := EncodeBlob(value)
	if err != nil {
		return err
	}
	row := KVBlob{Key: key, Value: raw, UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	return nil
}

func (s *gormKV) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&KVBlob{}).Error
}
