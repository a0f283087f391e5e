package repositories

import (
	"context"
	"fmt"

	"geopickup/internal/models"

	"gorm.io/gorm"
)

type NotificationLogRepository interface {
	Create(ctx context.Context, entry *models.NotificationLog) error
	// List returns a page of entries, newest first, and the total count.
	List(ctx context.Context, offset, limit int) ([]models.NotificationLog, int64, error)
}

type notificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) NotificationLogRepository {
	return &notificationLogRepository{db: db}
}

func (r *notificationLogRepository) Create(ctx context.Context, entry *models.NotificationLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (r *notificationLogRepository) List(ctx context.Context, offset, limit int) ([]models.NotificationLog, int64, error) {
	var (
		logs  []models.NotificationLog
		total int64
	)
	db := r.db.WithContext(ctx).Model(&models.NotificationLog{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return logs, total, nil
}
