package notification

import (
	"context"
	"log"
	"time"

	"geopickup/internal/models"
	"geopickup/internal/repositories"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Recording writes every dispatch attempt to the notification log and then
// reports the inner notifier's result.
type Recording struct {
	next Notifier
	repo repositories.NotificationLogRepository
}

func NewRecording(next Notifier, repo repositories.NotificationLogRepository) *Recording {
	return &Recording{next: next, repo: repo}
}

func (r *Recording) Send(ctx context.Context, msg Message) error {
	sendErr := r.next.Send(ctx, msg)

	entry := &models.NotificationLog{
		ID:        uuid.NewString(),
		Kind:      msg.Kind,
		Recipient: msg.Recipient,
		Title:     msg.Title,
		Body:      msg.Body,
		Data:      datatypes.JSONMap(msg.Data),
		Status:    models.NotificationSent,
		CreatedAt: time.Now(),
	}
	if sendErr != nil {
		entry.Status = models.NotificationFailed
		entry.LastError = sendErr.Error()
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		log.Printf("notification log error: %v", err)
	}
	return sendErr
}
