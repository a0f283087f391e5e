// Package notification delivers pickup messages to parents and schools.
// Delivery is fire-and-forget from the caller's point of view.
package notification

import (
	"context"
	"errors"
	"log"
)

const (
	KindPickupConfirmation = "pickup_confirmation"
	KindPickupSchool       = "pickup_school_notification"
	KindGeofenceEntry      = "geofence_entry"
	KindPickupReminder     = "pickup_reminder"
)

// Message is one notification. Recipient is a user id or "school:<id>".
type Message struct {
	Kind      string                 `json:"kind"`
	Recipient string                 `json:"recipient"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SchoolRecipient addresses the staff of a school.
func SchoolRecipient(schoolID string) string {
	return "school:" + schoolID
}

type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("send %s to %s: %s | %s", msg.Kind, msg.Recipient, msg.Title, msg.Body)
	return nil
}

type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, Message) error { return nil }

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
