package notification

import (
	"fmt"
	"time"
)

const clockLayout = "3:04:05 PM"

// PickupConfirmation tells the parent their student has been picked up.
func PickupConfirmation(parentID, studentName, schoolName string, pickupTime time.Time) Message {
	return Message{
		Kind:      KindPickupConfirmation,
		Recipient: parentID,
		Title:     "✅ Pickup Confirmed",
		Body: fmt.Sprintf("%s has been successfully picked up from %s at %s",
			studentName, schoolName, pickupTime.Format(clockLayout)),
		Data: map[string]interface{}{
			"type":        KindPickupConfirmation,
			"studentName": studentName,
			"schoolName":  schoolName,
			"pickupTime":  pickupTime.UTC().Format(time.RFC3339Nano),
		},
	}
}

// PickupCompleted tells the school staff a pickup finished.
func PickupCompleted(schoolID, parentName, studentName, studentGrade, schoolName string, pickupTime time.Time) Message {
	return Message{
		Kind:      KindPickupSchool,
		Recipient: SchoolRecipient(schoolID),
		Title:     "📋 Pickup Completed",
		Body:      fmt.Sprintf("%s picked up %s (%s) from %s", parentName, studentName, studentGrade, schoolName),
		Data: map[string]interface{}{
			"type":         KindPickupSchool,
			"parentName":   parentName,
			"studentName":  studentName,
			"studentGrade": studentGrade,
			"schoolName":   schoolName,
			"pickupTime":   pickupTime.UTC().Format(time.RFC3339Nano),
		},
	}
}

// GeofenceEntry prompts a parent who just arrived near a school.
func GeofenceEntry(recipient, schoolName, schoolID string, at time.Time) Message {
	return Message{
		Kind:      KindGeofenceEntry,
		Recipient: recipient,
		Title:     "🎒 Approaching School Pickup",
		Body:      fmt.Sprintf("You're near %s. Tap to show your pickup code.", schoolName),
		Data: map[string]interface{}{
			"type":      KindGeofenceEntry,
			"schoolId":  schoolID,
			"timestamp": at.UTC().Format(time.RFC3339Nano),
		},
	}
}

func PickupReminder(recipient, studentName, pickupTime, schoolName string) Message {
	return Message{
		Kind:      KindPickupReminder,
		Recipient: recipient,
		Title:     "⏰ Pickup Reminder",
		Body:      fmt.Sprintf("Don't forget to pick up %s from %s at %s", studentName, schoolName, pickupTime),
		Data: map[string]interface{}{
			"type":        KindPickupReminder,
			"studentName": studentName,
			"pickupTime":  pickupTime,
		},
	}
}
