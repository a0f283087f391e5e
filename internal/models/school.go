package models

import (
	"fmt"
	"time"
)

// Geofence is a circular region around a school, radius in meters.
type Geofence struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Radius    float64 `json:"radius" validate:"gt=0"`
}

// PickupWindow is a daily pickup slot in "HH:MM" local time.
type PickupWindow struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
	Label string `json:"label"`
}

type School struct {
	ID          string         `json:"id" validate:"required"`
	Name        string         `json:"name" validate:"required"`
	Address     string         `json:"address"`
	Geofence    Geofence       `json:"geofence"`
	PickupTimes []PickupWindow `json:"pickupTimes" validate:"dive"`
}

// Contains reports whether t falls inside the window on t's calendar day.
func (w PickupWindow) Contains(t time.Time) (bool, error) {
	start, err := w.StartOn(t)
	if err != nil {
		return false, err
	}
	end, err := clockOn(t, w.End)
	if err != nil {
		return false, err
	}
	return !t.Before(start) && !t.After(end), nil
}

// StartOn returns the window start on the calendar day of t.
func (w PickupWindow) StartOn(t time.Time) (time.Time, error) {
	return clockOn(t, w.Start)
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}
