package models

import "time"

// Location is a single position fix reported by a parent device.
type Location struct {
	Latitude   float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64   `json:"longitude" validate:"gte=-180,lte=180"`
	RecordedAt time.Time `json:"recordedAt"`
}

// GeofenceCheck is the result of testing a location against the school fences.
type GeofenceCheck struct {
	IsInside bool    `json:"isInside"`
	School   *School `json:"school,omitempty"`
	Distance float64 `json:"distance,omitempty"`
}
