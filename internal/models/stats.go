package models

import "time"

type PickupStats struct {
	TotalPickups      int            `json:"totalPickups"`
	TotalPickupsToday int            `json:"totalPickupsToday"`
	OnTimePickups     int            `json:"onTimePickups"`
	AverageWaitTime   int            `json:"averageWaitTime"`
	FastestPickup     int            `json:"fastestPickup"`
	SlowestPickup     int            `json:"slowestPickup"`
	PickupsBySchool   map[string]int `json:"pickupsBySchool"`
	PickupsByHour     map[string]int `json:"pickupsByHour"`
	CompletionRate    int            `json:"completionRate"`
}

type DailyStats struct {
	Date             string `json:"date"`
	TotalCheckIns    int    `json:"totalCheckIns"`
	CompletedPickups int    `json:"completedPickups"`
	AverageWaitTime  int    `json:"averageWaitTime"`
	OnTimeRate       int    `json:"onTimeRate"`
}

// DateRange bounds check-ins by checkedInAt, both ends inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

type BestDay struct {
	Date    string `json:"date"`
	Pickups int    `json:"pickups"`
}

type PeakHour struct {
	Hour    string `json:"hour"`
	Pickups int    `json:"pickups"`
}

type BestSchool struct {
	SchoolID string `json:"schoolId"`
	Pickups  int    `json:"pickups"`
}

type TopMetrics struct {
	BestDay    BestDay    `json:"bestDay"`
	PeakHour   PeakHour   `json:"peakHour"`
	BestSchool BestSchool `json:"bestSchool"`
}
