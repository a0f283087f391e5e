package models

import "time"

type CheckInStatus string

const (
	CheckInWaiting    CheckInStatus = "waiting"
	CheckInProcessing CheckInStatus = "processing"
	CheckInCompleted  CheckInStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s CheckInStatus) Valid() bool {
	switch s {
	case CheckInWaiting, CheckInProcessing, CheckInCompleted:
		return true
	}
	return false
}

// rank orders statuses along the forward-only pickup flow.
func (s CheckInStatus) rank() int {
	switch s {
	case CheckInWaiting:
		return 0
	case CheckInProcessing:
		return 1
	case CheckInCompleted:
		return 2
	}
	return -1
}

// CanTransition reports whether moving from s to next keeps the flow forward.
// Staying on the same status is allowed.
func (s CheckInStatus) CanTransition(next CheckInStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// CheckIn is one parent's presence at pickup. Display fields are a snapshot
// taken at registration.
type CheckIn struct {
	ID              string        `json:"id" gorm:"primaryKey;size:64"`
	UserID          string        `json:"userId" gorm:"size:64;not null;index:idx_checkin_pair"`
	StudentID       string        `json:"studentId" gorm:"size:64;not null;index:idx_checkin_pair"`
	SchoolID        string        `json:"schoolId" gorm:"size:64;not null;index"`
	ParentName      string        `json:"parentName"`
	StudentName     string        `json:"studentName"`
	StudentGrade    string        `json:"studentGrade"`
	CheckedInAt     time.Time     `json:"checkedInAt" gorm:"not null;index"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
	Status          CheckInStatus `json:"status" gorm:"size:16;not null;default:'waiting'"`
	TokenID         string        `json:"tokenId,omitempty" gorm:"size:64"`
	WaitTimeMinutes *int          `json:"waitTimeMinutes,omitempty"`
}

func (CheckIn) TableName() string { return "pickup_check_ins" }
