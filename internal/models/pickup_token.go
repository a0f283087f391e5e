package models

import "time"

// TokenVersion is the payload version embedded in every QR credential.
const TokenVersion = "1.0"

// PickupToken is the parent's current single-use pickup credential.
type PickupToken struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	StudentID   string    `json:"studentId"`
	SchoolID    string    `json:"schoolId"`
	GeneratedAt time.Time `json:"generatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	IsUsed      bool      `json:"isUsed"`
	QRCodeData  string    `json:"qrCodeData"`
}

// IsExpired reports whether the token is past its expiry at now.
func (t *PickupToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPayload is the JSON object carried inside the QR credential. Field
// order and names are part of the wire format.
type TokenPayload struct {
	UserID    string `json:"userId"`
	StudentID string `json:"studentId"`
	SchoolID  string `json:"schoolId"`
	Timestamp string `json:"timestamp"`
	AuthToken string `json:"authToken"`
	Version   string `json:"version"`
}

// StudentInfo is what a scanner learns from a valid credential.
type StudentInfo struct {
	StudentID string `json:"studentId"`
	UserID    string `json:"userId"`
	SchoolID  string `json:"schoolId"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ValidationResult is returned to the scanning side; Error is a display reason.
type ValidationResult struct {
	Valid       bool         `json:"valid"`
	StudentInfo *StudentInfo `json:"studentInfo,omitempty"`
	Error       string       `json:"error,omitempty"`
}
