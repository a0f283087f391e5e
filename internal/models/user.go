package models

import (
	"time"

	"github.com/lib/pq"
)

const (
	RoleParent = "parent"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

// User is a parent or a school staff account.
type User struct {
	ID       string    `json:"id" gorm:"primaryKey;size:64"`
	Email    string    `json:"email" gorm:"uniqueIndex;not null"`
	Password string    `json:"-" gorm:"not null"`
	Name     string    `json:"name" gorm:"not null"`
	Phone    string    `json:"phone,omitempty"`
	Role     string    `json:"role" gorm:"size:16;default:'parent'"`
	Students []Student `json:"students" gorm:"foreignKey:ParentID"`
	Vehicle  *Vehicle  `json:"vehicle,omitempty" gorm:"foreignKey:OwnerID"`
	// SchoolIDs lists the schools a staff member operates the validator for.
	SchoolIDs    pq.StringArray `json:"schoolIds,omitempty" gorm:"type:text[]"`
	TokenVersion int            `json:"-" gorm:"default:1"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Student returns the user's student with the given id.
func (u *User) Student(id string) (*Student, bool) {
	for i := range u.Students {
		if u.Students[i].ID == id {
			return &u.Students[i], true
		}
	}
	return nil, false
}

// OperatesSchool reports whether a staff account may act on the school.
// Admins operate every school.
func (u *User) OperatesSchool(schoolID string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, id := range u.SchoolIDs {
		if id == schoolID {
			return true
		}
	}
	return false
}

type Student struct {
	ID       string `json:"id" gorm:"primaryKey;size:64"`
	ParentID string `json:"-" gorm:"size:64;not null;index"`
	Name     string `json:"name" gorm:"not null"`
	Grade    string `json:"grade"`
	SchoolID string `json:"schoolId" gorm:"size:64;not null;index"`
}

type Vehicle struct {
	ID           uint   `json:"-" gorm:"primaryKey"`
	OwnerID      string `json:"-" gorm:"size:64;uniqueIndex"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Color        string `json:"color"`
	LicensePlate string `json:"licensePlate"`
}
