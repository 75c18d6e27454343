package models

import (
	"strings"
	"time"
)

type User struct {
	ID         int64     `json:"id,string" gorm:"primaryKey"`
	Email      string    `json:"email" gorm:"uniqueIndex;not null"`
	ExternalID string    `json:"-" gorm:"size:200;uniqueIndex"`
	FirstName  string    `json:"first_name" gorm:"size:100"`
	LastName   string    `json:"last_name" gorm:"size:100"`
	Avatar     string    `json:"avatar"`
	Status     string    `json:"status" gorm:"default:'ACTIVE'"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName returns the display name, falling back to the email local part.
func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		if at := strings.Index(u.Email, "@"); at > 0 {
			name = u.Email[:at]
		}
	}
	return name
}
