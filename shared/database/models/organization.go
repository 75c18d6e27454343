package models

import (
	"time"
)

type Organization struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Slug      string    `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Status    string    `json:"status" gorm:"default:'ACTIVE'"`
	OwnerID   int64     `json:"owner_id,string" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
