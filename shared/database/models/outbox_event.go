package models

import (
	"time"
)

// Outbox event statuses
const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
	OutboxFailed     = "failed"
)

// Outbox event types
const (
	EventInstanceDeploy = "instance.deploy"
)

// OutboxEvent records work that must happen after a committed transaction,
// so that org creation and instance deployment never half-apply.
type OutboxEvent struct {
	ID          int64      `json:"id,string" gorm:"primaryKey"`
	EventType   string     `json:"event_type" gorm:"size:100;index;not null"`
	AggregateID int64      `json:"aggregate_id,string" gorm:"index;not null"`
	Payload     string     `json:"payload" gorm:"type:text"`
	Status      string     `json:"status" gorm:"size:20;index;default:'pending'"`
	Attempts    int        `json:"attempts" gorm:"default:0"`
	LastError   string     `json:"last_error"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
