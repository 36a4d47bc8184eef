package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncType represents the reconciliation phase a run covers
type SyncType string

const (
	SyncTypeProducts SyncType = "products"
	SyncTypeOrders   SyncType = "orders"
)

// SyncStatus represents the status of a sync run
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// TriggerType represents what triggered the sync
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
)

// SyncLog records one sync run of one phase for one website
type SyncLog struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	WebsiteID uuid.UUID   `gorm:"type:uuid;not null;index:idx_sync_logs_website" json:"websiteId"`
	SyncType  SyncType    `gorm:"type:varchar(20);not null" json:"syncType"`
	Status    SyncStatus  `gorm:"type:varchar(20);not null;index:idx_sync_logs_status" json:"status"`
	Trigger   TriggerType `gorm:"type:varchar(20)" json:"trigger,omitempty"`

	// Cursor state, advanced after every reconciled page
	LastPage         int `gorm:"not null;default:0" json:"lastPage"`
	RecordsProcessed int `gorm:"not null;default:0" json:"recordsProcessed"`

	ErrorMessage *string `gorm:"type:text" json:"errorMessage,omitempty"`
	ErrorDetails JSONB   `gorm:"type:jsonb" json:"errorDetails,omitempty"`

	StartedAt   time.Time  `gorm:"not null;index:idx_sync_logs_started" json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for SyncLog
func (SyncLog) TableName() string {
	return "sync_logs"
}
