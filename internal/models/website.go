package models

import (
	"time"

	"github.com/google/uuid"
)

// Website is a connected WooCommerce store
type Website struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string    `gorm:"type:varchar(255);not null" json:"name"`
	BaseURL string    `gorm:"type:varchar(500);not null" json:"baseUrl"`

	// Inline credentials are used only when no secret manager is configured
	ConsumerKey     string `gorm:"type:varchar(255)" json:"-"`
	ConsumerSecret  string `gorm:"type:varchar(255)" json:"-"`
	SecretReference string `gorm:"type:varchar(500)" json:"-"`

	Currency    string     `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
	SyncEnabled bool       `gorm:"not null;index:idx_websites_sync_enabled" json:"syncEnabled"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Website
func (Website) TableName() string {
	return "websites"
}
