package models

import (
	"time"

	"github.com/google/uuid"
)

// ActorType represents the type of actor performing an action
type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorSystem ActorType = "SYSTEM"
)

// AuditAction represents audited actions
type AuditAction string

const (
	ActionWebsiteCreate AuditAction = "WEBSITE_CREATE"
	ActionWebsiteUpdate AuditAction = "WEBSITE_UPDATE"
	ActionCostRecord    AuditAction = "COST_RECORD"
	ActionDataExport    AuditAction = "DATA_EXPORT"
)

// ResourceType represents the type of resource being audited
type ResourceType string

const (
	ResourceWebsite ResourceType = "WEBSITE"
	ResourceVariant ResourceType = "VARIANT"
	ResourceReport  ResourceType = "REPORT"
)

// AuditLog is an audit trail entry for user-initiated changes
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ActorType ActorType `gorm:"type:varchar(50);not null" json:"actorType"`
	ActorID   string    `gorm:"type:varchar(255);not null;index:idx_audit_logs_actor" json:"actorId"`
	ActorIP   *string   `gorm:"type:varchar(45)" json:"actorIp,omitempty"`

	Action       AuditAction  `gorm:"type:varchar(100);not null;index:idx_audit_logs_action" json:"action"`
	ResourceType ResourceType `gorm:"type:varchar(100);not null" json:"resourceType"`
	ResourceID   *string      `gorm:"type:varchar(255);index:idx_audit_logs_resource" json:"resourceId,omitempty"`

	OldValue JSONB `gorm:"type:jsonb" json:"oldValue,omitempty"`
	NewValue JSONB `gorm:"type:jsonb" json:"newValue,omitempty"`
	Metadata JSONB `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_audit_logs_created" json:"createdAt"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogBuilder helps construct audit log entries
type AuditLogBuilder struct {
	log *AuditLog
}

// NewAuditLog creates a new audit log builder
func NewAuditLog(action AuditAction, resourceType ResourceType) *AuditLogBuilder {
	return &AuditLogBuilder{
		log: &AuditLog{
			ID:           uuid.New(),
			ActorType:    ActorSystem,
			ActorID:      "system",
			Action:       action,
			ResourceType: resourceType,
			CreatedAt:    time.Now().UTC(),
		},
	}
}

// WithActor sets the actor information. An empty actor ID keeps the system actor.
func (b *AuditLogBuilder) WithActor(actorType ActorType, actorID string, actorIP *string) *AuditLogBuilder {
	if actorID == "" {
		return b
	}
	b.log.ActorType = actorType
	b.log.ActorID = actorID
	b.log.ActorIP = actorIP
	return b
}

// WithResource sets the resource ID
func (b *AuditLogBuilder) WithResource(resourceID string) *AuditLogBuilder {
	b.log.ResourceID = &resourceID
	return b
}

// WithChanges sets the old and new values
func (b *AuditLogBuilder) WithChanges(oldValue, newValue JSONB) *AuditLogBuilder {
	b.log.OldValue = oldValue
	b.log.NewValue = newValue
	return b
}

// WithMetadata sets additional metadata
func (b *AuditLogBuilder) WithMetadata(metadata JSONB) *AuditLogBuilder {
	b.log.Metadata = metadata
	return b
}

// Build returns the constructed audit log
func (b *AuditLogBuilder) Build() *AuditLog {
	return b.log
}
