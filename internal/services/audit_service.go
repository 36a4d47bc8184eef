package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"profit-sync-service/internal/models"
)

// AuditService handles audit logging for user-initiated changes
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// LogAction logs an audit action
func (s *AuditService) LogAction(ctx context.Context, log *models.AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(log).Error
}

// LogWebsiteCreate logs a website creation
func (s *AuditService) LogWebsiteCreate(ctx context.Context, actorID string, website *models.Website) error {
	log := models.NewAuditLog(models.ActionWebsiteCreate, models.ResourceWebsite).
		WithActor(models.ActorUser, actorID, nil).
		WithResource(website.ID.String()).
		WithChanges(nil, models.JSONB{
			"name":        website.Name,
			"baseUrl":     website.BaseURL,
			"currency":    website.Currency,
			"syncEnabled": website.SyncEnabled,
		}).
		Build()

	return s.LogAction(ctx, log)
}

// LogWebsiteUpdate logs a website update
func (s *AuditService) LogWebsiteUpdate(ctx context.Context, actorID string, websiteID uuid.UUID, oldValues, newValues models.JSONB) error {
	log := models.NewAuditLog(models.ActionWebsiteUpdate, models.ResourceWebsite).
		WithActor(models.ActorUser, actorID, nil).
		WithResource(websiteID.String()).
		WithChanges(oldValues, newValues).
		Build()

	return s.LogAction(ctx, log)
}

// LogCostRecord logs a new cost ledger entry together with the cost it supersedes
func (s *AuditService) LogCostRecord(ctx context.Context, actorID string, cost *models.Cost, previous decimal.Decimal) error {
	log := models.NewAuditLog(models.ActionCostRecord, models.ResourceVariant).
		WithActor(models.ActorUser, actorID, nil).
		WithResource(cost.VariantID.String()).
		WithChanges(
			models.JSONB{"costAmount": previous.String()},
			models.JSONB{
				"costAmount":    cost.CostAmount.String(),
				"effectiveFrom": cost.EffectiveFrom.UTC().Format(time.RFC3339),
			},
		).
		Build()

	return s.LogAction(ctx, log)
}

// LogDataExport logs an export of the order-item listing
func (s *AuditService) LogDataExport(ctx context.Context, actorID, format string, rows int, filters models.JSONB) error {
	log := models.NewAuditLog(models.ActionDataExport, models.ResourceReport).
		WithActor(models.ActorUser, actorID, nil).
		WithMetadata(models.JSONB{
			"format":  format,
			"rows":    rows,
			"filters": filters,
		}).
		Build()

	return s.LogAction(ctx, log)
}

// ListForResource returns audit entries for one resource, newest first
func (s *AuditService) ListForResource(ctx context.Context, resourceType models.ResourceType, resourceID string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	query := s.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}
