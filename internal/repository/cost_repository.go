package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"profit-sync-service/internal/models"
)

// CostRepository reads and appends cost ledger entries. It exposes no
// update or delete operations.
type CostRepository struct {
	db *gorm.DB
}

// NewCostRepository creates a new cost repository
func NewCostRepository(db *gorm.DB) *CostRepository {
	return &CostRepository{db: db}
}

// Append inserts a ledger entry
func (r *CostRepository) Append(ctx context.Context, cost *models.Cost) error {
	if cost.ID == uuid.Nil {
		cost.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(cost).Error
}

// LatestAt returns the entry with the greatest effective_from not after asOf.
// Entries sharing an effective_from resolve to the most recently recorded.
func (r *CostRepository) LatestAt(ctx context.Context, variantID uuid.UUID, asOf time.Time) (*models.Cost, error) {
	var cost models.Cost
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND effective_from <= ?", variantID, asOf.UTC()).
		Order("effective_from DESC").
		Order("created_at DESC").
		First(&cost).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cost, nil
}

// History returns every ledger entry for a variant, newest first
func (r *CostRepository) History(ctx context.Context, variantID uuid.UUID) ([]models.Cost, error) {
	var costs []models.Cost
	err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("effective_from DESC").
		Order("created_at DESC").
		Find(&costs).Error
	return costs, err
}
