package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"profit-sync-service/internal/models"
)

// WebsiteRepository handles database operations for connected websites
type WebsiteRepository struct {
	db *gorm.DB
}

// NewWebsiteRepository creates a new website repository
func NewWebsiteRepository(db *gorm.DB) *WebsiteRepository {
	return &WebsiteRepository{db: db}
}

// Create creates a new website
func (r *WebsiteRepository) Create(ctx context.Context, website *models.Website) error {
	if website.ID == uuid.Nil {
		website.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(website).Error
}

// GetByID retrieves a website by ID
func (r *WebsiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Website, error) {
	var website models.Website
	err := r.db.WithContext(ctx).First(&website, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &website, nil
}

// List retrieves all websites, newest first
func (r *WebsiteRepository) List(ctx context.Context) ([]models.Website, error) {
	var websites []models.Website
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&websites).Error
	return websites, err
}

// ListSyncEnabled retrieves websites that take part in scheduled syncs
func (r *WebsiteRepository) ListSyncEnabled(ctx context.Context) ([]models.Website, error) {
	var websites []models.Website
	err := r.db.WithContext(ctx).
		Where("sync_enabled = ?", true).
		Order("created_at ASC").
		Find(&websites).Error
	return websites, err
}

// Update writes the user-editable columns of a website. last_sync_at is
// owned by sync completion and is never written here.
func (r *WebsiteRepository) Update(ctx context.Context, website *models.Website) error {
	return r.db.WithContext(ctx).
		Model(website).
		Select("name", "currency", "sync_enabled", "updated_at").
		Updates(website).Error
}

// UpdateLastSyncAt records a successful reconciliation phase
func (r *WebsiteRepository) UpdateLastSyncAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Website{}).
		Where("id = ?", id).
		Update("last_sync_at", at).Error
}
